package filings

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aristath/thirteenf/internal/domain"
	"github.com/rs/zerolog"
)

// ManifestPatterns are matched against a filing's file names, most specific first.
// Every file is tried against a pattern before moving to the next pattern.
var ManifestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)info(table)?\.xml$`),
	regexp.MustCompile(`(?i)13f.*info.*table.*\.xml$`),
	regexp.MustCompile(`(?i)form13f.*\.xml$`),
	regexp.MustCompile(`(?i).*13f.*\.xml$`),
	regexp.MustCompile(`(?i)^\d+\.xml$`), // filer-assigned sequence numbers, e.g. 46994.xml
}

// FallbackFilenames are probed in order when the manifest yields nothing.
var FallbackFilenames = []string{
	"primary_doc.xml",
	"infotable.xml",
	"form13fInfoTable.xml",
}

// MatchManifest returns the first file name accepted by ManifestPatterns.
func MatchManifest(names []string) (string, bool) {
	for _, pattern := range ManifestPatterns {
		for _, name := range names {
			if pattern.MatchString(name) {
				return name, true
			}
		}
	}
	return "", false
}

// filingDir is the archive directory being searched.
type filingDir struct {
	cikNoLead   string
	accessionNo string
	baseURL     string
}

// locateStrategy is one attempt at finding the document.
// It reports the file names it tried so a final failure can list them.
type locateStrategy struct {
	name string
	try  func(ctx context.Context, dir filingDir) (url string, tried []string, ok bool)
}

// Locator finds the information table document inside a filing.
type Locator struct {
	archive    ArchiveSource
	strategies []locateStrategy
	log        zerolog.Logger
}

// NewLocator creates a new document locator.
func NewLocator(archive ArchiveSource, log zerolog.Logger) *Locator {
	l := &Locator{
		archive: archive,
		log:     log.With().Str("component", "document_locator").Logger(),
	}
	l.strategies = []locateStrategy{
		{name: "manifest", try: l.fromManifest},
		{name: "probe", try: l.probeFallbacks},
	}
	return l
}

// LocateInfoTable returns the URL of the information table of one filing.
// Fails with *domain.NotFoundError listing the attempted candidates when no strategy
// finds it; a cancelled context is returned as-is so callers can tell it apart.
func (l *Locator) LocateInfoTable(ctx context.Context, cikNoLead, accessionNo string) (string, error) {
	dir := filingDir{
		cikNoLead:   cikNoLead,
		accessionNo: accessionNo,
		baseURL:     l.archive.FilingBaseURL(cikNoLead, accessionNo),
	}

	var attempted []string
	for _, strategy := range l.strategies {
		url, tried, ok := strategy.try(ctx, dir)
		attempted = append(attempted, tried...)
		if ok {
			l.log.Debug().
				Str("accession", accessionNo).
				Str("strategy", strategy.name).
				Str("url", url).
				Msg("Located information table")
			return url, nil
		}
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("locating information table for %s: %w", accessionNo, err)
		}
	}

	return "", &domain.NotFoundError{
		Resource:  "information table",
		Key:       accessionNo,
		Attempted: attempted,
	}
}

// fromManifest scans index.json. A missing or unreadable manifest is not an error.
func (l *Locator) fromManifest(ctx context.Context, dir filingDir) (string, []string, bool) {
	names, err := l.archive.GetFileManifest(ctx, dir.cikNoLead, dir.accessionNo)
	if err != nil {
		l.log.Debug().Err(err).Str("accession", dir.accessionNo).Msg("File manifest unavailable")
		return "", []string{"index.json"}, false
	}

	name, ok := MatchManifest(names)
	if !ok {
		return "", []string{"index.json"}, false
	}
	return dir.baseURL + "/" + name, nil, true
}

// probeFallbacks checks each fallback file name with a HEAD request.
func (l *Locator) probeFallbacks(ctx context.Context, dir filingDir) (string, []string, bool) {
	tried := make([]string, 0, len(FallbackFilenames))
	for _, candidate := range FallbackFilenames {
		if ctx.Err() != nil {
			return "", tried, false
		}
		tried = append(tried, candidate)
		url := dir.baseURL + "/" + candidate
		if l.archive.Exists(ctx, url) {
			return url, tried, true
		}
	}
	return "", tried, false
}
