// Package filings finds a manager's latest 13F filing and the holdings document inside it.
package filings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/thirteenf/internal/clients/edgar"
	"github.com/aristath/thirteenf/internal/domain"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Resolver finds the most recently filed 13F holdings report of an issuer.
type Resolver struct {
	source SubmissionsSource
	log    zerolog.Logger
}

// NewResolver creates a new filing index resolver.
func NewResolver(source SubmissionsSource, log zerolog.Logger) *Resolver {
	return &Resolver{
		source: source,
		log:    log.With().Str("component", "filing_resolver").Logger(),
	}
}

// ResolveLatestFiling returns the latest 13F-HR filing of a 10-digit CIK.
// Fails with *domain.NotFoundError when the issuer never filed the form,
// and with *domain.UpstreamError when the submissions index cannot be fetched.
func (r *Resolver) ResolveLatestFiling(ctx context.Context, cik10 string) (domain.FilingReference, error) {
	subs, err := r.source.GetSubmissions(ctx, cik10)
	if err != nil {
		return domain.FilingReference{}, fmt.Errorf("failed to fetch submissions for %s: %w", cik10, err)
	}

	ref, ok := SelectLatest(subs.Filings.Recent)
	if !ok {
		return domain.FilingReference{}, &domain.NotFoundError{Resource: "13F filing", Key: cik10}
	}

	ref.CIK = cik10
	ref.CIKNoLead = domain.StripLeadingZeros(cik10)

	r.log.Debug().
		Str("cik", cik10).
		Str("accession", ref.Accession).
		Str("report_date", ref.ReportDate).
		Str("filing_date", ref.FilingDate).
		Msg("Resolved latest 13F filing")

	return ref, nil
}

// SelectLatest picks the filing to use from a submissions index.
//
// Only forms starting with 13F-HR qualify. Per report period the latest filing
// date wins, so an amendment replaces its original. Across periods the entry
// with the latest filing date wins. Ties keep the entry seen first.
// CIK fields of the result are left empty.
func SelectLatest(recent edgar.RecentFilings) (domain.FilingReference, bool) {
	n := len(recent.Form)
	for _, col := range [][]string{recent.AccessionNumber, recent.ReportDate, recent.FilingDate} {
		if len(col) < n {
			n = len(col)
		}
	}

	byPeriod := make(map[string]domain.FilingReference)
	periods := make([]string, 0)
	for i := 0; i < n; i++ {
		form := strings.ToUpper(strings.TrimSpace(recent.Form[i]))
		if !strings.HasPrefix(form, domain.FormType13FHoldings) {
			continue
		}

		candidate := domain.FilingReference{
			Form:        recent.Form[i],
			Accession:   recent.AccessionNumber[i],
			AccessionNo: strings.ReplaceAll(recent.AccessionNumber[i], "-", ""),
			ReportDate:  recent.ReportDate[i],
			FilingDate:  recent.FilingDate[i],
		}

		prev, seen := byPeriod[candidate.ReportDate]
		if !seen {
			periods = append(periods, candidate.ReportDate)
			byPeriod[candidate.ReportDate] = candidate
			continue
		}
		if filedAfter(candidate.FilingDate, prev.FilingDate) {
			byPeriod[candidate.ReportDate] = candidate
		}
	}

	if len(periods) == 0 {
		return domain.FilingReference{}, false
	}

	latest := byPeriod[periods[0]]
	for _, period := range periods[1:] {
		if candidate := byPeriod[period]; filedAfter(candidate.FilingDate, latest.FilingDate) {
			latest = candidate
		}
	}

	return latest, true
}

// filedAfter reports whether date a is strictly later than date b.
// Unparseable dates fall back to string order, which matches for ISO dates.
func filedAfter(a, b string) bool {
	ta, errA := time.Parse(dateLayout, a)
	tb, errB := time.Parse(dateLayout, b)
	if errA != nil || errB != nil {
		return a > b
	}
	return ta.After(tb)
}
