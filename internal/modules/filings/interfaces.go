package filings

import (
	"context"

	"github.com/aristath/thirteenf/internal/clients/edgar"
)

// SubmissionsSource returns an issuer's submissions index.
type SubmissionsSource interface {
	GetSubmissions(ctx context.Context, cik10 string) (*edgar.Submissions, error)
}

// ArchiveSource exposes a filing's archive directory.
type ArchiveSource interface {
	FilingBaseURL(cikNoLead, accessionNo string) string
	GetFileManifest(ctx context.Context, cikNoLead, accessionNo string) ([]string, error)
	Exists(ctx context.Context, url string) bool
}

var (
	_ SubmissionsSource = (*edgar.Client)(nil)
	_ ArchiveSource     = (*edgar.Client)(nil)
)
