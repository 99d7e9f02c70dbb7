package portfolio

import (
	"context"

	"github.com/aristath/thirteenf/internal/domain"
)

// FilingResolver finds the latest 13F filing of a 10-digit CIK.
type FilingResolver interface {
	ResolveLatestFiling(ctx context.Context, cik10 string) (domain.FilingReference, error)
}

// DocumentLocator finds the information table URL inside a filing.
type DocumentLocator interface {
	LocateInfoTable(ctx context.Context, cikNoLead, accessionNo string) (string, error)
}

// DocumentFetcher downloads a filing document.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) ([]byte, error)
}

// HoldingsParser turns a document into holdings. It never fails.
type HoldingsParser interface {
	Parse(data []byte) []domain.Holding
}

// TickerResolver maps CUSIPs to tickers in one batch, keyed by the upper-cased,
// trimmed CUSIP. Misses are absent, never errors.
type TickerResolver interface {
	ResolveBatch(ctx context.Context, cusips []string) map[string]string
}

// Pipeline groups the per-manager retrieval stages.
type Pipeline struct {
	Filings FilingResolver
	Locator DocumentLocator
	Fetcher DocumentFetcher
	Parser  HoldingsParser
	Tickers TickerResolver
}
