package tickers

import (
	"context"

	"github.com/aristath/thirteenf/internal/clients/openfigi"
)

// Source maps CUSIPs to tickers. CUSIPs without a match are absent from the result.
type Source interface {
	Name() string
	Lookup(ctx context.Context, cusips []string) (map[string]string, error)
}

// KnownCUSIPs are historically stable mappings used when the mapping service misses.
var KnownCUSIPs = map[string]string{
	"037833100": "AAPL",  // Apple Inc
	"060505104": "BAC",   // Bank of America Corp
	"57636Q104": "MA",    // Mastercard Inc
	"30303M102": "META",  // Meta Platforms Inc
	"02079K305": "GOOGL", // Alphabet Inc Class A
	"02079K107": "GOOG",  // Alphabet Inc Class C
	"235851102": "DHR",   // Danaher Corp
	"532457108": "LLY",   // Eli Lilly and Co
	"55261F104": "MSGE",  // Madison Square Garden Entertainment Corp
	"136069101": "CNQ",   // Canadian Natural Resources Ltd
}

// StaticSource resolves from a fixed table.
type StaticSource struct {
	table map[string]string
}

// NewStaticSource creates a source over table. A nil table uses KnownCUSIPs.
func NewStaticSource(table map[string]string) *StaticSource {
	if table == nil {
		table = KnownCUSIPs
	}
	return &StaticSource{table: table}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Lookup(_ context.Context, cusips []string) (map[string]string, error) {
	found := make(map[string]string)
	for _, cusip := range cusips {
		if ticker, ok := s.table[cusip]; ok {
			found[cusip] = ticker
		}
	}
	return found, nil
}

// FIGILookup is the part of the OpenFIGI client the resolver needs.
type FIGILookup interface {
	LookupCUSIP(ctx context.Context, cusip string) ([]openfigi.MappingResult, error)
	BatchLookupCUSIPs(ctx context.Context, cusips []string) (map[string][]openfigi.MappingResult, error)
}

// OpenFIGISource resolves through the OpenFIGI mapping API.
type OpenFIGISource struct {
	client FIGILookup
}

// NewOpenFIGISource creates a source backed by client.
func NewOpenFIGISource(client FIGILookup) *OpenFIGISource {
	return &OpenFIGISource{client: client}
}

func (s *OpenFIGISource) Name() string { return "openfigi" }

// Lookup sends a single CUSIP as one mapping job and anything more as a batch.
func (s *OpenFIGISource) Lookup(ctx context.Context, cusips []string) (map[string]string, error) {
	if len(cusips) == 1 {
		listings, err := s.client.LookupCUSIP(ctx, cusips[0])
		if err != nil {
			return nil, err
		}
		found := make(map[string]string, 1)
		if ticker := openfigi.FirstTicker(listings); ticker != "" {
			found[cusips[0]] = ticker
		}
		return found, nil
	}

	results, err := s.client.BatchLookupCUSIPs(ctx, cusips)
	if err != nil {
		return nil, err
	}

	found := make(map[string]string, len(results))
	for cusip, listings := range results {
		if ticker := openfigi.FirstTicker(listings); ticker != "" {
			found[cusip] = ticker
		}
	}
	return found, nil
}
