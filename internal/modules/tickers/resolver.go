// Package tickers resolves CUSIPs to trading symbols through an ordered chain of sources.
package tickers

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Resolver tries each source in order for the CUSIPs still unresolved.
// Resolution never fails; a miss is an empty ticker.
type Resolver struct {
	sources []Source
	log     zerolog.Logger
}

// NewResolver creates a resolver over sources, tried in the given order.
func NewResolver(log zerolog.Logger, sources ...Source) *Resolver {
	return &Resolver{
		sources: sources,
		log:     log.With().Str("component", "ticker_resolver").Logger(),
	}
}

// ResolveBatch resolves many CUSIPs at once. The result is keyed by the
// upper-cased, trimmed CUSIP and holds only resolved entries.
func (r *Resolver) ResolveBatch(ctx context.Context, cusips []string) map[string]string {
	resolved := make(map[string]string, len(cusips))

	pending := make([]string, 0, len(cusips))
	seen := make(map[string]bool, len(cusips))
	for _, raw := range cusips {
		cusip := normalize(raw)
		if cusip == "" || seen[cusip] {
			continue
		}
		seen[cusip] = true
		pending = append(pending, cusip)
	}

	for _, source := range r.sources {
		if len(pending) == 0 {
			break
		}

		found, err := source.Lookup(ctx, pending)
		if err != nil {
			r.log.Warn().
				Err(err).
				Str("source", source.Name()).
				Int("cusips", len(pending)).
				Msg("Ticker source failed, falling through")
			continue
		}

		remaining := pending[:0:0]
		for _, cusip := range pending {
			if ticker := strings.TrimSpace(found[cusip]); ticker != "" {
				resolved[cusip] = ticker
			} else {
				remaining = append(remaining, cusip)
			}
		}

		r.log.Debug().
			Str("source", source.Name()).
			Int("resolved", len(pending)-len(remaining)).
			Int("remaining", len(remaining)).
			Msg("Ticker source consulted")

		pending = remaining
	}

	return resolved
}

func normalize(cusip string) string {
	return strings.ToUpper(strings.TrimSpace(cusip))
}
