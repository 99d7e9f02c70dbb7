// Package portfolio builds the equal-weighted model portfolio from the roster's 13F filings
// and serves the single-manager holdings view.
package portfolio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aristath/thirteenf/internal/domain"
	"github.com/aristath/thirteenf/internal/modules/holdings"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service orchestrates the 13F retrieval pipeline across the roster.
//
// Responsibilities:
//   - Fan out one pipeline per manager (resolve filing, locate document, fetch, parse)
//   - Pick each manager's largest holding, then resolve all pick tickers in one batch
//   - De-duplicate, equal-weight and account for failed managers
//   - Serve the full holdings list of a single manager
//
// Dependencies:
//   - domain.Roster: immutable list of tracked managers, in pick order
//   - Pipeline: filing resolver, document locator, fetcher, parser, ticker resolver
//
// A failure in one manager's pipeline never affects the others; it is logged and
// the manager contributes no pick.
type Service struct {
	roster   *domain.Roster
	pipeline Pipeline
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a new portfolio service.
func NewService(roster *domain.Roster, pipeline Pipeline, log zerolog.Logger) *Service {
	return &Service{
		roster:   roster,
		pipeline: pipeline,
		now:      time.Now,
		log:      log.With().Str("service", "portfolio").Logger(),
	}
}

// Roster returns the managers the service aggregates over.
func (s *Service) Roster() *domain.Roster {
	return s.roster
}

// managerResult is one slot of the positional fan-out result.
type managerResult struct {
	pick *domain.PortfolioPick
	err  error
}

// BuildPortfolio aggregates the top holding of every roster manager.
// It fails only when ctx is already done or the build itself panics;
// per-manager failures reduce SuccessRate instead.
func (s *Service) BuildPortfolio(ctx context.Context, dedupe bool) (resp *domain.PortfolioResponse, err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("portfolio build not started: %w", err)
	}

	log := s.log.With().Str("run_id", uuid.NewString()).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Portfolio build panicked")
			resp, err = nil, fmt.Errorf("portfolio build panicked: %v", r)
		}
	}()

	managers := s.roster.Managers()
	started := s.now()
	log.Info().Int("managers", len(managers)).Bool("dedupe", dedupe).Msg("Building portfolio")

	results := make([]managerResult, len(managers))
	var wg sync.WaitGroup
	for i, m := range managers {
		wg.Add(1)
		go func(i int, m domain.Manager) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = managerResult{err: fmt.Errorf("pipeline panicked: %v", r)}
				}
			}()
			pick, err := s.buildPick(ctx, m)
			results[i] = managerResult{pick: pick, err: err}
		}(i, m)
	}
	wg.Wait()

	picks := make([]domain.PortfolioPick, 0, len(managers))
	for i, result := range results {
		m := managers[i]
		switch {
		case result.err != nil:
			log.Warn().
				Err(result.err).
				Str("manager", m.Slug).
				Str("cik", m.CIK).
				Bool("not_found", domain.IsNotFound(result.err)).
				Msg("Manager produced no pick")
		case result.pick == nil:
			log.Warn().
				Str("manager", m.Slug).
				Str("cik", m.CIK).
				Msg("No holdings found")
		default:
			picks = append(picks, *result.pick)
		}
	}

	s.resolvePickTickers(ctx, picks)

	produced := len(picks)
	if float64(produced) < float64(len(managers))*0.5 {
		log.Warn().
			Int("picks", produced).
			Int("managers", len(managers)).
			Msg("Fewer than half of the managers returned data")
	}

	if dedupe {
		picks = Dedupe(picks)
		if len(picks) < produced {
			log.Info().
				Int("before", produced).
				Int("after", len(picks)).
				Msg("De-duplication reduced the portfolio")
		}
	}

	resp = &domain.PortfolioResponse{
		UpdatedAt:         s.now().UTC(),
		Count:             len(picks),
		WeightPerPosition: EqualWeight(len(picks)),
		Picks:             picks,
	}
	if len(managers) > 0 {
		resp.SuccessRate = float64(produced) / float64(len(managers))
	}

	log.Info().
		Int("count", resp.Count).
		Float64("success_rate", resp.SuccessRate).
		Dur("elapsed", s.now().Sub(started)).
		Msg("Portfolio built")

	return resp, nil
}

// buildPick runs one manager's pipeline. A nil pick with nil error means the
// filing had no holdings.
func (s *Service) buildPick(ctx context.Context, m domain.Manager) (*domain.PortfolioPick, error) {
	ref, _, list, err := s.latestHoldings(ctx, m.CIK)
	if err != nil {
		return nil, err
	}

	top, ok := holdings.TopHolding(list)
	if !ok {
		return nil, nil
	}

	return &domain.PortfolioPick{
		Manager:     m.Name,
		ManagerSlug: m.Slug,
		CIK:         m.CIK,
		ReportDate:  ref.ReportDate,
		Accession:   ref.Accession,
		CUSIP:       top.CUSIP,
		Name:        top.NameOfIssuer,
		ValueK:      top.Value,
		Shares:      top.Shares,
	}, nil
}

// resolvePickTickers fills every pick's ticker from one batch lookup.
func (s *Service) resolvePickTickers(ctx context.Context, picks []domain.PortfolioPick) {
	if len(picks) == 0 {
		return
	}
	cusips := make([]string, len(picks))
	for i, p := range picks {
		cusips[i] = p.CUSIP
	}
	resolved := s.pipeline.Tickers.ResolveBatch(ctx, cusips)
	for i := range picks {
		picks[i].Ticker = resolved[tickerKey(picks[i].CUSIP)]
	}
}

// tickerKey matches the keys returned by TickerResolver.ResolveBatch.
func tickerKey(cusip string) string {
	return strings.ToUpper(strings.TrimSpace(cusip))
}

// GetManagerHoldings returns the full holdings of the latest filing of a 10-digit CIK.
// With resolveTickers, every holding's ticker is resolved in one batch.
// Errors keep their type: *domain.NotFoundError when no filing or document exists.
func (s *Service) GetManagerHoldings(ctx context.Context, cik10 string, resolveTickers bool) (*domain.ManagerHoldingsResponse, error) {
	ref, infoURL, list, err := s.latestHoldings(ctx, cik10)
	if err != nil {
		return nil, err
	}

	if resolveTickers && len(list) > 0 {
		cusips := make([]string, len(list))
		for i, h := range list {
			cusips[i] = h.CUSIP
		}
		resolved := s.pipeline.Tickers.ResolveBatch(ctx, cusips)
		for i := range list {
			list[i].Ticker = resolved[tickerKey(list[i].CUSIP)]
		}
	}

	resp := &domain.ManagerHoldingsResponse{
		CIK:        cik10,
		ReportDate: ref.ReportDate,
		FilingDate: ref.FilingDate,
		Accession:  ref.Accession,
		InfoURL:    infoURL,
		Holdings:   list,
		Summary:    holdings.Summarize(list),
	}
	if m, ok := s.roster.ByCIK(cik10); ok {
		resp.Manager = m.Name
	}

	return resp, nil
}

// latestHoldings runs filing resolution, document location, fetch and parse.
func (s *Service) latestHoldings(ctx context.Context, cik10 string) (domain.FilingReference, string, []domain.Holding, error) {
	ref, err := s.pipeline.Filings.ResolveLatestFiling(ctx, cik10)
	if err != nil {
		return domain.FilingReference{}, "", nil, err
	}

	infoURL, err := s.pipeline.Locator.LocateInfoTable(ctx, ref.CIKNoLead, ref.AccessionNo)
	if err != nil {
		return ref, "", nil, err
	}

	body, err := s.pipeline.Fetcher.FetchDocument(ctx, infoURL)
	if err != nil {
		return ref, infoURL, nil, fmt.Errorf("failed to fetch information table: %w", err)
	}

	list := s.pipeline.Parser.Parse(body)
	s.log.Debug().
		Str("cik", cik10).
		Str("accession", ref.Accession).
		Int("holdings", len(list)).
		Msg("Parsed information table")

	return ref, infoURL, list, nil
}

// Dedupe drops picks whose key (ticker, else CUSIP, upper-cased) was already seen.
// Order is preserved.
func Dedupe(picks []domain.PortfolioPick) []domain.PortfolioPick {
	seen := make(map[string]bool, len(picks))
	out := make([]domain.PortfolioPick, 0, len(picks))
	for _, p := range picks {
		key := p.DedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// EqualWeight returns 1/count, or 0 for an empty portfolio.
func EqualWeight(count int) float64 {
	if count == 0 {
		return 0
	}
	return 1 / float64(count)
}
