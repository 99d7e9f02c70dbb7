package di

import (
	"fmt"

	"github.com/aristath/thirteenf/internal/clients/edgar"
	"github.com/aristath/thirteenf/internal/clients/openfigi"
	"github.com/aristath/thirteenf/internal/config"
	"github.com/aristath/thirteenf/internal/domain"
	"github.com/aristath/thirteenf/internal/modules/filings"
	"github.com/aristath/thirteenf/internal/modules/holdings"
	"github.com/aristath/thirteenf/internal/modules/portfolio"
	"github.com/aristath/thirteenf/internal/modules/tickers"
	"github.com/rs/zerolog"
)

// InitializeServices creates the clients, pipeline stages and the portfolio service
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	roster := domain.DefaultRoster()
	if cfg.RosterFile != "" {
		loaded, err := domain.LoadRosterFile(cfg.RosterFile)
		if err != nil {
			return fmt.Errorf("failed to load roster: %w", err)
		}
		roster = loaded
		log.Info().Str("file", cfg.RosterFile).Int("managers", roster.Len()).Msg("Loaded roster file")
	}
	container.Roster = roster

	container.EDGARClient = edgar.NewClient(edgar.Config{
		UserAgent:          cfg.SECUserAgent,
		Timeout:            cfg.SECRequestTimeout,
		MinRequestInterval: cfg.SECMinRequestInterval,
		CacheTTL:           cfg.SECCacheTTL,
	}, container.ResponseCache, log)

	container.OpenFIGIClient = openfigi.NewClient(
		cfg.OpenFIGIAPIKey,
		cfg.OpenFIGIRequestTimeout,
		container.ClientDataRepo,
		log,
	)

	container.FilingResolver = filings.NewResolver(container.EDGARClient, log)
	container.DocumentLocator = filings.NewLocator(container.EDGARClient, log)
	container.HoldingsParser = holdings.NewParser(log)

	// OpenFIGI first, static table second
	container.TickerResolver = tickers.NewResolver(log,
		tickers.NewOpenFIGISource(container.OpenFIGIClient),
		tickers.NewStaticSource(nil),
	)

	container.PortfolioService = portfolio.NewService(roster, portfolio.Pipeline{
		Filings: container.FilingResolver,
		Locator: container.DocumentLocator,
		Fetcher: container.EDGARClient,
		Parser:  container.HoldingsParser,
		Tickers: container.TickerResolver,
	}, log)

	log.Info().
		Int("managers", roster.Len()).
		Bool("openfigi_api_key", cfg.OpenFIGIAPIKey != "").
		Msg("Services initialized")

	return nil
}
