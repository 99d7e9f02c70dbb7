package di

import (
	"github.com/aristath/thirteenf/internal/cache"
	"github.com/aristath/thirteenf/internal/clientdata"
	"github.com/aristath/thirteenf/internal/clients/edgar"
	"github.com/aristath/thirteenf/internal/clients/openfigi"
	"github.com/aristath/thirteenf/internal/database"
	"github.com/aristath/thirteenf/internal/domain"
	"github.com/aristath/thirteenf/internal/modules/filings"
	"github.com/aristath/thirteenf/internal/modules/holdings"
	"github.com/aristath/thirteenf/internal/modules/portfolio"
	"github.com/aristath/thirteenf/internal/modules/tickers"
	"github.com/aristath/thirteenf/internal/scheduler"
)

// Container holds all application dependencies
// This is the single source of truth for all services, repositories, and clients
type Container struct {
	// Storage
	ClientDataDB   *database.DB
	ClientDataRepo *clientdata.Repository
	ResponseCache  cache.Cache

	// Clients
	EDGARClient    *edgar.Client
	OpenFIGIClient *openfigi.Client

	// Pipeline
	Roster          *domain.Roster
	FilingResolver  *filings.Resolver
	DocumentLocator *filings.Locator
	HoldingsParser  *holdings.Parser
	TickerResolver  *tickers.Resolver

	// Services
	PortfolioService *portfolio.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds references to registered jobs for manual triggering
type JobInstances struct {
	ClientDataCleanup scheduler.Job
	PortfolioWarmup   scheduler.Job
}

// Close releases the cache and database connections.
func (c *Container) Close() error {
	var firstErr error
	if c.ResponseCache != nil {
		if err := c.ResponseCache.Close(); err != nil {
			firstErr = err
		}
	}
	if c.ClientDataDB != nil {
		if err := c.ClientDataDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
