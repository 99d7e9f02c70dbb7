package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/thirteenf/internal/domain"
	"github.com/rs/zerolog"
)

// PortfolioBuilder builds the model portfolio.
type PortfolioBuilder interface {
	BuildPortfolio(ctx context.Context, dedupe bool) (*domain.PortfolioResponse, error)
}

// PortfolioWarmupJob builds the portfolio once so EDGAR and OpenFIGI caches
// are primed before users ask for it.
type PortfolioWarmupJob struct {
	builder PortfolioBuilder
	timeout time.Duration
	log     zerolog.Logger
}

// NewPortfolioWarmupJob creates a new warm-up job. timeout bounds one build.
func NewPortfolioWarmupJob(builder PortfolioBuilder, timeout time.Duration, log zerolog.Logger) *PortfolioWarmupJob {
	return &PortfolioWarmupJob{
		builder: builder,
		timeout: timeout,
		log:     log.With().Str("job", "portfolio_warmup").Logger(),
	}
}

// Run builds the portfolio and logs the outcome.
func (j *PortfolioWarmupJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	resp, err := j.builder.BuildPortfolio(ctx, false)
	if err != nil {
		return fmt.Errorf("portfolio warm-up failed: %w", err)
	}

	j.log.Info().
		Int("count", resp.Count).
		Float64("success_rate", resp.SuccessRate).
		Msg("Portfolio caches warmed")

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *PortfolioWarmupJob) Name() string {
	return "portfolio_warmup"
}
