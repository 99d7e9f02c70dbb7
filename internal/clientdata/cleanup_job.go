package clientdata

import (
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob purges OpenFIGI mappings that have been expired for longer than
// the stale retention window. Newer expired rows are kept for the client's
// stale fallback.
type CleanupJob struct {
	repo      *Repository
	retention time.Duration
	log       zerolog.Logger
}

// NewCleanupJob creates a cleanup job that keeps expired rows for StaleRetention.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:      repo,
		retention: StaleRetention,
		log:       log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run purges rows past retention and reports what the mapping cache still holds.
func (j *CleanupJob) Run() error {
	purged, err := j.repo.DeleteAllExpired(j.retention)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to purge expired mappings")
		return err
	}

	stats, err := j.repo.Stats(TableOpenFIGI)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to count cached mappings")
		return err
	}

	j.log.Info().
		Int64("purged", purged[TableOpenFIGI]).
		Int64("fresh", stats.Fresh).
		Int64("stale", stats.Stale).
		Dur("stale_retention", j.retention).
		Msg("OpenFIGI mapping cache cleaned")

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
