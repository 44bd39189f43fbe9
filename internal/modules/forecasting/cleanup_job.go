package forecasting

import (
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob removes forecast runs older than the retention period.
// It should be scheduled to run daily.
type CleanupJob struct {
	repo      *Repository
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewCleanupJob creates a new run retention job.
func NewCleanupJob(repo *Repository, retention time.Duration, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:      repo,
		retention: retention,
		now:       time.Now,
		log:       log.With().Str("job", "forecast_run_cleanup").Logger(),
	}
}

// Run deletes every run created before now minus the retention period.
// A zero retention keeps everything.
func (j *CleanupJob) Run() error {
	if j.retention <= 0 {
		return nil
	}

	deleted, err := j.repo.DeleteOlderThan(j.now().Add(-j.retention))
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete old forecast runs")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Dur("retention", j.retention).
			Msg("Forecast run cleanup completed")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "forecast_run_cleanup"
}
