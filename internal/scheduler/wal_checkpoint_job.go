package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/koforecast/internal/database"
)

// WALCheckpointJob truncates the WAL of each registered database so long-lived
// run history does not leave an ever-growing -wal file behind.
type WALCheckpointJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates a checkpoint job over dbs. Nil entries are skipped.
func NewWALCheckpointJob(log zerolog.Logger, dbs ...*database.DB) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: dbs,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints every database. Failures are logged and the remaining
// databases are still processed; the last error is returned.
func (j *WALCheckpointJob) Run() error {
	var lastErr error
	checked := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			lastErr = err
			continue
		}
		checked++
	}

	j.log.Debug().Int("databases", checked).Msg("WAL checkpoint completed")
	return lastErr
}
