package forecasting

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Run is a stored forecast. List leaves Options and Output empty.
type Run struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	M          int       `json:"m"`
	N          int       `json:"n"`
	Mode       Mode      `json:"mode"`
	Solver     string    `json:"solver"`
	Alpha      float64   `json:"alpha"`
	K          int       `json:"k"`
	DurationMs int64     `json:"duration_ms"`
	Options    *Options  `json:"options,omitempty"`
	Output     *Output   `json:"output,omitempty"`
}

type runPayload struct {
	Options Options `msgpack:"options"`
	Output  *Output `msgpack:"output"`
}

// Repository persists forecast runs.
// Database: forecasts.db (forecast_runs table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new forecast run repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "forecast_runs").Logger(),
	}
}

// Create stores run, assigning an ID and creation time when unset.
func (r *Repository) Create(run *Run) error {
	if run.Options == nil || run.Output == nil {
		return fmt.Errorf("forecast run is missing options or output")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	payload, err := msgpack.Marshal(runPayload{Options: *run.Options, Output: run.Output})
	if err != nil {
		return fmt.Errorf("failed to encode forecast run: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO forecast_runs
		(id, created_at, m, n, mode, solver, alpha, k, duration_ms, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.CreatedAt.UnixMilli(),
		run.M,
		run.N,
		string(run.Mode),
		run.Solver,
		run.Alpha,
		run.K,
		run.DurationMs,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert forecast run: %w", err)
	}

	r.log.Debug().Str("id", run.ID).Str("mode", string(run.Mode)).Msg("Stored forecast run")
	return nil
}

// Get returns the full run with the given ID.
func (r *Repository) Get(id string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT id, created_at, m, n, mode, solver, alpha, k, duration_ms, payload
		FROM forecast_runs
		WHERE id = ?
	`, id)

	var payload []byte
	run, err := scanRun(row, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get forecast run: %w", err)
	}

	var p runPayload
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode forecast run %s: %w", id, err)
	}
	run.Options = &p.Options
	run.Output = p.Output
	return run, nil
}

// List returns up to limit run summaries, newest first.
func (r *Repository) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, created_at, m, n, mode, solver, alpha, k, duration_ms, NULL
		FROM forecast_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecast runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var payload []byte
		run, err := scanRun(rows, &payload)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forecast run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forecast runs: %w", err)
	}
	return runs, nil
}

// DeleteOlderThan removes runs created before cutoff and returns how many went.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM forecast_runs WHERE created_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old forecast runs: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner, payload *[]byte) (*Run, error) {
	var (
		run       Run
		createdAt int64
		mode      string
	)
	err := s.Scan(
		&run.ID,
		&createdAt,
		&run.M,
		&run.N,
		&mode,
		&run.Solver,
		&run.Alpha,
		&run.K,
		&run.DurationMs,
		payload,
	)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.UnixMilli(createdAt)
	run.Mode = Mode(mode)
	return &run, nil
}
