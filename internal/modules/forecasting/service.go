package forecasting

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/koforecast/internal/progress"
)

// Defaults are process-wide fallbacks applied to requests that leave the
// corresponding option unset.
type Defaults struct {
	Workers   int
	Threshold float64
	// Tolerance nil falls back to DefaultTolerance; zero disables early stopping.
	Tolerance *float64
}

// Request is one forecast request. Data rows are domain points, columns are
// time instants.
type Request struct {
	Data    [][]float64 `json:"data"`
	Options Options     `json:"options"`
}

// Service runs forecasts and records them.
type Service struct {
	repo     *Repository
	defaults Defaults
	log      zerolog.Logger
}

// NewService creates a forecasting service. repo may be nil, in which case
// runs are not persisted.
func NewService(repo *Repository, defaults Defaults, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		defaults: defaults,
		log:      log.With().Str("service", "forecasting").Logger(),
	}
}

// Forecast runs req and stores the result. cb, if non-nil, receives the
// cross-validation progress.
func (s *Service) Forecast(req Request, cb progress.Callback) (*Run, error) {
	data, err := DenseFromRows(req.Data)
	if err != nil {
		return nil, err
	}
	m, n := data.Dims()
	opts := s.applyDefaults(req.Options).WithDefaults(m, n)

	d := NewDispatcher(s.log)
	d.SetProgress(func(current, total int, message string) {
		s.log.Debug().
			Int("current", current).
			Int("total", total).
			Str("phase", message).
			Msg("Forecast progress")
		progress.Call(cb, current, total, message)
	})

	start := time.Now()
	out, err := d.Dispatch(data, opts)
	if err != nil {
		s.log.Warn().Err(err).Str("mode", string(opts.Mode())).Msg("Forecast failed")
		return nil, err
	}

	run := &Run{
		CreatedAt:  start,
		M:          m,
		N:          n,
		Mode:       out.Mode,
		Solver:     opts.Solver,
		Alpha:      out.Alpha,
		K:          out.K,
		DurationMs: time.Since(start).Milliseconds(),
		Options:    &opts,
		Output:     out,
	}
	if s.repo != nil {
		if err := s.repo.Create(run); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// Get returns a stored run.
func (s *Service) Get(id string) (*Run, error) {
	if s.repo == nil {
		return nil, ErrRunNotFound
	}
	return s.repo.Get(id)
}

// List returns recent run summaries.
func (s *Service) List(limit int) ([]Run, error) {
	if s.repo == nil {
		return []Run{}, nil
	}
	return s.repo.List(limit)
}

func (s *Service) applyDefaults(o Options) Options {
	if o.Workers == 0 {
		o.Workers = s.defaults.Workers
	}
	if o.Threshold == 0 {
		o.Threshold = s.defaults.Threshold
	}
	if o.Tolerance == nil && s.defaults.Tolerance != nil {
		tol := *s.defaults.Tolerance
		o.Tolerance = &tol
	}
	return o
}
