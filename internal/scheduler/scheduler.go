// Package scheduler runs maintenance jobs (run-history pruning, WAL
// checkpoints) on cron schedules and keeps a per-job record of how the last
// execution went.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a unit of maintenance work.
type Job interface {
	Run() error
	Name() string
}

// JobStatus reports the schedule and most recent outcome of a job.
type JobStatus struct {
	Name         string        `json:"name"`
	Schedule     string        `json:"schedule,omitempty"`
	NextRun      time.Time     `json:"next_run,omitempty"`
	LastRun      time.Time     `json:"last_run,omitempty"`
	LastDuration time.Duration `json:"last_duration_ns"`
	LastError    string        `json:"last_error,omitempty"`
	Runs         int           `json:"runs"`
	Failures     int           `json:"failures"`
}

type jobRecord struct {
	status  JobStatus
	entryID cron.EntryID
}

// Scheduler owns the cron runner and the per-job bookkeeping.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
	now  func() time.Time

	mu   sync.Mutex
	jobs map[string]*jobRecord
}

// New creates a scheduler whose specs accept an optional seconds field.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
		log:  log.With().Str("component", "scheduler").Logger(),
		now:  time.Now,
		jobs: make(map[string]*jobRecord),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", s.Entries()).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers job under schedule. Job names are unique; registering a
// second job with the same name is rejected.
//
//	"0 */5 * * * *"  every 5 minutes
//	"*/10 * * * *"   every 10 minutes (seconds field omitted)
//	"@every 30s"     every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.Name()]; ok {
		return &DuplicateJobError{Name: job.Name()}
	}

	id, err := s.cron.AddFunc(schedule, func() { _ = s.execute(job) })
	if err != nil {
		return err
	}
	s.jobs[job.Name()] = &jobRecord{
		status:  JobStatus{Name: job.Name(), Schedule: schedule},
		entryID: id,
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// RunNow executes job immediately, outside its schedule. The outcome is
// recorded the same way a scheduled run would be.
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.execute(job)
}

// Status returns a snapshot of every job that has been registered or run,
// sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, rec := range s.jobs {
		st := rec.status
		if rec.entryID != 0 {
			st.NextRun = s.cron.Entry(rec.entryID).Next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) execute(job Job) error {
	start := s.now()
	err := job.Run()
	elapsed := s.now().Sub(start)

	s.record(job.Name(), start, elapsed, err)

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Dur("duration", elapsed).
			Msg("Job failed")
		return err
	}
	s.log.Debug().
		Str("job", job.Name()).
		Dur("duration", elapsed).
		Msg("Job completed")
	return nil
}

func (s *Scheduler) record(name string, start time.Time, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[name]
	if !ok {
		rec = &jobRecord{status: JobStatus{Name: name}}
		s.jobs[name] = rec
	}
	rec.status.Runs++
	rec.status.LastRun = start
	rec.status.LastDuration = elapsed
	rec.status.LastError = ""
	if err != nil {
		rec.status.Failures++
		rec.status.LastError = err.Error()
	}
}

// DuplicateJobError is returned when a job name is registered twice.
type DuplicateJobError struct {
	Name string
}

func (e *DuplicateJobError) Error() string {
	return "scheduler: job " + e.Name + " already registered"
}
