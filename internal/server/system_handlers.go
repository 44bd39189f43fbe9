package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/koforecast/internal/database"
	"github.com/aristath/koforecast/internal/scheduler"
)

// JobLister reports maintenance job status. Satisfied by *scheduler.Scheduler.
type JobLister interface {
	Status() []scheduler.JobStatus
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Workers       int     `json:"workers"`
	CPUCount      int     `json:"cpu_count"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	Goroutines    int     `json:"goroutines"`
	LastChecked   string  `json:"last_checked"`
}

// DatabaseStatsResponse is the body of GET /api/system/database
type DatabaseStatsResponse struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Healthy     bool            `json:"healthy"`
	Stats       *database.Stats `json:"stats,omitempty"`
	LastChecked string          `json:"last_checked"`
}

// SystemHandlers serves process and host status
type SystemHandlers struct {
	db        *database.DB
	jobs      JobLister
	workers   int
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers. db may be nil.
func NewSystemHandlers(db *database.DB, workers int, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:        db,
		workers:   workers,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// WithJobs attaches a job lister for GET /api/system/jobs.
func (h *SystemHandlers) WithJobs(jobs JobLister) *SystemHandlers {
	h.jobs = jobs
	return h
}

// HandleJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.writeJSON(w, http.StatusOK, []scheduler.JobStatus{})
		return
	}
	h.writeJSON(w, http.StatusOK, h.jobs.Status())
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent, memUsedMB := h.getSystemStats()

	cpuCount, err := cpu.Counts(true)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to count CPUs")
		cpuCount = runtime.NumCPU()
	}

	h.writeJSON(w, http.StatusOK, SystemStatusResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		Workers:       h.workers,
		CPUCount:      cpuCount,
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		MemoryUsedMB:  memUsedMB,
		Goroutines:    runtime.NumGoroutine(),
		LastChecked:   time.Now().Format(time.RFC3339),
	})
}

// HandleDatabaseStats handles GET /api/system/database
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no database configured"})
		return
	}

	resp := DatabaseStatsResponse{
		Name:        h.db.Name(),
		Path:        h.db.Path(),
		LastChecked: time.Now().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.db.HealthCheck(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Database health check failed")
	} else {
		resp.Healthy = true
	}

	stats, err := h.db.GetStats()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get database stats")
	}
	resp.Stats = stats

	h.writeJSON(w, http.StatusOK, resp)
}

// getSystemStats returns CPU usage, RAM usage and used RAM in MB.
// The CPU sample window is kept short so the endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64, float64) {
	cpuAvg := 0.0
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0, 0
	}

	return cpuAvg, memStat.UsedPercent, float64(memStat.Used) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
