package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/thirteenf/internal/domain"
	"github.com/aristath/thirteenf/internal/scheduler"
)

// CacheBackend reports which upstream cache is in use
type CacheBackend interface {
	Backend() string
}

// HealthChecker pings a backing store
type HealthChecker interface {
	QuickCheck(ctx context.Context) error
}

// JobRunner executes a job outside its schedule
type JobRunner interface {
	RunNow(job scheduler.Job) error
	IsRunning(name string) bool
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	GoVersion     string  `json:"go_version"`
	Goroutines    int     `json:"goroutines"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	RosterSize    int     `json:"roster_size"`
	CacheBackend  string  `json:"cache_backend"`
	ClientDataDB  string  `json:"client_data_db"`
}

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	roster    *domain.Roster
	cache     CacheBackend
	db        HealthChecker
	runner    JobRunner
	startedAt time.Time

	// cpuSampler and memSampler are swapped in tests
	cpuSampler func() (float64, error)
	memSampler func() (float64, error)

	jobsMu  sync.RWMutex
	jobs    map[string]scheduler.Job
	running map[string]*atomic.Bool
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, roster *domain.Roster, cache CacheBackend, db HealthChecker, runner JobRunner) *SystemHandlers {
	return &SystemHandlers{
		log:        log.With().Str("handler", "system").Logger(),
		roster:     roster,
		cache:      cache,
		db:         db,
		runner:     runner,
		startedAt:  time.Now(),
		cpuSampler: sampleCPU,
		memSampler: sampleMemory,
		jobs:       make(map[string]scheduler.Job),
		running:    make(map[string]*atomic.Bool),
	}
}

// SetJobs registers jobs that may be triggered by name. Nil jobs are skipped.
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	h.jobsMu.Lock()
	defer h.jobsMu.Unlock()
	for _, job := range jobs {
		if job != nil {
			h.jobs[job.Name()] = job
			if _, ok := h.running[job.Name()]; !ok {
				h.running[job.Name()] = new(atomic.Bool)
			}
		}
	}
}

// HandleSystemStatus returns process and host statistics
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
	}
	if h.roster != nil {
		response.RosterSize = h.roster.Len()
	}
	if h.cache != nil {
		response.CacheBackend = h.cache.Backend()
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.QuickCheck(ctx); err != nil {
			h.log.Warn().Err(err).Msg("client_data.db health check failed")
			response.Status = "degraded"
			response.ClientDataDB = "error"
		} else {
			response.ClientDataDB = "ok"
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerJob runs a registered job in the background. A job that is
// still running, manually or on its schedule, answers 409.
// POST /api/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.jobsMu.RLock()
	job, ok := h.jobs[name]
	running := h.running[name]
	h.jobsMu.RUnlock()

	if !ok || h.runner == nil {
		h.log.Warn().Str("job", name).Msg("Job not registered")
		h.writeJSON(w, http.StatusNotFound, map[string]string{
			"status":  "error",
			"message": "Job not registered: " + name,
		})
		return
	}

	if h.runner.IsRunning(name) || !running.CompareAndSwap(false, true) {
		h.log.Warn().Str("job", name).Msg("Job already running")
		h.writeJSON(w, http.StatusConflict, map[string]string{
			"status":  "error",
			"message": "Job already running: " + name,
		})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job triggered")

	go func() {
		defer running.Store(false)
		err := h.runner.RunNow(job)
		switch {
		case errors.Is(err, scheduler.ErrJobRunning):
			h.log.Warn().Str("job", name).Msg("Manual job skipped, scheduled run in flight")
		case err != nil:
			h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": "Job triggered: " + name,
	})
}

func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := h.cpuSampler()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = 0
	}

	memPercent, err := h.memSampler()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		memPercent = 0
	}

	return cpuPercent, memPercent
}

// sampleCPU averages all CPUs over 100ms
func sampleCPU() (float64, error) {
	percents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

func sampleMemory() (float64, error) {
	stat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return stat.UsedPercent, nil
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
