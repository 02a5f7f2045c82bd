package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/grainwise/grainwise/internal/database"
	"github.com/grainwise/grainwise/internal/markethours"
	"github.com/grainwise/grainwise/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves health, system status and manual job triggers.
type SystemHandlers struct {
	log         zerolog.Logger
	databases   []*database.DB
	marketHours *markethours.Service
	scheduler   *scheduler.Scheduler
	jobs        map[string]scheduler.Job
	startedAt   time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(databases []*database.DB, marketHours *markethours.Service, sched *scheduler.Scheduler, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		databases:   databases,
		marketHours: marketHours,
		scheduler:   sched,
		jobs:        make(map[string]scheduler.Job),
		startedAt:   time.Now(),
	}
}

// RegisterJob makes a job available for manual triggering.
// Called after jobs are registered in main.go.
func (h *SystemHandlers) RegisterJob(job scheduler.Job) {
	h.jobs[job.Name()] = job
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status    string            `json:"status"`
	Uptime    string            `json:"uptime"`
	Databases map[string]string `json:"databases"`
}

// HandleHealth handles GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	dbStatus := make(map[string]string, len(h.databases))
	for _, db := range h.databases {
		if err := db.HealthCheck(ctx); err != nil {
			dbStatus[db.Name()] = err.Error()
			status = "degraded"
		} else {
			dbStatus[db.Name()] = "ok"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    status,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Databases: dbStatus,
	})
}

// SystemStatusResponse is the /api/system/status payload.
type SystemStatusResponse struct {
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float64 `json:"ram_percent"`
	MarketOpen    bool    `json:"market_open"`
	Jobs          int     `json:"jobs"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	h.writeJSON(w, SystemStatusResponse{
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		MarketOpen:    h.marketHours.IsMarketOpen(time.Now()),
		Jobs:          len(h.jobs),
	})
}

// MarketStatusResponse is the /api/system/market payload.
type MarketStatusResponse struct {
	IsOpen   bool   `json:"is_open"`
	NextOpen string `json:"next_open,omitempty"`
	Checked  string `json:"checked"`
}

// HandleMarketStatus handles GET /api/system/market
func (h *SystemHandlers) HandleMarketStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	resp := MarketStatusResponse{
		IsOpen:  h.marketHours.IsMarketOpen(now),
		Checked: now.Format(time.RFC3339),
	}
	if !resp.IsOpen {
		resp.NextOpen = h.marketHours.NextOpen(now).Format(time.RFC3339)
	}
	h.writeJSON(w, resp)
}

// DBInfo describes one database file.
type DBInfo struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	SizeMB  float64 `json:"size_mb"`
	Profile string  `json:"profile"`
}

// HandleDatabaseStats handles GET /api/system/databases
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	infos := make([]DBInfo, 0, len(h.databases))
	for _, db := range h.databases {
		info := DBInfo{
			Name:    db.Name(),
			Path:    db.Path(),
			Profile: string(db.Profile()),
		}
		if stat, err := os.Stat(db.Path()); err == nil {
			info.SizeMB = float64(stat.Size()) / 1024 / 1024
		}
		infos = append(infos, info)
	}
	h.writeJSON(w, infos)
}

// HandleTriggerJob handles POST /api/jobs/{name}/trigger
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	job, ok := h.jobs[name]
	if !ok {
		http.Error(w, "Unknown job: "+name, http.StatusNotFound)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")
	if err := h.scheduler.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{
		"status": "success",
		"job":    name,
	})
}

// getSystemStats reads CPU and RAM usage. The 100ms sampling interval
// keeps the status endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
