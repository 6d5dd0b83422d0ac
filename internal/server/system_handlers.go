package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/clientdata"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/database"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// DatabaseStatter reports on-disk statistics and integrity of one database
type DatabaseStatter interface {
	GetStats(ctx context.Context) (*database.Stats, error)
	QuickCheck(ctx context.Context) error
}

// CacheStatter reports fresh/expired row counts of the provider cache
type CacheStatter interface {
	Stats(ctx context.Context) ([]clientdata.TableStats, error)
}

// JobLister lists scheduled jobs
type JobLister interface {
	Jobs() []scheduler.JobStatus
}

// SnapshotCounter counts stored audit snapshots
type SnapshotCounter interface {
	Count(ctx context.Context) (int, error)
}

// SystemHandlersConfig wires the status sources. Every source is optional.
type SystemHandlersConfig struct {
	Log          zerolog.Logger
	ModelVersion string
	StartedAt    time.Time
	Databases    []DatabaseStatter
	Cache        CacheStatter
	Jobs         JobLister
	Snapshots    SnapshotCounter
}

// SystemHandlers serves health and runtime status
type SystemHandlers struct {
	log          zerolog.Logger
	modelVersion string
	startedAt    time.Time
	databases    []DatabaseStatter
	cache        CacheStatter
	jobs         JobLister
	snapshots    SnapshotCounter
	sampleWindow time.Duration
}

// NewSystemHandlers creates the system status handlers
func NewSystemHandlers(cfg SystemHandlersConfig) *SystemHandlers {
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	return &SystemHandlers{
		log:          cfg.Log.With().Str("handler", "system").Logger(),
		modelVersion: cfg.ModelVersion,
		startedAt:    startedAt,
		databases:    cfg.Databases,
		cache:        cfg.Cache,
		jobs:         cfg.Jobs,
		snapshots:    cfg.Snapshots,
		sampleWindow: 100 * time.Millisecond,
	}
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string                  `json:"status"`
	ModelVersion  string                  `json:"model_version,omitempty"`
	StartedAt     time.Time               `json:"started_at"`
	UptimeSeconds float64                 `json:"uptime_seconds"`
	CPUPercent    float64                 `json:"cpu_percent"`
	MemoryPercent float64                 `json:"memory_percent"`
	Databases     []database.Stats        `json:"databases"`
	CacheTables   []clientdata.TableStats `json:"cache_tables"`
	SnapshotCount *int                    `json:"snapshot_count,omitempty"`
	Jobs          []scheduler.JobStatus   `json:"jobs"`
	Errors        []string                `json:"errors,omitempty"`
}

// HandleSystemStatus reports uptime, host load, database integrity and cache state.
// Sources that fail are listed under errors and the status becomes "degraded".
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := SystemStatusResponse{
		Status:        "ok",
		ModelVersion:  h.modelVersion,
		StartedAt:     h.startedAt.UTC(),
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		Databases:     []database.Stats{},
		CacheTables:   []clientdata.TableStats{},
		Jobs:          h.listJobs(),
	}
	resp.CPUPercent, resp.MemoryPercent = h.getSystemStats()

	for _, db := range h.databases {
		if err := db.QuickCheck(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Database integrity check failed")
			resp.Errors = append(resp.Errors, err.Error())
		}
		stats, err := db.GetStats(ctx)
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to read database stats")
			resp.Errors = append(resp.Errors, err.Error())
			continue
		}
		resp.Databases = append(resp.Databases, *stats)
	}

	if h.cache != nil {
		tables, err := h.cache.Stats(ctx)
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to read cache stats")
			resp.Errors = append(resp.Errors, err.Error())
		} else {
			resp.CacheTables = tables
		}
	}

	if h.snapshots != nil {
		n, err := h.snapshots.Count(ctx)
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to count analysis snapshots")
			resp.Errors = append(resp.Errors, err.Error())
		} else {
			resp.SnapshotCount = &n
		}
	}

	if len(resp.Errors) > 0 {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, h.log, map[string]interface{}{
		"data": resp,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleJobs lists scheduled jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.log, map[string]interface{}{
		"data": h.listJobs(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *SystemHandlers) listJobs() []scheduler.JobStatus {
	if h.jobs == nil {
		return []scheduler.JobStatus{}
	}
	jobs := h.jobs.Jobs()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// getSystemStats samples CPU over a short window and reads RAM usage
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuAvg := 0.0
	cpuPercent, err := cpu.Percent(h.sampleWindow, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0
	}
	return cpuAvg, memStat.UsedPercent
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.log, map[string]interface{}{
		"status":  "healthy",
		"service": "rebalancer",
	})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, log zerolog.Logger, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
