package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is the resource snapshot reported by /health
type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Goroutines    int     `json:"goroutines"`
}

// StatsFunc samples host resource usage
type StatsFunc func() (HostStats, error)

// hostStats samples CPU over 100ms so the health check stays fast
func hostStats() (HostStats, error) {
	stats := HostStats{Goroutines: runtime.NumGoroutine()}

	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return stats, err
	}
	if len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		return stats, err
	}
	stats.MemoryPercent = memStat.UsedPercent

	return stats, nil
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get system statistics")
	}

	response := map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"service": "qpricing-estimator",
		"backend": s.estimator.Name(),
		"system":  stats,
	}

	if s.journal != nil {
		journal := "ok"
		if err := s.journal(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("Run journal health check failed")
			journal = "unavailable"
		}
		response["journal"] = journal
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
