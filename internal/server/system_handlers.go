package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves process and host health information.
type SystemHandlers struct {
	dataDir string
	log     zerolog.Logger
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		dataDir: dataDir,
		log:     log.With().Str("handler", "system").Logger(),
	}
}

// systemStatusResponse is the /api/system/status payload.
type systemStatusResponse struct {
	UptimeSeconds  int64   `json:"uptime_seconds"`
	GoVersion      string  `json:"go_version"`
	NumGoroutines  int     `json:"num_goroutines"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemUsedPercent float64 `json:"mem_used_percent"`
	MemUsedMB      uint64  `json:"mem_used_mb"`
	DiskFreeGB     float64 `json:"disk_free_gb"`
}

// HandleSystemStatus serves GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := systemStatusResponse{
			UptimeSeconds: int64(time.Since(started).Seconds()),
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
		}

		// Host metrics are best-effort; a probe failure never fails the endpoint.
		if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
			resp.CPUPercent = percents[0]
		} else if err != nil {
			h.log.Debug().Err(err).Msg("CPU probe failed")
		}

		if vm, err := mem.VirtualMemory(); err == nil {
			resp.MemUsedPercent = vm.UsedPercent
			resp.MemUsedMB = vm.Used / 1024 / 1024
		}

		if usage, err := disk.Usage(h.dataDir); err == nil {
			resp.DiskFreeGB = float64(usage.Free) / 1024 / 1024 / 1024
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
