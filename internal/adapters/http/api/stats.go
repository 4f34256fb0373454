package api

import (
	"net/http"
	"runtime"
	"time"
)

// StatsProvider reports service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves service statistics alongside process details.
type StatsHandler struct {
	provider StatsProvider
	started  time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, started: time.Now()}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := map[string]any{}
	if h.provider != nil {
		for k, v := range h.provider.GetStats() {
			stats[k] = v
		}
	}
	stats["uptimeSeconds"] = int64(time.Since(h.started).Seconds())
	stats["goroutines"] = runtime.NumGoroutine()
	writeJSON(w, http.StatusOK, stats)
}
