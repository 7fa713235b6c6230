package api

import (
	"github.com/shaiso/Tranche/internal/domain"
	"github.com/shaiso/Tranche/internal/worker"
)

// StatusResponse — ответ /api/v1/status.
type StatusResponse struct {
	InstanceIndex   int           `json:"instance_index"`
	StoreTarget     string        `json:"store_target"`
	StoreReachable  bool          `json:"store_reachable"`
	StoreError      string        `json:"store_error,omitempty"`
	LoopState       worker.State  `json:"loop_state"`
	Stats           *worker.Stats `json:"stats,omitempty"`
	EventsConnected *bool         `json:"events_connected,omitempty"`
}

// TaskStatsResponse — ответ /api/v1/tasks/stats.
type TaskStatsResponse struct {
	Counts map[domain.TaskStatus]int `json:"counts"`
	Total  int                       `json:"total"`
}

// TaskStatsFromCounts заполняет нулями отсутствующие статусы и считает итог.
func TaskStatsFromCounts(counts map[domain.TaskStatus]int) TaskStatsResponse {
	resp := TaskStatsResponse{Counts: make(map[domain.TaskStatus]int, len(domain.AllTaskStatuses))}
	for _, s := range domain.AllTaskStatuses {
		resp.Counts[s] = 0
	}
	for s, n := range counts {
		resp.Counts[s] = n
		resp.Total += n
	}
	return resp
}
