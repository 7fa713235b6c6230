package worker

import "sync/atomic"

// State — состояние цикла обработки.
//
//	RECLAIMING → SELECTING → SLEEPING_IDLE
//	                       ↘ CLAIMING → PROCESSING → FINALIZING → ... → BATCH_SLEEP
//
// BACKOFF — пауза после ошибки итерации, STOPPED — цикл завершён по ctx.
type State string

const (
	StateIdle         State = "IDLE"
	StateReclaiming   State = "RECLAIMING"
	StateSelecting    State = "SELECTING"
	StateSleepingIdle State = "SLEEPING_IDLE"
	StateClaiming     State = "CLAIMING"
	StateProcessing   State = "PROCESSING"
	StateFinalizing   State = "FINALIZING"
	StateBatchSleep   State = "BATCH_SLEEP"
	StateBackoff      State = "BACKOFF"
	StateStopped      State = "STOPPED"
)

// Stats — счётчики экземпляра с момента старта.
type Stats struct {
	Iterations     int64 `json:"iterations"`
	Claimed        int64 `json:"claimed"`
	Succeeded      int64 `json:"succeeded"`
	Failed         int64 `json:"failed"`
	Reclaimed      int64 `json:"reclaimed"`
	ClaimConflicts int64 `json:"claim_conflicts"`
	Errors         int64 `json:"errors"`
}

type counters struct {
	iterations     atomic.Int64
	claimed        atomic.Int64
	succeeded      atomic.Int64
	failed         atomic.Int64
	reclaimed      atomic.Int64
	claimConflicts atomic.Int64
	errors         atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Iterations:     c.iterations.Load(),
		Claimed:        c.claimed.Load(),
		Succeeded:      c.succeeded.Load(),
		Failed:         c.failed.Load(),
		Reclaimed:      c.reclaimed.Load(),
		ClaimConflicts: c.claimConflicts.Load(),
		Errors:         c.errors.Load(),
	}
}
