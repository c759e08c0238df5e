package app

import (
	"sync"
	"time"

	"cart-enricher/internal/batch"
)

// runTracker remembers the outcome of the latest batch run for /health
type runTracker struct {
	mu       sync.RWMutex
	summary  batch.Summary
	err      error
	finished time.Time
	runs     int
}

func (t *runTracker) record(summary batch.Summary, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary = summary
	t.err = err
	t.finished = time.Now()
	t.runs++
}

// LastRun reports the latest run, or nil before the first one finishes
func (t *runTracker) LastRun() map[string]interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.runs == 0 {
		return nil
	}

	report := map[string]interface{}{
		"run_id":      t.summary.RunID,
		"finished_at": t.finished.UTC().Format(time.RFC3339),
		"duration":    t.summary.Duration.String(),
		"pages":       t.summary.Pages,
		"fetched":     t.summary.Fetched,
		"enriched":    t.summary.Enriched,
		"skipped":     t.summary.Skipped,
		"written":     t.summary.Written,
		"total_runs":  t.runs,
		"status":      "success",
	}
	if t.err != nil {
		report["status"] = "failed"
		report["error"] = t.err.Error()
	}
	return report
}
