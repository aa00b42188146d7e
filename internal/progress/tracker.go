package progress

import "math"

// DefaultSecondsPerItem is the fixed per-action estimate used for ETA.
// A deliberate simplification: measured throughput would need mutable
// run-record state written from the hot path.
const DefaultSecondsPerItem = 30

// RunStore persists progress snapshots onto the run record
type RunStore interface {
	UpdateRunProgress(handle string, processedItems, currentBatch, progressPercentage, etaSeconds int) error
}

// Snapshot is one persisted progress observation
type Snapshot struct {
	ProcessedItems     int `json:"processed_items"`
	TotalItems         int `json:"total_items"`
	CurrentBatch       int `json:"current_batch"`
	TotalBatches       int `json:"total_batches"`
	ProgressPercentage int `json:"progress_percentage"`
	ETASeconds         int `json:"eta_seconds"`
}

// Tracker computes and persists run progress. Callers must invoke Record once
// per completed batch from a single coordinating goroutine; parallel item
// workers writing progress directly would race on the run record.
type Tracker struct {
	store          RunStore
	secondsPerItem int
}

// NewTracker creates a tracker. secondsPerItem <= 0 selects the default.
func NewTracker(store RunStore, secondsPerItem int) *Tracker {
	if secondsPerItem <= 0 {
		secondsPerItem = DefaultSecondsPerItem
	}
	return &Tracker{store: store, secondsPerItem: secondsPerItem}
}

// Percentage returns round(processed/total*100), clamped to [0,100]
func Percentage(processed, total int) int {
	if total <= 0 {
		return 0
	}
	if processed < 0 {
		processed = 0
	}
	if processed > total {
		processed = total
	}
	return int(math.Round(float64(processed) / float64(total) * 100))
}

// ETASeconds estimates remaining time from the items still to process
func (t *Tracker) ETASeconds(processed, total int) int {
	remaining := total - processed
	if remaining < 0 {
		remaining = 0
	}
	return remaining * t.secondsPerItem
}

// Record computes the snapshot for a completed batch and persists it
func (t *Tracker) Record(handle string, processed, total, currentBatch, totalBatches int) (Snapshot, error) {
	snap := Snapshot{
		ProcessedItems:     processed,
		TotalItems:         total,
		CurrentBatch:       currentBatch,
		TotalBatches:       totalBatches,
		ProgressPercentage: Percentage(processed, total),
		ETASeconds:         t.ETASeconds(processed, total),
	}
	if err := t.store.UpdateRunProgress(handle, snap.ProcessedItems, snap.CurrentBatch, snap.ProgressPercentage, snap.ETASeconds); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
