package batch

import "github.com/hochfrequenz/taskforge/internal/domain"

// DefaultSize is the number of actions processed per batch
const DefaultSize = 8

// Batch is an ordered subset of a run's actions, processed together for
// progress-reporting granularity. Numbers are 1-based with no gaps.
type Batch struct {
	Number int
	Items  []*domain.Action
}

// Partition splits an ordered list of actions into fixed-size batches.
// Order is preserved: concatenating all batches reproduces the input exactly.
// An empty input yields zero batches.
func Partition(items []*domain.Action, size int) []Batch {
	if size <= 0 {
		size = DefaultSize
	}
	if len(items) == 0 {
		return nil
	}

	batches := make([]Batch, 0, NumBatches(len(items), size))
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, Batch{
			Number: len(batches) + 1,
			Items:  items[start:end],
		})
	}
	return batches
}

// NumBatches returns ceil(n/size)
func NumBatches(n, size int) int {
	if size <= 0 {
		size = DefaultSize
	}
	return (n + size - 1) / size
}
