package runner

import "fmt"

// Partition splits total requests across workers. Every worker gets the floor
// share and the first total%workers workers get one extra, so the counts sum to
// total and never differ by more than one.
func Partition(total, workers int) ([]int, error) {
	if workers < 1 {
		return nil, &ConfigError{Field: "concurrency", Reason: fmt.Sprintf("must be at least 1 (got %d)", workers)}
	}
	if total < 0 {
		return nil, &ConfigError{Field: "requests", Reason: fmt.Sprintf("must not be negative (got %d)", total)}
	}

	base := total / workers
	remainder := total % workers

	counts := make([]int, workers)
	for i := range counts {
		counts[i] = base
		if i < remainder {
			counts[i]++
		}
	}
	return counts, nil
}

// assign builds one assignment per worker that has work to do. Workers with an
// empty share are never spawned.
func assign(cfg *Config, counts []int) []Assignment {
	assignments := make([]Assignment, 0, len(counts))
	for i, n := range counts {
		if n == 0 {
			continue
		}
		assignments = append(assignments, Assignment{
			Index:    i,
			Config:   cfg,
			Requests: n,
		})
	}
	return assignments
}
