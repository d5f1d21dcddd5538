package sim

import (
	"context"
	"sync"
)

// Ensemble repeats a simulation with consecutive noise seeds.
type Ensemble struct {
	base      *Simulator
	numRuns   int
	seedStart int64
}

func NewEnsemble(s *Simulator, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{base: s, numRuns: numRuns, seedStart: seedStart}
}

// Run executes all runs concurrently. Run i uses seed seedStart+i. Metrics
// and observers of the base simulator are not shared with the runs.
func (e *Ensemble) Run(ctx context.Context, excitation []float64, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := cfg
			cfgCopy.Seed = e.seedStart + int64(idx)

			sim := New(e.base.plant, e.base.controller)
			results[idx], errs[idx] = sim.Run(ctx, excitation, cfgCopy)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
