package simulation

import (
	"context"
	"math/rand/v2"
	"time"
)

// Rand is the subset of *rand.Rand a simulation run draws from.
type Rand interface {
	IntN(n int) int
	Int64N(n int64) int64
}

// RandSource returns the random generator for the n-th run (n starts at 1).
type RandSource func(n uint64) Rand

// SeededSource derives every run's generator from seed and the run number,
// so the same sequence of runs always draws the same numbers.
func SeededSource(seed uint64) RandSource {
	return func(n uint64) Rand {
		return rand.New(rand.NewPCG(seed, n))
	}
}

// RandomSource seeds each run from the runtime's random state.
func RandomSource() RandSource {
	return func(uint64) Rand {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
}

// SleepFunc pauses a run between iterations. It returns early with the
// context error when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
