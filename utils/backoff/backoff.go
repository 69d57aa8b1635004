// Package backoff paces repeated robot connect attempts.
package backoff

import (
	"context"
	"iter"
	"math/rand/v2"
	"time"
)

// base is the delay before the second attempt.
const base = 250 * time.Millisecond

// Delay returns the randomized pause before attempt n+1, n >= 1.
func Delay(n int, maxDelay time.Duration) time.Duration {
	// n^2 grows more smoothly than 2^n over the few attempts a connect gets
	d := time.Duration(n*n) * base
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	// 0.5-1.5x
	return time.Duration(float64(d) * (rand.Float64() + 0.5))
}

// Attempts yields attempt numbers starting at 1, pausing before every
// attempt after the first. It stops after attempts yields (0 means no
// limit) or when the caller stops ranging. If ctx ends first the final
// pair carries ctx's error.
func Attempts(ctx context.Context, attempts int, maxDelay time.Duration) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for n := 1; attempts <= 0 || n <= attempts; n++ {
			if n > 1 {
				t := time.NewTimer(Delay(n-1, maxDelay))
				select {
				case <-ctx.Done():
					t.Stop()
				case <-t.C:
				}
			}

			if err := ctx.Err(); err != nil {
				yield(n, err)
				return
			}

			if !yield(n, nil) {
				return
			}
		}
	}
}
