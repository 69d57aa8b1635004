package robot

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reedhedges/AriaCoda/ariac/sim"
)

// TestRandomLifecycle drives two sessions sharing one library through random
// operations and checks the lifecycle rules after every step.
func TestRandomLifecycle(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7919))

		codes := make([]int, 400)
		for i := range codes {
			codes[i] = []int{0, 1, 1, 2}[rng.IntN(4)]
		}
		lib := sim.New(sim.WithConnectCodes(codes...))

		sessions := [2]*Session{
			newSession(t, lib, WithRelease(ReleaseShutdown)),
			newSession(t, lib, WithRelease(ReleaseShutdown)),
		}
		releases := 0

		for step := range 200 {
			i := rng.IntN(len(sessions))
			s := sessions[i]
			before := s.State()

			switch op := rng.IntN(5); op {
			case 0:
				err := s.Initialize(t.Context())
				switch {
				case err == nil:
					require.Equal(t, Uninitialized, before, "seed %d step %d", seed, step)
				case errors.Is(err, ErrAlreadyInitialized):
					require.NotEqual(t, Closed, before)
				default:
					var ise *InvalidStateError
					require.ErrorAs(t, err, &ise)
					require.Equal(t, Closed, before)
				}
			case 1:
				res, err := s.Connect(t.Context())
				if before != Initialized {
					require.Error(t, err, "seed %d step %d", seed, step)
					break
				}
				require.NoError(t, err)
				if res.Connected() {
					require.Equal(t, Connected, s.State())
				} else {
					require.Equal(t, Initialized, s.State())
					require.Error(t, res.Err())
				}
			case 2:
				err := s.Disconnect()
				assert.Equal(t, before == Connected, err == nil)
			case 3:
				require.NoError(t, s.Close())
				if before.Live() {
					releases++
				}
				require.Equal(t, Closed, s.State())
			case 4:
				if before == Closed {
					sessions[i] = newSession(t, lib, WithRelease(ReleaseShutdown))
				}
			}

			live := 0
			connected := false
			for _, s := range sessions {
				st := s.State()
				if st.Live() {
					live++
					owner, ok := LiveSession()
					require.True(t, ok)
					require.Equal(t, s.ID(), owner)
				}
				connected = connected || st == Connected
			}
			require.LessOrEqual(t, live, 1, "seed %d step %d", seed, step)
			if live == 0 {
				_, ok := LiveSession()
				require.False(t, ok)
			}
			require.Equal(t, connected, lib.Connected(), "seed %d step %d", seed, step)
			require.Equal(t, releases, lib.Calls(sim.CallShutdown), "seed %d step %d", seed, step)
		}

		for _, s := range sessions {
			require.NoError(t, s.Close())
		}
	}
}
