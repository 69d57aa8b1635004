package robot

import (
	"fmt"
	"sync"

	"github.com/reedhedges/AriaCoda/metrics"
)

// ARIA keeps one robot client in process globals, so at most one session
// may be live at a time. live is held from Initialize until Close.
var guard struct {
	live sync.Mutex

	mu    sync.Mutex
	owner string
}

func acquireGuard(id string) error {
	if !guard.live.TryLock() {
		metrics.GuardRejections.Inc()
		if owner, ok := LiveSession(); ok {
			return fmt.Errorf("%w (held by session %s)", ErrAlreadyInitialized, owner)
		}
		return ErrAlreadyInitialized
	}

	guard.mu.Lock()
	guard.owner = id
	guard.mu.Unlock()
	return nil
}

func releaseGuard() {
	guard.mu.Lock()
	guard.owner = ""
	guard.mu.Unlock()
	guard.live.Unlock()
}

// LiveSession returns the ID of the session currently holding ARIA, if any.
func LiveSession() (string, bool) {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.owner, guard.owner != ""
}
