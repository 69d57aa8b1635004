package server

import (
	"sync"

	"github.com/emirpasic/gods/queues/circularbuffer"

	"github.com/reedhedges/AriaCoda/robot"
)

// history keeps the most recent telemetry samples, dropping the oldest
// once full.
type history struct {
	mu  sync.Mutex
	buf *circularbuffer.Queue
}

func newHistory(size int) *history {
	return &history{buf: circularbuffer.New(max(size, 1))}
}

func (h *history) add(t robot.Telemetry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.Enqueue(t)
}

// last returns up to n samples, oldest first. n <= 0 returns all of them.
func (h *history) last(n int) []robot.Telemetry {
	h.mu.Lock()
	values := h.buf.Values()
	h.mu.Unlock()

	if n > 0 && n < len(values) {
		values = values[len(values)-n:]
	}

	samples := make([]robot.Telemetry, 0, len(values))
	for _, v := range values {
		samples = append(samples, v.(robot.Telemetry))
	}
	return samples
}

func (h *history) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.Clear()
}
