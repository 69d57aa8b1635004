package progress

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/reedhedges/AriaCoda/format"
)

// Spinner shows a message, a rotating glyph and the time spent waiting.
type Spinner struct {
	message atomic.Value
	parts   []string

	value atomic.Int32

	started time.Time
	stopped atomic.Pointer[time.Time]
	done    chan struct{}
}

func NewSpinner(message string) *Spinner {
	s := &Spinner{
		parts: []string{
			"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏",
		},
		started: time.Now(),
		done:    make(chan struct{}),
	}
	s.message.Store(message)
	go s.start()
	return s
}

func (s *Spinner) SetMessage(message string) {
	s.message.Store(message)
}

func (s *Spinner) String() string {
	var sb strings.Builder
	if message, _ := s.message.Load().(string); strings.TrimSpace(message) != "" {
		sb.WriteString(strings.TrimSpace(message))
		sb.WriteString(" ")
	}

	end := time.Now()
	if stopped := s.stopped.Load(); stopped != nil {
		end = *stopped
	} else {
		sb.WriteString(s.parts[int(s.value.Load())%len(s.parts)])
		sb.WriteString(" ")
	}

	if elapsed := end.Sub(s.started); elapsed >= time.Second {
		fmt.Fprintf(&sb, "(%s)", format.ExactDuration(elapsed.Truncate(time.Second)))
	}

	return sb.String()
}

func (s *Spinner) start() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.value.Store((s.value.Load() + 1) % int32(len(s.parts)))
		case <-s.done:
			return
		}
	}
}

// Stop freezes the spinner. It is safe to call more than once.
func (s *Spinner) Stop() {
	now := time.Now()
	if s.stopped.CompareAndSwap(nil, &now) {
		close(s.done)
	}
}
