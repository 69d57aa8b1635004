// Package progress draws spinners and gauges on the terminal while the CLI
// waits on the robot.
package progress

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	defaultTermWidth  = 80
	defaultTermHeight = 24

	redrawInterval = 100 * time.Millisecond
)

const (
	hideCursor = "\033[?25l"
	showCursor = "\033[?25h"
	clearLine  = "\033[2K\033[1G"
	eraseRight = "\033[K"
	cursorUp   = "\033[A"

	// synchronized output, so terminals that support it draw each frame at once
	beginFrame = "\033[?2026h"
	endFrame   = "\033[?2026l"
)

type State interface {
	String() string
}

// Stopper is a State with its own goroutine, stopped with the Progress.
type Stopper interface {
	State
	Stop()
}

// Progress redraws a stack of states in place on a terminal.
type Progress struct {
	mu sync.Mutex
	w  *bufio.Writer
	fd int

	// lines drawn by the previous frame
	drawn int

	states  []State
	stopped bool
	done    chan struct{}
	exited  chan struct{}
}

// NewProgress starts redrawing to w. States are added with Add.
func NewProgress(w io.Writer) *Progress {
	return newProgress(w, redrawInterval)
}

func newProgress(w io.Writer, interval time.Duration) *Progress {
	fd := int(os.Stderr.Fd())
	if f, ok := w.(*os.File); ok {
		fd = int(f.Fd())
	}

	p := &Progress{
		w:      bufio.NewWriter(w),
		fd:     fd,
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	fmt.Fprint(p.w, hideCursor)
	go p.run(interval)
	return p
}

func (p *Progress) Add(state State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, state)
}

// Stop draws the final frame and leaves it on screen. It reports whether
// this call stopped the Progress.
func (p *Progress) Stop() bool {
	return p.finish(false)
}

// StopAndClear stops like Stop but erases the drawn lines.
func (p *Progress) StopAndClear() bool {
	return p.finish(true)
}

func (p *Progress) finish(clear bool) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false
	}
	p.stopped = true
	states := p.states
	p.mu.Unlock()

	close(p.done)
	<-p.exited

	for _, state := range states {
		if s, ok := state.(Stopper); ok {
			s.Stop()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if clear {
		p.moveToTop()
		fmt.Fprint(p.w, clearLine)
	} else {
		p.draw()
		fmt.Fprintln(p.w)
	}

	fmt.Fprint(p.w, showCursor)
	p.w.Flush()
	return true
}

func (p *Progress) render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draw()
	p.w.Flush()
}

func (p *Progress) moveToTop() {
	for range p.drawn - 1 {
		fmt.Fprint(p.w, cursorUp)
	}
	fmt.Fprint(p.w, "\033[1G")
}

// draw writes one frame. p.mu must be held.
func (p *Progress) draw() {
	_, height, err := term.GetSize(p.fd)
	if err != nil {
		height = defaultTermHeight
	}

	fmt.Fprint(p.w, beginFrame)
	defer fmt.Fprint(p.w, endFrame)

	p.moveToTop()

	// keep the newest states when the stack is taller than the terminal
	visible := p.states[len(p.states)-min(len(p.states), height):]
	for i, state := range visible {
		if i > 0 {
			fmt.Fprint(p.w, "\n")
		}
		fmt.Fprint(p.w, state.String(), eraseRight)
	}
	p.drawn = len(visible)
}

func (p *Progress) run(interval time.Duration) {
	defer close(p.exited)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.render()
		}
	}
}
