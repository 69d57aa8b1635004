package progress

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Gauge renders a value within a fixed range as a horizontal bar, e.g.
// "battery  12.4 V ▕██████████      ▏ 78%".
type Gauge struct {
	mu sync.Mutex

	message string
	unit    string

	minValue float64
	maxValue float64
	value    float64

	// width of the bar; 0 sizes it to the terminal
	width int
}

func NewGauge(message, unit string, minValue, maxValue float64) *Gauge {
	return &Gauge{message: message, unit: unit, minValue: minValue, maxValue: maxValue}
}

func (g *Gauge) Set(value float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = value
}

func (g *Gauge) percent() float64 {
	if g.maxValue <= g.minValue {
		return 0
	}
	p := (g.value - g.minValue) / (g.maxValue - g.minValue) * 100
	return math.Max(0, math.Min(p, 100))
}

func (g *Gauge) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var pre, suf strings.Builder
	if g.message != "" {
		fmt.Fprintf(&pre, "%s ", strings.TrimSpace(g.message))
	}
	fmt.Fprintf(&pre, "%5.1f %s ", g.value, g.unit)
	fmt.Fprintf(&suf, " %3.0f%%", math.Floor(g.percent()))

	f := g.width
	if f <= 0 {
		termWidth, _, err := term.GetSize(int(os.Stderr.Fd()))
		if err != nil {
			termWidth = defaultTermWidth
		}
		// 2 boundary characters
		f = min(termWidth-pre.Len()-suf.Len()-2, 40)
	}
	if f <= 0 {
		return pre.String() + suf.String()
	}

	n := int(float64(f) * g.percent() / 100)
	return pre.String() + "▕" + strings.Repeat("█", n) + strings.Repeat(" ", f-n) + "▏" + suf.String()
}
