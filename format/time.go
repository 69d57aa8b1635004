package format

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// HumanDuration returns a human-readable approximation of a duration
// (eg. "About a minute", "4 hours", etc.).
func HumanDuration(d time.Duration) string {
	return humanDuration(d, true)
}

func humanDuration(d time.Duration, useCaps bool) string {
	capitalize := func(s string) string {
		if useCaps {
			return strings.ToUpper(s[:1]) + s[1:]
		}
		return s
	}

	seconds := int(d.Seconds())
	switch {
	case seconds < 1:
		return capitalize("less than a second")
	case seconds == 1:
		return "1 second"
	case seconds < 60:
		return fmt.Sprintf("%d seconds", seconds)
	}

	minutes := int(d.Minutes())
	switch {
	case minutes == 1:
		return capitalize("about a minute")
	case minutes < 60:
		return fmt.Sprintf("%d minutes", minutes)
	}

	hours := int(math.Round(d.Hours()))
	switch {
	case hours == 1:
		return capitalize("about an hour")
	case hours < 48:
		return fmt.Sprintf("%d hours", hours)
	default:
		return fmt.Sprintf("%d days", hours/24)
	}
}

// HumanTime describes t relative to now, or returns zeroValue for the
// zero time.
func HumanTime(t time.Time, zeroValue string) string {
	return humanTime(t, zeroValue, true)
}

func HumanTimeLower(t time.Time, zeroValue string) string {
	return humanTime(t, zeroValue, false)
}

func humanTime(t time.Time, zeroValue string, useCaps bool) string {
	if t.IsZero() {
		return zeroValue
	}

	delta := time.Since(t)
	if delta < 0 {
		return humanDuration(-delta, useCaps) + " from now"
	}
	return humanDuration(delta, useCaps) + " ago"
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// ExactDuration spells out hours, minutes and seconds of d, or milliseconds
// when d is under a second.
func ExactDuration(d time.Duration) string {
	if d < time.Second {
		return plural(d.Milliseconds(), "millisecond")
	}

	var parts []string
	if h := int64(d / time.Hour); h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if m := int64(d/time.Minute) % 60; m > 0 {
		parts = append(parts, plural(m, "minute"))
	}
	if s := int64(d/time.Second) % 60; s > 0 {
		parts = append(parts, plural(s, "second"))
	}
	return strings.Join(parts, " ")
}
