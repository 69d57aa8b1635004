package format

import (
	"fmt"
	"math"
)

// Distance formats a length in millimetres, switching to metres at 1 m.
func Distance(mm float64) string {
	if math.Abs(mm) >= 1000 {
		return fmt.Sprintf("%.2f m", mm/1000)
	}
	return fmt.Sprintf("%.0f mm", mm)
}

// Speed formats a translational velocity in mm/s.
func Speed(mmps float64) string {
	return fmt.Sprintf("%.0f mm/s", mmps)
}

// Heading formats an angle in degrees.
func Heading(deg float64) string {
	return fmt.Sprintf("%.1f°", deg)
}

// TurnRate formats a rotational velocity in deg/s.
func TurnRate(degps float64) string {
	return fmt.Sprintf("%.1f°/s", degps)
}

func Volts(v float64) string {
	return fmt.Sprintf("%.1f V", v)
}

// Flags renders a bumper row as a compact string, e.g. "--X--".
func Flags(b []bool) string {
	if len(b) == 0 {
		return "-"
	}
	out := make([]byte, len(b))
	for i, on := range b {
		out[i] = '-'
		if on {
			out[i] = 'X'
		}
	}
	return string(out)
}
