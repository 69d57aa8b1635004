package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/reedhedges/AriaCoda/api"
	"github.com/reedhedges/AriaCoda/format"
	"github.com/reedhedges/AriaCoda/progress"
)

const (
	watchInterval = 500 * time.Millisecond

	// Pioneer-class 12 V lead-acid packs
	batteryEmpty = 11.0
	batteryFull  = 13.0
)

func TelemetryHandler(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	if n, _ := cmd.Flags().GetInt("history"); n > 0 {
		h, err := client.History(cmd.Context(), n)
		if err != nil {
			return err
		}
		writeHistory(cmd.OutOrStdout(), h.Samples)
		return nil
	}

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		return watchTelemetry(cmd.Context(), client)
	}

	t, err := client.Telemetry(cmd.Context())
	if err != nil {
		return err
	}
	writeTelemetry(cmd.OutOrStdout(), t)
	return nil
}

func writeTelemetry(w io.Writer, t *api.TelemetryResponse) {
	stall := "-"
	switch {
	case t.StallLeft && t.StallRight:
		stall = "both"
	case t.StallLeft:
		stall = "left"
	case t.StallRight:
		stall = "right"
	}

	table := newTable(w, "FIELD", "VALUE")
	table.AppendBulk([][]string{
		{"position", fmt.Sprintf("%s, %s", format.Distance(t.Pose.X), format.Distance(t.Pose.Y))},
		{"heading", format.Heading(t.Pose.Th)},
		{"velocity", fmt.Sprintf("%s, %s", format.Speed(t.Velocities.Vel), format.TurnRate(t.Velocities.RotVel))},
		{"wheels", fmt.Sprintf("%s, %s", format.Speed(t.Velocities.Left), format.Speed(t.Velocities.Right))},
		{"battery", format.Volts(t.Battery)},
		{"motors", onOff(t.MotorsEnabled)},
		{"stall", stall},
		{"bumpers", fmt.Sprintf("front %s rear %s", format.Flags(t.Bumpers.Front), format.Flags(t.Bumpers.Rear))},
		{"sonar", strconv.Itoa(len(t.Sonar)) + " readings"},
	})
	table.Render()
}

func writeHistory(w io.Writer, samples []api.TelemetryResponse) {
	table := newTable(w, "TIME", "X", "Y", "HEADING", "VELOCITY", "BATTERY")
	for _, t := range samples {
		table.Append([]string{
			t.Time.Format("15:04:05.000"),
			format.Distance(t.Pose.X),
			format.Distance(t.Pose.Y),
			format.Heading(t.Pose.Th),
			format.Speed(t.Velocities.Vel),
			format.Volts(t.Battery),
		})
	}
	table.Render()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// statusLine is a progress state whose text is replaced as updates arrive.
type statusLine struct {
	text atomic.Value
}

func (l *statusLine) Set(s string) {
	l.text.Store(s)
}

func (l *statusLine) String() string {
	s, _ := l.text.Load().(string)
	return s
}

func poseLine(t *api.TelemetryResponse) string {
	return fmt.Sprintf("pose %s, %s %s  vel %s %s",
		format.Distance(t.Pose.X), format.Distance(t.Pose.Y), format.Heading(t.Pose.Th),
		format.Speed(t.Velocities.Vel), format.TurnRate(t.Velocities.RotVel))
}

func watchTelemetry(ctx context.Context, client *api.Client) error {
	p := progress.NewProgress(os.Stderr)
	defer p.Stop()

	line := &statusLine{}
	line.Set("waiting for telemetry")
	battery := progress.NewGauge("battery", "V", batteryEmpty, batteryFull)
	p.Add(line)
	p.Add(battery)

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		t, err := client.Telemetry(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			line.Set(err.Error())
		default:
			line.Set(poseLine(t))
			battery.Set(t.Battery)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
