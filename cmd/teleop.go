package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/reedhedges/AriaCoda/api"
	"github.com/reedhedges/AriaCoda/format"
)

// ARIA stops the robot when no command arrives within its watchdog time
// (2 seconds by default), so the current command is resent periodically.
const teleopRefresh = 500 * time.Millisecond

const (
	maxTeleopVel    = 1000.0
	maxTeleopRotVel = 90.0
)

const teleopHelp = "w/up faster  s/down slower  a/left turn left  d/right turn right  space stop  q quit\r\n"

var errQuit = errors.New("quit")

type key int

const (
	keyNone key = iota
	keyForward
	keyBack
	keyLeft
	keyRight
	keyStop
	keyQuit
)

// keyDecoder turns raw terminal bytes into keys, including the
// ESC [ A..D arrow sequences.
type keyDecoder struct {
	esc int
}

func (d *keyDecoder) feed(b byte) key {
	switch d.esc {
	case 1:
		if b == '[' {
			d.esc = 2
			return keyNone
		}
		d.esc = 0
	case 2:
		d.esc = 0
		switch b {
		case 'A':
			return keyForward
		case 'B':
			return keyBack
		case 'C':
			return keyRight
		case 'D':
			return keyLeft
		}
		return keyNone
	}

	switch b {
	case 0x1b:
		d.esc = 1
	case 'w', 'W', 'k':
		return keyForward
	case 's', 'S', 'j':
		return keyBack
	case 'a', 'A', 'h':
		return keyLeft
	case 'd', 'D', 'l':
		return keyRight
	case ' ':
		return keyStop
	case 'q', 'Q', 0x03, 0x04:
		return keyQuit
	}
	return keyNone
}

type teleop struct {
	step, turnStep float64
	cmd            api.DriveRequest
}

func clamp(v, limit float64) float64 {
	return max(-limit, min(v, limit))
}

// apply updates the command for k and reports whether it changed.
func (t *teleop) apply(k key) (bool, error) {
	prev := t.cmd
	switch k {
	case keyForward:
		t.cmd.Vel = clamp(t.cmd.Vel+t.step, maxTeleopVel)
	case keyBack:
		t.cmd.Vel = clamp(t.cmd.Vel-t.step, maxTeleopVel)
	case keyLeft:
		t.cmd.RotVel = clamp(t.cmd.RotVel+t.turnStep, maxTeleopRotVel)
	case keyRight:
		t.cmd.RotVel = clamp(t.cmd.RotVel-t.turnStep, maxTeleopRotVel)
	case keyStop:
		t.cmd = api.DriveRequest{}
	case keyQuit:
		return false, errQuit
	}
	return t.cmd != prev, nil
}

func describe(c api.DriveRequest) string {
	return fmt.Sprintf("vel %s  rot %s", format.Speed(c.Vel), format.TurnRate(c.RotVel))
}

func readKeys(r io.Reader, keys chan<- byte, done <-chan struct{}) {
	defer close(keys)
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			select {
			case keys <- b:
			case <-done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func TeleopHandler(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	step, _ := cmd.Flags().GetFloat64("step")
	turnStep, _ := cmd.Flags().GetFloat64("turn-step")

	c, err := console.ConsoleFromFile(os.Stdin)
	if err != nil {
		return fmt.Errorf("teleop needs an interactive terminal: %w", err)
	}
	if err := c.SetRaw(); err != nil {
		return err
	}
	defer c.Reset()

	done := make(chan struct{})
	defer close(done)
	keys := make(chan byte)
	go readKeys(c, keys, done)

	out := cmd.OutOrStdout()
	fmt.Fprint(out, teleopHelp)

	err = runTeleop(cmd.Context(), client, &teleop{step: step, turnStep: turnStep}, keys, out)
	stopErr := client.Stop(context.WithoutCancel(cmd.Context()))
	fmt.Fprint(out, "\r\n")
	return errors.Join(err, stopErr)
}

// runTeleop drives from keys until quit, end of input or ctx ends.
func runTeleop(ctx context.Context, client *api.Client, t *teleop, keys <-chan byte, out io.Writer) error {
	updates := make(chan api.DriveRequest, 1)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var dec keyDecoder
		for {
			select {
			case <-ctx.Done():
				return nil
			case b, ok := <-keys:
				if !ok {
					return errQuit
				}

				changed, err := t.apply(dec.feed(b))
				if err != nil {
					return err
				}
				if !changed {
					continue
				}

				select {
				case updates <- t.cmd:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(teleopRefresh)
		defer ticker.Stop()

		var current api.DriveRequest
		for {
			select {
			case <-ctx.Done():
				return nil
			case current = <-updates:
			case <-ticker.C:
			}

			if err := client.Drive(ctx, &current); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			fmt.Fprintf(out, "\r\033[K%s", describe(current))
		}
	})

	if err := g.Wait(); !errors.Is(err, errQuit) {
		return err
	}
	return nil
}
