package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reedhedges/AriaCoda/api"
)

func DriveHandler(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	var req api.DriveRequest
	req.Vel, _ = flags.GetFloat64("vel")
	req.RotVel, _ = flags.GetFloat64("rot")
	req.LatVel, _ = flags.GetFloat64("lat")
	if flags.Changed("left") {
		left, _ := flags.GetFloat64("left")
		right, _ := flags.GetFloat64("right")
		req.Left, req.Right = &left, &right
	}
	if flags.Changed("turn") {
		turn, _ := flags.GetFloat64("turn")
		req.Turn = &turn
	}
	if flags.Changed("move") {
		move, _ := flags.GetFloat64("move")
		req.Move = &move
	}

	ctx := cmd.Context()
	if err := client.Drive(ctx, &req); err != nil {
		return err
	}

	d, _ := flags.GetDuration("for")
	if d <= 0 {
		return nil
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}

	// stop even when interrupted
	return client.Stop(context.WithoutCancel(ctx))
}

func StopHandler(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	return client.Stop(cmd.Context())
}

func MotorsHandler(cmd *cobra.Command, args []string) error {
	var enabled bool
	switch args[0] {
	case "on":
		enabled = true
	case "off":
	default:
		return fmt.Errorf("expected on or off, got %q", args[0])
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	return client.Motors(cmd.Context(), &api.MotorsRequest{Enabled: enabled})
}
