package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reedhedges/AriaCoda/progress"
	"github.com/reedhedges/AriaCoda/robot"
	"github.com/reedhedges/AriaCoda/utils/backoff"
)

const maxRetryDelay = 5 * time.Second

// connectWithRetry connects s, trying again up to retries times while the
// robot refuses. It returns the last result.
func connectWithRetry(ctx context.Context, s *robot.Session, retries int, maxDelay time.Duration) (robot.ConnectionResult, error) {
	var res robot.ConnectionResult
	for n, err := range backoff.Attempts(ctx, max(retries, 0)+1, maxDelay) {
		if err != nil {
			return res, err
		}

		res, err = s.Connect(ctx)
		if err != nil || res.Connected() {
			return res, err
		}

		slog.Warn("robot refused connect", "attempt", n, "reason", res.Failure.Reason)
	}
	return res, nil
}

// ConnectHandler runs one session in-process: initialize, connect, report
// and release. With ARIA_RELEASE=exit the release ends the process with
// ARIA_EXIT_CODE on success and 1 on a failed connect.
func ConnectHandler(cmd *cobra.Command, _ []string) error {
	lib, err := openLibrary()
	if err != nil {
		return err
	}

	opts, err := sessionOptions()
	if err != nil {
		return err
	}

	wait, _ := cmd.Flags().GetBool("wait")
	retries, _ := cmd.Flags().GetInt("retries")

	return robot.Run(cmd.Context(), lib, func(ctx context.Context, s *robot.Session) error {
		p := progress.NewProgress(os.Stderr)
		spinner := progress.NewSpinner("connecting to robot")
		p.Add(spinner)

		res, err := connectWithRetry(ctx, s, retries, maxRetryDelay)
		p.StopAndClear()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !res.Connected() {
			fmt.Fprintf(out, "Could not connect to the robot: %s\n", res.Failure.Reason)
			ferr := res.Err()
			if cerr := s.CloseWithCode(1); cerr != nil {
				return errors.Join(ferr, cerr)
			}
			return ferr
		}

		fmt.Fprintln(out, "Connected to the robot.")
		if d, err := s.Dimensions(); err == nil {
			fmt.Fprintf(out, "Robot radius %.0f mm, width %.0f mm, length %.0f mm\n", d.Radius, d.Width, d.Length)
		}

		if wait {
			fmt.Fprintln(out, "Waiting for the connection to end. Press Ctrl+C to disconnect.")
			err := s.Wait(ctx)
			switch {
			case err == nil:
				fmt.Fprintln(out, "Robot connection lost.")
			case errors.Is(err, context.Canceled):
				if err := s.Stop(); err != nil {
					return err
				}
			default:
				return err
			}
		}

		fmt.Fprintln(out, "Releasing ARIA.")
		return nil
	}, opts...)
}
