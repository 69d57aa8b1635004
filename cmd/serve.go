package cmd

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/reedhedges/AriaCoda/envconfig"
	"github.com/reedhedges/AriaCoda/robot"
	"github.com/reedhedges/AriaCoda/server"
)

func RunServer(cmd *cobra.Command, _ []string) error {
	host, err := envconfig.Host()
	if err != nil {
		return err
	}

	lib, err := openLibrary()
	if err != nil {
		return err
	}

	opts, err := sessionOptions()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", host.String())
	if err != nil {
		return err
	}

	sess := robot.New(lib, opts...)
	if err := sess.Initialize(cmd.Context()); err != nil {
		ln.Close()
		sess.Close()
		return err
	}

	if connect, _ := cmd.Flags().GetBool("connect"); connect {
		retries, _ := cmd.Flags().GetInt("retries")
		res, err := connectWithRetry(cmd.Context(), sess, retries, maxRetryDelay)
		switch {
		case err != nil:
			slog.Error("connect on startup", "error", err)
		case !res.Connected():
			slog.Warn("connect on startup failed", "reason", res.Failure.Reason)
		}
	}

	if sess.Release() == robot.ReleaseExit {
		fmt.Fprintln(cmd.ErrOrStderr(), "Stopping the server releases ARIA with aria_exit and ends the process.")
	}

	return server.Serve(cmd.Context(), ln, sess)
}
