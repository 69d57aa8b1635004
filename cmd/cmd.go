// Package cmd implements the ariago command line.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reedhedges/AriaCoda/api"
	"github.com/reedhedges/AriaCoda/ariac"
	"github.com/reedhedges/AriaCoda/ariac/sim"
	"github.com/reedhedges/AriaCoda/envconfig"
	"github.com/reedhedges/AriaCoda/logutil"
	"github.com/reedhedges/AriaCoda/robot"
)

// openLibrary returns the simulator when ARIA_SIM or --sim is set and the
// native library otherwise.
func openLibrary() (ariac.Library, error) {
	if envconfig.Sim {
		slog.Info("using simulated robot")
		return sim.New(), nil
	}

	lib, err := ariac.Open()
	if errors.Is(err, ariac.ErrUnavailable) {
		return nil, fmt.Errorf("%w; rebuild with -tags ariac or pass --sim", err)
	}
	return lib, err
}

func sessionOptions() ([]robot.Option, error) {
	release, err := robot.ParseReleaseMode(envconfig.Release)
	if err != nil {
		return nil, err
	}

	opts := []robot.Option{
		robot.WithArgs(envconfig.Args...),
		robot.WithConnectTimeout(envconfig.ConnectTimeout),
		robot.WithExitCode(envconfig.ExitCode),
		robot.WithRelease(release),
		robot.WithLogger(slog.Default()),
	}
	if envconfig.Debug > 0 {
		opts = append(opts, robot.WithNativeLog())
	}
	return opts, nil
}

func newClient() (*api.Client, error) {
	return api.ClientFromEnvironment()
}

func envVarsUsage(names ...string) string {
	vars := envconfig.AsMap()

	var sb strings.Builder
	sb.WriteString("\nEnvironment Variables:\n")
	for _, name := range names {
		if v, ok := vars[name]; ok {
			fmt.Fprintf(&sb, "      %-22s %s\n", v.Name, v.Description)
		}
	}
	return sb.String()
}

func appendEnvDocs(cmd *cobra.Command, names ...string) {
	if len(names) == 0 {
		return
	}
	cmd.SetUsageTemplate(cmd.UsageTemplate() + envVarsUsage(names...))
}

func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:   "ariago",
		Short: "Connect to and drive ARIA robots",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Disable usage printing on errors
			cmd.SilenceUsage = true

			if host, _ := cmd.Flags().GetString("host"); host != "" {
				if err := os.Setenv("ARIA_HOST", host); err != nil {
					return err
				}
			}
			envconfig.LoadConfig()

			if useSim, _ := cmd.Flags().GetBool("sim"); useSim {
				envconfig.Sim = true
			}

			slog.SetDefault(logutil.NewLogger(os.Stderr, logutil.Level(envconfig.Debug)))
			return nil
		},
	}

	rootCmd.PersistentFlags().String("host", "", "Server address (overrides ARIA_HOST)")
	rootCmd.PersistentFlags().Bool("sim", false, "Use the simulated robot instead of libariac")

	connectCmd := &cobra.Command{
		Use:   "connect",
		Short: "Initialize ARIA, connect to the robot and release it",
		Args:  cobra.NoArgs,
		RunE:  ConnectHandler,
	}
	connectCmd.Flags().Bool("wait", false, "Stay connected until the connection is lost or interrupted")
	connectCmd.Flags().Int("retries", 0, "Retry a refused connect up to this many times")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the robot control server",
		Args:    cobra.NoArgs,
		RunE:    RunServer,
	}
	serveCmd.Flags().Bool("connect", false, "Connect to the robot on startup")
	serveCmd.Flags().Int("retries", 0, "Retry a refused startup connect up to this many times")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the server's robot session",
		Args:  cobra.NoArgs,
		RunE:  StatusHandler,
	}

	disconnectCmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect the server's robot, keeping ARIA initialized",
		Args:  cobra.NoArgs,
		RunE:  DisconnectHandler,
	}

	telemetryCmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Show robot telemetry",
		Args:  cobra.NoArgs,
		RunE:  TelemetryHandler,
	}
	telemetryCmd.Flags().Bool("watch", false, "Keep refreshing until interrupted")
	telemetryCmd.Flags().Int("history", 0, "Show the last N samples recorded by the server")

	driveCmd := &cobra.Command{
		Use:   "drive",
		Short: "Set robot velocities",
		Args:  cobra.NoArgs,
		RunE:  DriveHandler,
	}
	driveCmd.Flags().Float64("vel", 0, "Translational velocity in mm/s")
	driveCmd.Flags().Float64("rot", 0, "Rotational velocity in deg/s")
	driveCmd.Flags().Float64("lat", 0, "Lateral velocity in mm/s")
	driveCmd.Flags().Float64("left", 0, "Left wheel velocity in mm/s")
	driveCmd.Flags().Float64("right", 0, "Right wheel velocity in mm/s")
	driveCmd.Flags().Float64("move", 0, "Move this far in mm")
	driveCmd.Flags().Float64("turn", 0, "Turn by this many degrees before moving")
	driveCmd.Flags().Duration("for", 0, "Stop after this long")
	driveCmd.MarkFlagsRequiredTogether("left", "right")
	driveCmd.MarkFlagsMutuallyExclusive("vel", "left", "move")
	driveCmd.MarkFlagsMutuallyExclusive("rot", "right", "turn")
	driveCmd.MarkFlagsMutuallyExclusive("vel", "turn")
	driveCmd.MarkFlagsMutuallyExclusive("rot", "move")
	driveCmd.MarkFlagsMutuallyExclusive("lat", "move")
	driveCmd.MarkFlagsMutuallyExclusive("lat", "turn")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the robot",
		Args:  cobra.NoArgs,
		RunE:  StopHandler,
	}

	motorsCmd := &cobra.Command{
		Use:       "motors on|off",
		Short:     "Enable or disable the motors",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE:      MotorsHandler,
	}

	teleopCmd := &cobra.Command{
		Use:   "teleop",
		Short: "Drive the robot from the keyboard",
		Args:  cobra.NoArgs,
		RunE:  TeleopHandler,
	}
	teleopCmd.Flags().Float64("step", 50, "Velocity change per key press in mm/s")
	teleopCmd.Flags().Float64("turn-step", 10, "Rotational velocity change per key press in deg/s")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  ConfigHandler,
	}
	configCmd.Flags().Bool("example", false, "Print an example config file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE:  VersionHandler,
	}

	robotEnv := []string{"ARIA_DEBUG", "ARIA_ARGS", "ARIA_CONNECT_TIMEOUT", "ARIA_EXIT_CODE", "ARIA_RELEASE", "ARIA_SIM"}
	appendEnvDocs(connectCmd, robotEnv...)
	appendEnvDocs(serveCmd, append(robotEnv, "ARIA_HOST", "ARIA_ORIGINS", "ARIA_POLL_INTERVAL", "ARIA_HISTORY")...)
	for _, cmd := range []*cobra.Command{statusCmd, disconnectCmd, telemetryCmd, driveCmd, stopCmd, motorsCmd, teleopCmd} {
		appendEnvDocs(cmd, "ARIA_HOST")
	}

	rootCmd.AddCommand(
		connectCmd,
		serveCmd,
		statusCmd,
		disconnectCmd,
		telemetryCmd,
		driveCmd,
		stopCmd,
		motorsCmd,
		teleopCmd,
		configCmd,
		versionCmd,
	)

	return rootCmd
}
