package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reedhedges/AriaCoda/ariac"
	"github.com/reedhedges/AriaCoda/version"
)

func VersionHandler(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if client, err := newClient(); err == nil {
		if st, err := client.Status(cmd.Context()); err == nil {
			fmt.Fprintf(out, "ariago server version is %s\n", st.Version)
		} else {
			fmt.Fprintln(out, "Warning: could not connect to a running ariago server")
		}
	}

	native := "linked"
	if _, err := ariac.Open(); err != nil {
		native = "not linked"
	}

	fmt.Fprintf(out, "ariago client version is %s (libariac %s)\n", version.Version, native)
	return nil
}
