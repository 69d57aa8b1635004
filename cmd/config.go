package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/reedhedges/AriaCoda/envconfig"
)

func ConfigHandler(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if example, _ := cmd.Flags().GetBool("example"); example {
		fmt.Fprint(out, envconfig.GenerateExampleConfig())
		return nil
	}

	vars := envconfig.AsMap()
	vals := envconfig.Values()
	names := slices.Sorted(maps.Keys(vals))

	table := newTable(out, "NAME", "VALUE", "DESCRIPTION")
	for _, name := range names {
		table.Append([]string{name, vals[name], vars[name].Description})
	}
	table.Render()

	if path := envconfig.ConfigPath(); path != "" {
		fmt.Fprintf(out, "\nConfig file: %s\n", path)
	} else {
		fmt.Fprintln(out, "\nNo config file found.")
	}
	return nil
}
