package cmd

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/reedhedges/AriaCoda/api"
	"github.com/reedhedges/AriaCoda/format"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func StatusHandler(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	st, err := client.Status(cmd.Context())
	if err != nil {
		return err
	}

	writeStatus(cmd.OutOrStdout(), st)
	return nil
}

func writeStatus(w io.Writer, st *api.StatusResponse) {
	connected := "-"
	if st.ConnectedSince != nil {
		connected = format.HumanTime(*st.ConnectedSince, "-")
	}

	table := newTable(w, "SESSION", "STATE", "CONNECTED", "RELEASE", "SIM", "VERSION")
	table.Append([]string{st.Session, st.State, connected, st.Release, strconv.FormatBool(st.Sim), st.Version})
	table.Render()
}

func DisconnectHandler(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	st, err := client.Disconnect(cmd.Context())
	if err != nil {
		return err
	}

	writeStatus(cmd.OutOrStdout(), st)
	return nil
}
