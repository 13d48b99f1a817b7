package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			rows := [][]string{
				{"Running", yesNo(status.Running)},
				{"PID", strconv.Itoa(status.PID)},
				{"Database", status.DatabasePath},
				{"Lock file", status.LockFilePath},
				{"Tracked titles", strconv.Itoa(status.RecordCount)},
				{"Pending sync", strconv.Itoa(status.PendingCount)},
				{"Backend sync", yesNo(status.BackendEnabled)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
