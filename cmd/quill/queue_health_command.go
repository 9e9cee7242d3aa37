package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/ipc"
)

func newQueueHealthCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "queue-health",
		Short: "Check queue database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DatabaseHealth()
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return emitJSON(cmd.OutOrStdout(), resp)
				}
				out := cmd.OutOrStdout()
				for _, entry := range databaseHealthReport(resp) {
					fmt.Fprintf(out, "%s: %s\n", entry[0], entry[1])
				}
				return nil
			})
		},
	}
}

// databaseHealthReport flattens the health response into ordered
// label/value pairs for plain-text output.
func databaseHealthReport(resp *ipc.DatabaseHealthResponse) [][2]string {
	report := [][2]string{
		{"Database path", resp.DBPath},
		{"Database exists", yesNo(resp.DatabaseExists)},
		{"Readable", yesNo(resp.DatabaseReadable)},
		{"Schema version", resp.SchemaVersion},
		{"queue_items table present", yesNo(resp.TableExists)},
	}
	if len(resp.ColumnsPresent) > 0 {
		report = append(report, [2]string{"Columns", sortedColumnList(resp.ColumnsPresent)})
	}
	missing := "none"
	if len(resp.MissingColumns) > 0 {
		missing = sortedColumnList(resp.MissingColumns)
	}
	report = append(report,
		[2]string{"Missing columns", missing},
		[2]string{"Integrity check", yesNo(resp.IntegrityCheck)},
		[2]string{"Total items", fmt.Sprintf("%d", resp.TotalItems)},
	)
	if resp.Error != "" {
		report = append(report, [2]string{"Error", resp.Error})
	}
	return report
}

func sortedColumnList(columns []string) string {
	ordered := append([]string(nil), columns...)
	sort.Strings(ordered)
	return strings.Join(ordered, ", ")
}
