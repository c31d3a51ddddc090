package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/epl-data-lake/internal/app"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/riskibarqy/epl-data-lake/internal/usecase"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func newQueryCmd() *cobra.Command {
	var (
		sql    string
		output string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run SQL against the player table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != outputTable && output != outputJSON {
				return fmt.Errorf("%w: --output must be %s or %s", usecase.ErrInvalidInput, outputTable, outputJSON)
			}
			return runWithApp(cmd, false, func(ctx context.Context, application *app.App, _ *logging.Logger) error {
				if strings.TrimSpace(sql) == "" {
					sql = application.Query.DefaultSQL()
				}
				result, err := application.Query.Run(ctx, sql)
				if err != nil {
					return err
				}
				if output == outputJSON {
					return writeJSONRows(cmd.OutOrStdout(), result.Rows)
				}
				return writeTableRows(cmd.OutOrStdout(), result.Rows)
			})
		},
	}
	cmd.Flags().StringVar(&sql, "sql", "", "SQL to run (defaults to a player count per team)")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")
	return cmd
}

func writeTableRows(w io.Writer, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// writeJSONRows treats the first row as the header and prints one JSON object
// per remaining row.
func writeJSONRows(w io.Writer, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	header := rows[0]
	for _, row := range rows[1:] {
		object := make(map[string]string, len(header))
		for idx, column := range header {
			if idx < len(row) {
				object[column] = row[idx]
			}
		}
		line, err := sonic.Marshal(object)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(line)); err != nil {
			return err
		}
	}
	return nil
}
