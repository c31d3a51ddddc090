package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/riskibarqy/epl-data-lake/internal/app"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/riskibarqy/epl-data-lake/internal/usecase"
	"github.com/spf13/cobra"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the bucket, load every team and register the table",
		Long: `Creates the bucket and catalog database when missing, writes one
line-delimited JSON object per team, registers the player table and points
the query workgroup at the results prefix. Re-running replaces the objects
and the table definition.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, application *app.App, logger *logging.Logger) error {
				report, err := application.Setup.Run(ctx)
				printSetupReport(cmd.OutOrStdout(), report)
				if err != nil {
					return err
				}
				if report.Failed > 0 {
					logger.WarnContext(ctx, "setup finished with skipped teams", "failed", report.Failed)
				}
				return nil
			})
		},
	}
}

func printSetupReport(w io.Writer, report usecase.SetupReport) {
	if len(report.Outcomes) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "TEAM\tSTATE\tROWS\tOBJECT\tERROR")
		for _, outcome := range report.Outcomes {
			errText := ""
			if outcome.Err != nil {
				errText = outcome.Err.Error()
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				outcome.Team.DisplayName(), outcome.State, outcome.Rows, outcome.ObjectKey, errText)
		}
		_ = tw.Flush()
	}
	_, _ = fmt.Fprintf(w, "teams done=%d failed=%d rows=%d\n", report.Done, report.Failed, report.Rows)
	_, _ = fmt.Fprintf(w, "table location: %s\n", report.TableLocation)
	_, _ = fmt.Fprintf(w, "query results:  %s\n", report.ResultsLocation)
}
