package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/riskibarqy/epl-data-lake/internal/app"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/spf13/cobra"
)

func newTeamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teams",
		Short: "List the provider's teams as DATALAKE_TEAMS items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, application *app.App, _ *logging.Logger) error {
				teams, err := application.Provider.FetchTeams(ctx)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "KEY\tNAME\tITEM")
				for _, t := range teams {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s:%s\n", t.Key, t.Name, t.Key, t.Name)
				}
				return tw.Flush()
			})
		},
	}
}
