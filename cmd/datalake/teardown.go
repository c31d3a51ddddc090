package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/epl-data-lake/internal/app"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/spf13/cobra"
)

var errTeardownCancelled = crerr.New("teardown cancelled by user")

func newTeardownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Delete the table, database, workgroup, every object and the bucket",
		Long: `Removes everything setup created, in reverse order: the catalog table
and database, the query workgroup with its history, every object in the
bucket and the bucket itself. Resources that are already gone are skipped.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, false, func(ctx context.Context, application *app.App, logger *logging.Logger) error {
				if err := confirmTeardown(cmd, application.Config.Bucket, application.Config.Database); err != nil {
					return err
				}

				report, err := application.Teardown.Run(ctx)
				for _, step := range report.Steps {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", step)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func confirmTeardown(cmd *cobra.Command, bucket, database string) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}
	if yes {
		return nil
	}

	prompt := fmt.Sprintf("WARNING: This deletes bucket %s with all objects and catalog database %s. Continue?", bucket, database)
	if !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt) {
		return errTeardownCancelled
	}
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "yes" || response == "y"
}
