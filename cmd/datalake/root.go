package main

import (
	"context"
	"time"

	"github.com/riskibarqy/epl-data-lake/internal/app"
	"github.com/riskibarqy/epl-data-lake/internal/config"
	"github.com/riskibarqy/epl-data-lake/internal/observability"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("epl-data-lake/cmd/datalake")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "datalake",
		Short:         "Provision, load and remove the EPL player data lake",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSetupCmd())
	root.AddCommand(newTeardownCmd())
	root.AddCommand(newTeamsCmd())
	root.AddCommand(newQueryCmd())
	return root
}

// runWithApp loads configuration, installs the process logger and tracer,
// builds the app and runs fn inside a root span named after the command.
func runWithApp(cmd *cobra.Command, requireProvider bool, fn func(ctx context.Context, application *app.App, logger *logging.Logger) error) (err error) {
	cfg, err := config.Load(requireProvider)
	if err != nil {
		return err
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := shutdownTracing(shutdownCtx); shutdownErr != nil {
			logger.Warn("flush traces failed", "error", shutdownErr)
		}
	}()

	ctx, span := tracer.Start(cmd.Context(), "datalake."+cmd.Name())
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return fn(ctx, application, logger)
}
