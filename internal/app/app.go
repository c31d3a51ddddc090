package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/riskibarqy/epl-data-lake/external/sportsdata"
	"github.com/riskibarqy/epl-data-lake/internal/config"
	"github.com/riskibarqy/epl-data-lake/internal/infrastructure/athenaquery"
	"github.com/riskibarqy/epl-data-lake/internal/infrastructure/gluecatalog"
	"github.com/riskibarqy/epl-data-lake/internal/infrastructure/objectstore"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/riskibarqy/epl-data-lake/internal/usecase"
)

// App holds the services the commands run, wired once per process.
type App struct {
	Config   config.Config
	Provider *sportsdata.Client
	Setup    *usecase.SetupService
	Teardown *usecase.TeardownService
	Query    *usecase.QueryService
}

// New loads AWS credentials through the default chain for cfg.AWSRegion and
// builds every adapter and service.
func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithAWS(cfg, awsCfg, logger), nil
}

// NewWithAWS builds the app on an already resolved AWS configuration.
func NewWithAWS(cfg config.Config, awsCfg aws.Config, logger *logging.Logger) *App {
	if logger == nil {
		logger = logging.Default()
	}
	layout := cfg.Layout()

	provider := sportsdata.NewClient(sportsdata.ClientConfig{
		HTTPClient:  &http.Client{Timeout: cfg.SportsDataTimeout},
		BaseURL:     cfg.SportsDataBaseURL,
		Competition: cfg.SportsDataCompetition,
		APIKey:      cfg.SportsDataAPIKey,
		Timeout:     cfg.SportsDataTimeout,
		Logger:      logger.With("component", "sportsdata"),
		Breaker:     cfg.SportsDataCircuit,
	})

	store := objectstore.NewStore(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.AWSRegion, logger.With("component", "objectstore"))
	registrar := gluecatalog.NewRegistrar(glue.NewFromConfig(awsCfg), logger.With("component", "gluecatalog"))
	athenaClient := athenaquery.NewClient(athena.NewFromConfig(awsCfg), athenaquery.ClientConfig{
		WorkGroup:    cfg.WorkGroup,
		PollInterval: cfg.PollInterval,
		Logger:       logger.With("component", "athenaquery"),
	})

	return &App{
		Config:   cfg,
		Provider: provider,
		Setup:    usecase.NewSetupService(provider, store, registrar, athenaClient, layout, cfg.Teams, logger),
		Teardown: usecase.NewTeardownService(store, registrar, athenaClient, layout, logger),
		Query:    usecase.NewQueryService(athenaClient, layout, logger),
	}
}
