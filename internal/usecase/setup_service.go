package usecase

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/riskibarqy/epl-data-lake/internal/domain/catalog"
	"github.com/riskibarqy/epl-data-lake/internal/domain/lake"
	"github.com/riskibarqy/epl-data-lake/internal/domain/player"
	"github.com/riskibarqy/epl-data-lake/internal/domain/team"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// PlayerFetcher pulls squads from the sports data provider.
type PlayerFetcher interface {
	FetchTeams(ctx context.Context) ([]team.Team, error)
	FetchPlayers(ctx context.Context, t team.Team) ([]player.Record, error)
}

// RecordStore writes line-delimited JSON objects into the lake bucket.
type RecordStore interface {
	EnsureBucket(ctx context.Context) error
	PutRecords(ctx context.Context, key string, records []player.Record) error
	Delete(ctx context.Context, key string) error
}

// CatalogRegistrar defines the lake schema in the metadata catalog.
type CatalogRegistrar interface {
	EnsureDatabase(ctx context.Context, name string) error
	ReplaceTable(ctx context.Context, table catalog.Table) error
}

// QueryOutputConfigurer points the ad hoc query service at a result location.
type QueryOutputConfigurer interface {
	ConfigureOutput(ctx context.Context, location string) error
}

// TeamState is the terminal state of one team inside a run.
type TeamState string

const (
	TeamStateFetching TeamState = "fetching"
	TeamStateWriting  TeamState = "writing"
	TeamStateDone     TeamState = "done"
	TeamStateFailed   TeamState = "failed"
)

// TeamOutcome is the result of processing one team.
type TeamOutcome struct {
	Team      team.Team
	State     TeamState
	ObjectKey string
	Rows      int
	Err       error
}

// SetupReport aggregates the outcome of a setup run.
type SetupReport struct {
	Outcomes        []TeamOutcome
	Done            int
	Failed          int
	Rows            int
	TableLocation   string
	ResultsLocation string
}

type SetupService struct {
	fetcher  PlayerFetcher
	store    RecordStore
	registry CatalogRegistrar
	query    QueryOutputConfigurer
	layout   lake.Layout
	teams    []team.Team
	logger   *logging.Logger
}

func NewSetupService(
	fetcher PlayerFetcher,
	store RecordStore,
	registry CatalogRegistrar,
	query QueryOutputConfigurer,
	layout lake.Layout,
	teams []team.Team,
	logger *logging.Logger,
) *SetupService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SetupService{
		fetcher:  fetcher,
		store:    store,
		registry: registry,
		query:    query,
		layout:   layout,
		teams:    teams,
		logger:   logger,
	}
}

// Run provisions the bucket and database, loads every team, then registers
// the table and the query output location exactly once. Per-team fetch
// failures are recorded in the report; storage, catalog and query failures
// abort the run and are returned together with the partial report.
func (s *SetupService) Run(ctx context.Context) (SetupReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SetupService.Run",
		attribute.String("lake.bucket", s.layout.Bucket),
		attribute.String("lake.table", s.layout.Table),
	)
	var runErr error
	defer func() { endSpan(span, runErr) }()

	report := SetupReport{
		TableLocation:   s.layout.TableLocation(),
		ResultsLocation: s.layout.ResultsLocation(),
	}

	table := s.layout.TableDefinition()
	if err := table.Validate(); err != nil {
		runErr = fmt.Errorf("%w: %v", ErrInvalidInput, err)
		return report, runErr
	}

	if err := s.store.EnsureBucket(ctx); err != nil {
		runErr = fmt.Errorf("%w: ensure bucket %s: %w", ErrStorage, s.layout.Bucket, err)
		return report, runErr
	}
	if err := s.registry.EnsureDatabase(ctx, s.layout.Database); err != nil {
		runErr = fmt.Errorf("%w: ensure database %s: %w", ErrCatalog, s.layout.Database, err)
		return report, runErr
	}

	teams, err := s.resolveTeams(ctx)
	if err != nil {
		runErr = err
		return report, runErr
	}

	s.logger.InfoContext(ctx, "loading teams into data lake", "teams", len(teams), "bucket", s.layout.Bucket)
	for _, t := range teams {
		outcome, err := s.processTeam(ctx, t)
		report.Outcomes = append(report.Outcomes, outcome)
		switch outcome.State {
		case TeamStateDone:
			report.Done++
			report.Rows += outcome.Rows
		case TeamStateFailed:
			report.Failed++
		}
		if err != nil {
			runErr = err
			return report, runErr
		}
	}

	if err := s.registry.ReplaceTable(ctx, table); err != nil {
		runErr = fmt.Errorf("%w: register table %s.%s: %w", ErrCatalog, table.Database, table.Name, err)
		return report, runErr
	}
	s.logger.InfoContext(ctx, "catalog table registered", "database", table.Database, "table", table.Name, "location", table.Location)

	if err := s.query.ConfigureOutput(ctx, report.ResultsLocation); err != nil {
		runErr = fmt.Errorf("%w: configure output %s: %w", ErrQuery, report.ResultsLocation, err)
		return report, runErr
	}
	s.logger.InfoContext(ctx, "query output location configured", "location", report.ResultsLocation)

	s.logger.InfoContext(ctx, "data lake setup complete",
		"teams_done", report.Done,
		"teams_failed", report.Failed,
		"rows", report.Rows,
	)
	return report, nil
}

func (s *SetupService) resolveTeams(ctx context.Context) ([]team.Team, error) {
	if len(s.teams) > 0 {
		return s.teams, nil
	}

	teams, err := s.fetcher.FetchTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve team list: %w", err)
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("%w: provider returned no teams", ErrInvalidInput)
	}
	return teams, nil
}

// processTeam returns a non-nil error only when the whole run must stop.
func (s *SetupService) processTeam(ctx context.Context, t team.Team) (TeamOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SetupService.processTeam", attribute.String("team.key", t.Key))
	var fatal error
	defer func() { endSpan(span, fatal) }()

	outcome := TeamOutcome{
		Team:      t,
		State:     TeamStateFetching,
		ObjectKey: s.layout.ObjectKey(t),
	}

	records, err := s.fetcher.FetchPlayers(ctx, t)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome.State = TeamStateFailed
			outcome.Err = ctxErr
			fatal = ctxErr
			return outcome, fatal
		}
		if !stderrors.Is(err, ErrFetch) {
			err = &FetchError{TeamKey: t.Key, Err: err}
		}
		outcome.State = TeamStateFailed
		outcome.Err = err
		s.logger.WarnContext(ctx, "skipping team after fetch failure", "team", t.DisplayName(), "team_key", t.Key, "error", err)

		// A failed team contributes no rows, so an object left by an earlier
		// run must not stay behind the table.
		if delErr := s.store.Delete(ctx, outcome.ObjectKey); delErr != nil {
			fatal = fmt.Errorf("%w: remove stale object %s: %w", ErrStorage, outcome.ObjectKey, delErr)
			return outcome, fatal
		}
		return outcome, nil
	}

	outcome.State = TeamStateWriting
	rows := make([]player.Record, 0, len(records))
	for _, record := range records {
		rows = append(rows, catalog.Project(record.WithTeam(t.DisplayName()), s.layout.Columns))
	}

	if err := s.store.PutRecords(ctx, outcome.ObjectKey, rows); err != nil {
		outcome.State = TeamStateFailed
		outcome.Err = err
		fatal = fmt.Errorf("%w: write team %s to %s: %w", ErrStorage, t.Key, outcome.ObjectKey, err)
		return outcome, fatal
	}

	outcome.State = TeamStateDone
	outcome.Rows = len(rows)
	s.logger.InfoContext(ctx, "team written", "team", t.DisplayName(), "rows", outcome.Rows, "key", outcome.ObjectKey)
	return outcome, nil
}
