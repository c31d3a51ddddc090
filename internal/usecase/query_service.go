package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/epl-data-lake/internal/domain/lake"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
)

// QueryResult holds the rows of a finished ad hoc query. The first row of a
// SELECT is its column header.
type QueryResult struct {
	ExecutionID string
	Rows        [][]string
}

type QueryRunner interface {
	Run(ctx context.Context, database, sql string) (QueryResult, error)
}

// QueryService runs SQL against the registered lake table.
type QueryService struct {
	runner QueryRunner
	layout lake.Layout
	logger *logging.Logger
}

func NewQueryService(runner QueryRunner, layout lake.Layout, logger *logging.Logger) *QueryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &QueryService{runner: runner, layout: layout, logger: logger}
}

// DefaultSQL is a small sanity query against the player table.
func (s *QueryService) DefaultSQL() string {
	return fmt.Sprintf(`SELECT "team", COUNT(*) AS players FROM "%s"."%s" GROUP BY "team" ORDER BY "team"`, s.layout.Database, s.layout.Table)
}

func (s *QueryService) Run(ctx context.Context, sql string) (QueryResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.Run")
	var runErr error
	defer func() { endSpan(span, runErr) }()

	sql = strings.TrimSpace(sql)
	if sql == "" {
		runErr = fmt.Errorf("%w: query string is required", ErrInvalidInput)
		return QueryResult{}, runErr
	}

	result, err := s.runner.Run(ctx, s.layout.Database, sql)
	if err != nil {
		runErr = fmt.Errorf("%w: %w", ErrQuery, err)
		return QueryResult{}, runErr
	}

	s.logger.InfoContext(ctx, "query finished", "execution_id", result.ExecutionID, "rows", len(result.Rows))
	return result, nil
}
