package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/epl-data-lake/internal/domain/lake"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type bucketRemover interface {
	Purge(ctx context.Context) (int, error)
	DeleteBucket(ctx context.Context) error
}

type catalogRemover interface {
	DeleteTable(ctx context.Context, database, table string) error
	DeleteDatabase(ctx context.Context, name string) error
}

type queryOutputRemover interface {
	RemoveOutput(ctx context.Context) error
}

// TeardownReport lists what a teardown run removed.
type TeardownReport struct {
	ObjectsDeleted int
	Steps          []string
}

// TeardownService removes everything SetupService creates, in reverse order.
// Missing resources are treated as already removed by the adapters, so the
// teardown can be re-run after a partial failure.
type TeardownService struct {
	store    bucketRemover
	registry catalogRemover
	query    queryOutputRemover
	layout   lake.Layout
	logger   *logging.Logger
}

func NewTeardownService(
	store bucketRemover,
	registry catalogRemover,
	query queryOutputRemover,
	layout lake.Layout,
	logger *logging.Logger,
) *TeardownService {
	if logger == nil {
		logger = logging.Default()
	}
	return &TeardownService{
		store:    store,
		registry: registry,
		query:    query,
		layout:   layout,
		logger:   logger,
	}
}

func (s *TeardownService) Run(ctx context.Context) (TeardownReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeardownService.Run", attribute.String("lake.bucket", s.layout.Bucket))
	var runErr error
	defer func() { endSpan(span, runErr) }()

	var report TeardownReport

	if err := s.registry.DeleteTable(ctx, s.layout.Database, s.layout.Table); err != nil {
		runErr = fmt.Errorf("%w: delete table %s.%s: %w", ErrCatalog, s.layout.Database, s.layout.Table, err)
		return report, runErr
	}
	report.Steps = append(report.Steps, "table "+s.layout.Database+"."+s.layout.Table)
	s.logger.InfoContext(ctx, "catalog table removed", "database", s.layout.Database, "table", s.layout.Table)

	if err := s.registry.DeleteDatabase(ctx, s.layout.Database); err != nil {
		runErr = fmt.Errorf("%w: delete database %s: %w", ErrCatalog, s.layout.Database, err)
		return report, runErr
	}
	report.Steps = append(report.Steps, "database "+s.layout.Database)
	s.logger.InfoContext(ctx, "catalog database removed", "database", s.layout.Database)

	if err := s.query.RemoveOutput(ctx); err != nil {
		runErr = fmt.Errorf("%w: remove query output configuration: %w", ErrQuery, err)
		return report, runErr
	}
	report.Steps = append(report.Steps, "workgroup "+s.layout.WorkGroup)
	s.logger.InfoContext(ctx, "query output configuration removed", "workgroup", s.layout.WorkGroup)

	deleted, err := s.store.Purge(ctx)
	report.ObjectsDeleted = deleted
	if err != nil {
		runErr = fmt.Errorf("%w: purge bucket %s: %w", ErrStorage, s.layout.Bucket, err)
		return report, runErr
	}
	report.Steps = append(report.Steps, fmt.Sprintf("objects %d", deleted))
	s.logger.InfoContext(ctx, "bucket objects removed", "bucket", s.layout.Bucket, "objects", deleted)

	if err := s.store.DeleteBucket(ctx); err != nil {
		runErr = fmt.Errorf("%w: delete bucket %s: %w", ErrStorage, s.layout.Bucket, err)
		return report, runErr
	}
	report.Steps = append(report.Steps, "bucket "+s.layout.Bucket)
	s.logger.InfoContext(ctx, "data lake teardown complete", "bucket", s.layout.Bucket)

	return report, nil
}
