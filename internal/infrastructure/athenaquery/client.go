package athenaquery

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/riskibarqy/epl-data-lake/internal/usecase"
)

// PrimaryWorkGroup is the account default workgroup. It can be updated but
// never deleted.
const PrimaryWorkGroup = "primary"

const defaultPollInterval = time.Second

// AthenaAPI is the slice of the Athena client the query adapter needs.
type AthenaAPI interface {
	ListWorkGroups(ctx context.Context, params *athena.ListWorkGroupsInput, optFns ...func(*athena.Options)) (*athena.ListWorkGroupsOutput, error)
	CreateWorkGroup(ctx context.Context, params *athena.CreateWorkGroupInput, optFns ...func(*athena.Options)) (*athena.CreateWorkGroupOutput, error)
	UpdateWorkGroup(ctx context.Context, params *athena.UpdateWorkGroupInput, optFns ...func(*athena.Options)) (*athena.UpdateWorkGroupOutput, error)
	DeleteWorkGroup(ctx context.Context, params *athena.DeleteWorkGroupInput, optFns ...func(*athena.Options)) (*athena.DeleteWorkGroupOutput, error)
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

var _ AthenaAPI = (*athena.Client)(nil)

var (
	_ usecase.QueryOutputConfigurer = (*Client)(nil)
	_ usecase.QueryRunner           = (*Client)(nil)
)

type ClientConfig struct {
	WorkGroup    string
	PollInterval time.Duration
	Logger       *logging.Logger
}

// Client owns the Athena workgroup of the lake and runs queries in it.
type Client struct {
	api          AthenaAPI
	workGroup    string
	pollInterval time.Duration
	logger       *logging.Logger
}

func NewClient(api AthenaAPI, cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	workGroup := strings.TrimSpace(cfg.WorkGroup)
	if workGroup == "" {
		workGroup = PrimaryWorkGroup
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Client{api: api, workGroup: workGroup, pollInterval: interval, logger: logger}
}

// ConfigureOutput points the workgroup's query results at location, creating
// the workgroup when it does not exist yet.
func (c *Client) ConfigureOutput(ctx context.Context, location string) error {
	exists, err := c.workGroupExists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		_, err := c.api.CreateWorkGroup(ctx, &athena.CreateWorkGroupInput{
			Name:        aws.String(c.workGroup),
			Description: aws.String("Ad hoc queries over the EPL player data lake"),
			Configuration: &types.WorkGroupConfiguration{
				ResultConfiguration: &types.ResultConfiguration{OutputLocation: aws.String(location)},
			},
		})
		if err != nil {
			return crerr.Wrapf(err, "create athena workgroup %s", c.workGroup)
		}
		c.logger.InfoContext(ctx, "athena workgroup created", "workgroup", c.workGroup, "output", location)
		return nil
	}

	_, err = c.api.UpdateWorkGroup(ctx, &athena.UpdateWorkGroupInput{
		WorkGroup: aws.String(c.workGroup),
		ConfigurationUpdates: &types.WorkGroupConfigurationUpdates{
			ResultConfigurationUpdates: &types.ResultConfigurationUpdates{OutputLocation: aws.String(location)},
		},
	})
	if err != nil {
		return crerr.Wrapf(err, "update athena workgroup %s", c.workGroup)
	}
	c.logger.InfoContext(ctx, "athena workgroup output updated", "workgroup", c.workGroup, "output", location)
	return nil
}

// RemoveOutput deletes the lake workgroup together with its query history.
// The primary workgroup is left in place.
func (c *Client) RemoveOutput(ctx context.Context) error {
	if c.workGroup == PrimaryWorkGroup {
		c.logger.InfoContext(ctx, "keeping primary athena workgroup")
		return nil
	}

	exists, err := c.workGroupExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	_, err = c.api.DeleteWorkGroup(ctx, &athena.DeleteWorkGroupInput{
		WorkGroup:             aws.String(c.workGroup),
		RecursiveDeleteOption: aws.Bool(true),
	})
	if err != nil {
		return crerr.Wrapf(err, "delete athena workgroup %s", c.workGroup)
	}
	return nil
}

// Run executes sql against database, waits for a terminal state and returns
// every result row.
func (c *Client) Run(ctx context.Context, database, sql string) (usecase.QueryResult, error) {
	started, err := c.api.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString:           aws.String(sql),
		WorkGroup:             aws.String(c.workGroup),
		QueryExecutionContext: &types.QueryExecutionContext{Database: aws.String(database)},
	})
	if err != nil {
		return usecase.QueryResult{}, crerr.Wrap(err, "start athena query")
	}
	executionID := aws.ToString(started.QueryExecutionId)
	c.logger.DebugContext(ctx, "athena query started", "execution_id", executionID, "workgroup", c.workGroup)

	if err := c.wait(ctx, executionID); err != nil {
		return usecase.QueryResult{ExecutionID: executionID}, err
	}

	rows, err := c.results(ctx, executionID)
	if err != nil {
		return usecase.QueryResult{ExecutionID: executionID}, err
	}
	return usecase.QueryResult{ExecutionID: executionID, Rows: rows}, nil
}

func (c *Client) wait(ctx context.Context, executionID string) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		out, err := c.api.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{QueryExecutionId: aws.String(executionID)})
		if err != nil {
			return crerr.Wrapf(err, "get athena query %s", executionID)
		}
		if out.QueryExecution == nil || out.QueryExecution.Status == nil {
			return crerr.Newf("athena query %s has no status", executionID)
		}

		status := out.QueryExecution.Status
		switch status.State {
		case types.QueryExecutionStateSucceeded:
			return nil
		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			return crerr.Newf("athena query %s %s: %s", executionID, strings.ToLower(string(status.State)), aws.ToString(status.StateChangeReason))
		}
		timer.Reset(c.pollInterval)
	}
}

func (c *Client) results(ctx context.Context, executionID string) ([][]string, error) {
	var rows [][]string
	paginator := athena.NewGetQueryResultsPaginator(c.api, &athena.GetQueryResultsInput{QueryExecutionId: aws.String(executionID)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, crerr.Wrapf(err, "read athena results %s", executionID)
		}
		if page.ResultSet == nil {
			continue
		}
		for _, row := range page.ResultSet.Rows {
			values := make([]string, 0, len(row.Data))
			for _, datum := range row.Data {
				values = append(values, aws.ToString(datum.VarCharValue))
			}
			rows = append(rows, values)
		}
	}
	return rows, nil
}

func (c *Client) workGroupExists(ctx context.Context) (bool, error) {
	paginator := athena.NewListWorkGroupsPaginator(c.api, &athena.ListWorkGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return false, crerr.Wrap(err, "list athena workgroups")
		}
		for _, summary := range page.WorkGroups {
			if aws.ToString(summary.Name) == c.workGroup {
				return true, nil
			}
		}
	}
	return false, nil
}
