package gluecatalog

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/epl-data-lake/internal/domain/catalog"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/riskibarqy/epl-data-lake/internal/usecase"
)

const (
	tableTypeExternal = "EXTERNAL_TABLE"
	textInputFormat   = "org.apache.hadoop.mapred.TextInputFormat"
	textOutputFormat  = "org.apache.hadoop.hive.ql.io.HiveIgnoreKeyTextOutputFormat"
	jsonSerDe         = "org.openx.data.jsonserde.JsonSerDe"
)

// GlueAPI is the slice of the Glue client the registrar needs.
type GlueAPI interface {
	CreateDatabase(ctx context.Context, params *glue.CreateDatabaseInput, optFns ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error)
	DeleteDatabase(ctx context.Context, params *glue.DeleteDatabaseInput, optFns ...func(*glue.Options)) (*glue.DeleteDatabaseOutput, error)
	CreateTable(ctx context.Context, params *glue.CreateTableInput, optFns ...func(*glue.Options)) (*glue.CreateTableOutput, error)
	UpdateTable(ctx context.Context, params *glue.UpdateTableInput, optFns ...func(*glue.Options)) (*glue.UpdateTableOutput, error)
	DeleteTable(ctx context.Context, params *glue.DeleteTableInput, optFns ...func(*glue.Options)) (*glue.DeleteTableOutput, error)
}

var _ GlueAPI = (*glue.Client)(nil)

var _ usecase.CatalogRegistrar = (*Registrar)(nil)

// Registrar keeps the lake schema in the Glue data catalog.
type Registrar struct {
	client GlueAPI
	logger *logging.Logger
}

func NewRegistrar(client GlueAPI, logger *logging.Logger) *Registrar {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registrar{client: client, logger: logger}
}

// EnsureDatabase creates the database unless it already exists.
func (r *Registrar) EnsureDatabase(ctx context.Context, name string) error {
	_, err := r.client.CreateDatabase(ctx, &glue.CreateDatabaseInput{
		DatabaseInput: &types.DatabaseInput{
			Name:        aws.String(name),
			Description: aws.String("Data lake for English Premier League player data"),
		},
	})
	if err != nil {
		var exists *types.AlreadyExistsException
		if crerr.As(err, &exists) {
			r.logger.InfoContext(ctx, "glue database already exists", "database", name)
			return nil
		}
		return crerr.Wrapf(err, "create glue database %s", name)
	}
	r.logger.InfoContext(ctx, "glue database created", "database", name)
	return nil
}

// ReplaceTable creates the table, or overwrites its definition when a table
// with the same name is already registered.
func (r *Registrar) ReplaceTable(ctx context.Context, table catalog.Table) error {
	input := TableInput(table)

	_, err := r.client.CreateTable(ctx, &glue.CreateTableInput{
		DatabaseName: aws.String(table.Database),
		TableInput:   input,
	})
	if err == nil {
		return nil
	}

	var exists *types.AlreadyExistsException
	if !crerr.As(err, &exists) {
		return crerr.Wrapf(err, "create glue table %s.%s", table.Database, table.Name)
	}

	if _, err := r.client.UpdateTable(ctx, &glue.UpdateTableInput{
		DatabaseName: aws.String(table.Database),
		TableInput:   input,
	}); err != nil {
		return crerr.Wrapf(err, "update glue table %s.%s", table.Database, table.Name)
	}
	r.logger.InfoContext(ctx, "glue table definition replaced", "database", table.Database, "table", table.Name)
	return nil
}

func (r *Registrar) DeleteTable(ctx context.Context, database, table string) error {
	_, err := r.client.DeleteTable(ctx, &glue.DeleteTableInput{
		DatabaseName: aws.String(database),
		Name:         aws.String(table),
	})
	if err != nil && !isEntityNotFound(err) {
		return crerr.Wrapf(err, "delete glue table %s.%s", database, table)
	}
	return nil
}

func (r *Registrar) DeleteDatabase(ctx context.Context, name string) error {
	_, err := r.client.DeleteDatabase(ctx, &glue.DeleteDatabaseInput{Name: aws.String(name)})
	if err != nil && !isEntityNotFound(err) {
		return crerr.Wrapf(err, "delete glue database %s", name)
	}
	return nil
}

// TableInput maps a table definition onto an external JSON table: text files
// under the location, one object per line, read by the OpenX JSON SerDe.
func TableInput(table catalog.Table) *types.TableInput {
	columns := make([]types.Column, 0, len(table.Columns))
	for _, column := range table.Columns {
		columns = append(columns, types.Column{
			Name: aws.String(strings.ToLower(column.Name)),
			Type: aws.String(column.Type),
		})
	}

	input := &types.TableInput{
		Name:      aws.String(table.Name),
		TableType: aws.String(tableTypeExternal),
		Parameters: map[string]string{
			"classification": "json",
			"EXTERNAL":       "TRUE",
		},
		StorageDescriptor: &types.StorageDescriptor{
			Columns:      columns,
			Location:     aws.String(table.Location),
			InputFormat:  aws.String(textInputFormat),
			OutputFormat: aws.String(textOutputFormat),
			SerdeInfo: &types.SerDeInfo{
				SerializationLibrary: aws.String(jsonSerDe),
				Parameters: map[string]string{
					"ignore.malformed.json": "FALSE",
					"case.insensitive":      "TRUE",
				},
			},
		},
	}
	if strings.TrimSpace(table.Description) != "" {
		input.Description = aws.String(table.Description)
	}
	return input
}

func isEntityNotFound(err error) bool {
	var notFound *types.EntityNotFoundException
	return crerr.As(err, &notFound)
}
