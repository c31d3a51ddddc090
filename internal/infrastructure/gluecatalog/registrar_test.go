package gluecatalog

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/riskibarqy/epl-data-lake/internal/domain/catalog"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGlue keeps databases and tables in memory with the catalog's
// already-exists and not-found behavior.
type fakeGlue struct {
	databases map[string]bool
	tables    map[string]*types.TableInput
	creates   int
	updates   int
	createErr error
}

func newFakeGlue() *fakeGlue {
	return &fakeGlue{databases: make(map[string]bool), tables: make(map[string]*types.TableInput)}
}

func (f *fakeGlue) CreateDatabase(_ context.Context, in *glue.CreateDatabaseInput, _ ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error) {
	name := aws.ToString(in.DatabaseInput.Name)
	if f.databases[name] {
		return nil, &types.AlreadyExistsException{Message: aws.String("Database already exists.")}
	}
	f.databases[name] = true
	return &glue.CreateDatabaseOutput{}, nil
}

func (f *fakeGlue) DeleteDatabase(_ context.Context, in *glue.DeleteDatabaseInput, _ ...func(*glue.Options)) (*glue.DeleteDatabaseOutput, error) {
	name := aws.ToString(in.Name)
	if !f.databases[name] {
		return nil, &types.EntityNotFoundException{Message: aws.String("Database not found.")}
	}
	delete(f.databases, name)
	return &glue.DeleteDatabaseOutput{}, nil
}

func (f *fakeGlue) CreateTable(_ context.Context, in *glue.CreateTableInput, _ ...func(*glue.Options)) (*glue.CreateTableOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	key := aws.ToString(in.DatabaseName) + "." + aws.ToString(in.TableInput.Name)
	if _, ok := f.tables[key]; ok {
		return nil, &types.AlreadyExistsException{Message: aws.String("Table already exists.")}
	}
	f.creates++
	f.tables[key] = in.TableInput
	return &glue.CreateTableOutput{}, nil
}

func (f *fakeGlue) UpdateTable(_ context.Context, in *glue.UpdateTableInput, _ ...func(*glue.Options)) (*glue.UpdateTableOutput, error) {
	key := aws.ToString(in.DatabaseName) + "." + aws.ToString(in.TableInput.Name)
	if _, ok := f.tables[key]; !ok {
		return nil, &types.EntityNotFoundException{Message: aws.String("Table not found.")}
	}
	f.updates++
	f.tables[key] = in.TableInput
	return &glue.UpdateTableOutput{}, nil
}

func (f *fakeGlue) DeleteTable(_ context.Context, in *glue.DeleteTableInput, _ ...func(*glue.Options)) (*glue.DeleteTableOutput, error) {
	key := aws.ToString(in.DatabaseName) + "." + aws.ToString(in.Name)
	if _, ok := f.tables[key]; !ok {
		return nil, &types.EntityNotFoundException{Message: aws.String("Table not found.")}
	}
	delete(f.tables, key)
	return &glue.DeleteTableOutput{}, nil
}

func playerTable() catalog.Table {
	return catalog.Table{
		Database:    "epl_data_lake",
		Name:        "epl_players",
		Location:    "s3://epl-lake-test/raw-data/",
		Description: "players",
		Columns:     catalog.DefaultPlayerColumns(),
	}
}

func TestRegistrar_SetupTwiceLeavesOneDatabaseAndTable(t *testing.T) {
	ctx := context.Background()
	client := newFakeGlue()
	registrar := NewRegistrar(client, logging.NewNop())

	for i := 0; i < 2; i++ {
		require.NoError(t, registrar.EnsureDatabase(ctx, "epl_data_lake"))
		require.NoError(t, registrar.ReplaceTable(ctx, playerTable()))
	}

	assert.Len(t, client.databases, 1)
	assert.Len(t, client.tables, 1)
	assert.Equal(t, 1, client.creates)
	assert.Equal(t, 1, client.updates)
}

func TestRegistrar_ReplaceTableOverwritesDefinition(t *testing.T) {
	ctx := context.Background()
	client := newFakeGlue()
	registrar := NewRegistrar(client, logging.NewNop())

	require.NoError(t, registrar.ReplaceTable(ctx, playerTable()))

	changed := playerTable()
	changed.Columns = catalog.PlayerColumns([]string{"BirthCity"})
	require.NoError(t, registrar.ReplaceTable(ctx, changed))

	stored := client.tables["epl_data_lake.epl_players"]
	require.NotNil(t, stored)
	assert.Len(t, stored.StorageDescriptor.Columns, len(catalog.DefaultPlayerColumns())+1)
}

func TestRegistrar_ReplaceTablePropagatesOtherErrors(t *testing.T) {
	client := newFakeGlue()
	client.createErr = errors.New("AccessDeniedException")

	err := NewRegistrar(client, logging.NewNop()).ReplaceTable(context.Background(), playerTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create glue table epl_data_lake.epl_players")
	assert.Zero(t, client.updates)
}

func TestRegistrar_DeleteMissingResourcesIsSuccess(t *testing.T) {
	ctx := context.Background()
	registrar := NewRegistrar(newFakeGlue(), logging.NewNop())

	require.NoError(t, registrar.DeleteTable(ctx, "epl_data_lake", "epl_players"))
	require.NoError(t, registrar.DeleteDatabase(ctx, "epl_data_lake"))
}

func TestRegistrar_DeleteRemovesRegisteredResources(t *testing.T) {
	ctx := context.Background()
	client := newFakeGlue()
	registrar := NewRegistrar(client, logging.NewNop())

	require.NoError(t, registrar.EnsureDatabase(ctx, "epl_data_lake"))
	require.NoError(t, registrar.ReplaceTable(ctx, playerTable()))
	require.NoError(t, registrar.DeleteTable(ctx, "epl_data_lake", "epl_players"))
	require.NoError(t, registrar.DeleteDatabase(ctx, "epl_data_lake"))

	assert.Empty(t, client.tables)
	assert.Empty(t, client.databases)
}

func TestTableInput_DescribesLineDelimitedJSON(t *testing.T) {
	input := TableInput(playerTable())

	assert.Equal(t, "EXTERNAL_TABLE", aws.ToString(input.TableType))
	assert.Equal(t, "json", input.Parameters["classification"])
	require.NotNil(t, input.StorageDescriptor)
	assert.Equal(t, "s3://epl-lake-test/raw-data/", aws.ToString(input.StorageDescriptor.Location))
	assert.Equal(t, "org.openx.data.jsonserde.JsonSerDe", aws.ToString(input.StorageDescriptor.SerdeInfo.SerializationLibrary))

	names := make([]string, 0, len(input.StorageDescriptor.Columns))
	for _, column := range input.StorageDescriptor.Columns {
		names = append(names, aws.ToString(column.Name))
	}
	assert.Equal(t, []string{"playerid", "firstname", "lastname", "team", "position", "nationality", "jersey"}, names)
	assert.Equal(t, "int", aws.ToString(input.StorageDescriptor.Columns[0].Type))
}
