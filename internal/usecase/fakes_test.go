package usecase

import (
	"context"
	"strings"

	"github.com/riskibarqy/epl-data-lake/internal/domain/catalog"
	"github.com/riskibarqy/epl-data-lake/internal/domain/lake"
	"github.com/riskibarqy/epl-data-lake/internal/domain/player"
	"github.com/riskibarqy/epl-data-lake/internal/domain/team"
	"github.com/stretchr/testify/mock"
)

func testLayout() lake.Layout {
	return lake.Layout{
		Bucket:        "epl-lake-test",
		RawPrefix:     "raw-data",
		ResultsPrefix: "athena-results",
		Database:      "epl_data_lake",
		Table:         "epl_players",
		WorkGroup:     "epl-data-lake",
		Columns:       catalog.DefaultPlayerColumns(),
	}
}

type fakeFetcher struct {
	teams    []team.Team
	teamsErr error
	players  map[string][]player.Record
	errs     map[string]error
	calls    []string
}

func (f *fakeFetcher) FetchTeams(context.Context) ([]team.Team, error) {
	return f.teams, f.teamsErr
}

func (f *fakeFetcher) FetchPlayers(_ context.Context, t team.Team) ([]player.Record, error) {
	f.calls = append(f.calls, t.Key)
	if err := f.errs[t.Key]; err != nil {
		return nil, err
	}
	return f.players[t.Key], nil
}

// memoryStore keeps objects keyed by object key, overwriting like S3 does.
type memoryStore struct {
	bucketEnsured int
	objects       map[string][]player.Record
	putErr        map[string]error
	deleted       []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]player.Record)}
}

func (m *memoryStore) EnsureBucket(context.Context) error {
	m.bucketEnsured++
	return nil
}

func (m *memoryStore) PutRecords(_ context.Context, key string, records []player.Record) error {
	if err := m.putErr[key]; err != nil {
		return err
	}
	m.objects[key] = records
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.objects, key)
	return nil
}

// memoryCatalog mimics create-if-absent / create-or-replace semantics.
type memoryCatalog struct {
	databases map[string]int
	tables    map[string]catalog.Table
	replaced  int
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{databases: make(map[string]int), tables: make(map[string]catalog.Table)}
}

func (m *memoryCatalog) EnsureDatabase(_ context.Context, name string) error {
	if _, ok := m.databases[name]; !ok {
		m.databases[name] = 1
	}
	return nil
}

func (m *memoryCatalog) ReplaceTable(_ context.Context, table catalog.Table) error {
	m.replaced++
	m.tables[table.Database+"."+table.Name] = table
	return nil
}

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) EnsureDatabase(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockRegistrar) ReplaceTable(ctx context.Context, table catalog.Table) error {
	return m.Called(ctx, table).Error(0)
}

type mockQueryOutput struct {
	mock.Mock
}

func (m *mockQueryOutput) ConfigureOutput(ctx context.Context, location string) error {
	return m.Called(ctx, location).Error(0)
}

func (m *mockQueryOutput) RemoveOutput(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// journal records teardown calls in order.
type journal struct {
	steps   []string
	failOn  string
	failErr error
	purged  int
}

func (j *journal) step(name string) error {
	j.steps = append(j.steps, name)
	if strings.HasPrefix(name, j.failOn) && j.failOn != "" {
		return j.failErr
	}
	return nil
}

func (j *journal) DeleteTable(_ context.Context, database, table string) error {
	return j.step("delete-table:" + database + "." + table)
}

func (j *journal) DeleteDatabase(_ context.Context, name string) error {
	return j.step("delete-database:" + name)
}

func (j *journal) RemoveOutput(context.Context) error {
	return j.step("remove-output")
}

func (j *journal) Purge(context.Context) (int, error) {
	return j.purged, j.step("purge")
}

func (j *journal) DeleteBucket(context.Context) error {
	return j.step("delete-bucket")
}

type fakeRunner struct {
	database string
	sql      string
	result   QueryResult
	err      error
}

func (f *fakeRunner) Run(_ context.Context, database, sql string) (QueryResult, error) {
	f.database = database
	f.sql = sql
	return f.result, f.err
}
