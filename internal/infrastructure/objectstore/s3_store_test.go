package objectstore

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/epl-data-lake/internal/domain/player"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/bytebufferpool"
)

type mockS3 struct {
	S3API
	mock.Mock
	bodies map[string]string
}

func newMockS3() *mockS3 {
	return &mockS3{bodies: make(map[string]string)}
}

func (m *mockS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, aws.ToString(in.Bucket))
	return &s3.HeadBucketOutput{}, args.Error(0)
}

func (m *mockS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	constraint := ""
	if in.CreateBucketConfiguration != nil {
		constraint = string(in.CreateBucketConfiguration.LocationConstraint)
	}
	args := m.Called(ctx, aws.ToString(in.Bucket), constraint)
	return &s3.CreateBucketOutput{}, args.Error(0)
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	raw, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	m.bodies[key] = string(raw)
	args := m.Called(ctx, key, aws.ToString(in.ContentType))
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *mockS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

func (m *mockS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, aws.ToString(in.ContinuationToken))
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func (m *mockS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	keys := make([]string, 0, len(in.Delete.Objects))
	for _, object := range in.Delete.Objects {
		keys = append(keys, aws.ToString(object.Key))
	}
	args := m.Called(ctx, keys)
	out, _ := args.Get(0).(*s3.DeleteObjectsOutput)
	return out, args.Error(1)
}

func (m *mockS3) DeleteBucket(ctx context.Context, in *s3.DeleteBucketInput, _ ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	args := m.Called(ctx, aws.ToString(in.Bucket))
	return &s3.DeleteBucketOutput{}, args.Error(0)
}

func newTestStore(client S3API, region string) *Store {
	return NewStore(client, "epl-lake-test", region, logging.NewNop())
}

func TestStore_EnsureBucket_ExistingBucketIsNoop(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("HeadBucket", ctx, "epl-lake-test").Return(nil).Once()

	require.NoError(t, newTestStore(client, "eu-central-1").EnsureBucket(ctx))
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "CreateBucket", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_EnsureBucket_CreatesWithRegionConstraint(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("HeadBucket", ctx, "epl-lake-test").Return(&types.NotFound{}).Once()
	client.On("CreateBucket", ctx, "epl-lake-test", "eu-central-1").Return(nil).Once()

	require.NoError(t, newTestStore(client, "eu-central-1").EnsureBucket(ctx))
	client.AssertExpectations(t)
}

func TestStore_EnsureBucket_UsEast1OmitsConstraint(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("HeadBucket", ctx, "epl-lake-test").Return(&types.NotFound{}).Once()
	client.On("CreateBucket", ctx, "epl-lake-test", "").Return(nil).Once()

	require.NoError(t, newTestStore(client, "us-east-1").EnsureBucket(ctx))
	client.AssertExpectations(t)
}

func TestStore_EnsureBucket_AlreadyOwnedIsSuccess(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("HeadBucket", ctx, "epl-lake-test").Return(&types.NotFound{}).Once()
	client.On("CreateBucket", ctx, "epl-lake-test", "eu-central-1").Return(&types.BucketAlreadyOwnedByYou{}).Once()

	require.NoError(t, newTestStore(client, "eu-central-1").EnsureBucket(ctx))
}

func TestStore_EnsureBucket_AccessDeniedFails(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("HeadBucket", ctx, "epl-lake-test").Return(errors.New("403 forbidden")).Once()

	err := newTestStore(client, "eu-central-1").EnsureBucket(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "head bucket epl-lake-test")
}

func TestStore_PutRecords_WritesOneJSONObjectPerLine(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("PutObject", ctx, "raw-data/arsenal.jsonl", ContentType).Return(nil).Once()

	records := []player.Record{
		{"PlayerID": 1, "FirstName": "Bukayo", "Team": "Arsenal"},
		{"PlayerID": 2, "FirstName": "Declan", "Team": "Arsenal"},
	}
	require.NoError(t, newTestStore(client, "eu-central-1").PutRecords(ctx, "raw-data/arsenal.jsonl", records))

	body := client.bodies["raw-data/arsenal.jsonl"]
	require.True(t, strings.HasSuffix(body, "\n"))

	lines := 0
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		var decoded map[string]any
		require.NoError(t, sonic.UnmarshalString(scanner.Text(), &decoded))
		assert.Equal(t, "Arsenal", decoded["Team"])
		lines++
	}
	assert.Equal(t, 2, lines)
	client.AssertExpectations(t)
}

func TestStore_PutRecords_EmptySquadWritesEmptyObject(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("PutObject", ctx, "raw-data/empty.jsonl", ContentType).Return(nil).Once()

	require.NoError(t, newTestStore(client, "eu-central-1").PutRecords(ctx, "raw-data/empty.jsonl", nil))
	assert.Empty(t, client.bodies["raw-data/empty.jsonl"])
}

func TestStore_PutRecords_PropagatesUploadFailure(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("PutObject", ctx, "raw-data/arsenal.jsonl", ContentType).Return(errors.New("access denied")).Once()

	err := newTestStore(client, "eu-central-1").PutRecords(ctx, "raw-data/arsenal.jsonl", []player.Record{{"PlayerID": 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://epl-lake-test/raw-data/arsenal.jsonl")
}

func TestStore_Delete_MissingKeyIsSuccess(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("DeleteObject", ctx, "raw-data/chelsea.jsonl").Return(&types.NoSuchKey{}).Once()

	require.NoError(t, newTestStore(client, "eu-central-1").Delete(ctx, "raw-data/chelsea.jsonl"))
}

func TestStore_Purge_DeletesEveryPage(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("ListObjectsV2", ctx, "").Return(&s3.ListObjectsV2Output{
		Contents:              []types.Object{{Key: aws.String("raw-data/a.jsonl")}, {Key: aws.String("raw-data/b.jsonl")}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("page-2"),
	}, nil).Once()
	client.On("ListObjectsV2", ctx, "page-2").Return(&s3.ListObjectsV2Output{
		Contents:    []types.Object{{Key: aws.String("athena-results/q1.csv")}},
		IsTruncated: aws.Bool(false),
	}, nil).Once()
	client.On("DeleteObjects", ctx, []string{"raw-data/a.jsonl", "raw-data/b.jsonl"}).Return(&s3.DeleteObjectsOutput{}, nil).Once()
	client.On("DeleteObjects", ctx, []string{"athena-results/q1.csv"}).Return(&s3.DeleteObjectsOutput{}, nil).Once()

	deleted, err := newTestStore(client, "eu-central-1").Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	client.AssertExpectations(t)
}

func TestStore_Purge_MissingBucketIsEmpty(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("ListObjectsV2", ctx, "").Return(nil, &types.NoSuchBucket{}).Once()

	deleted, err := newTestStore(client, "eu-central-1").Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestStore_Purge_ReportsPartialFailure(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("ListObjectsV2", ctx, "").Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{{Key: aws.String("a")}, {Key: aws.String("b")}},
	}, nil).Once()
	client.On("DeleteObjects", ctx, []string{"a", "b"}).Return(&s3.DeleteObjectsOutput{
		Errors: []types.Error{{Key: aws.String("b"), Code: aws.String("AccessDenied")}},
	}, nil).Once()

	deleted, err := newTestStore(client, "eu-central-1").Purge(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, deleted)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestStore_DeleteBucket_MissingIsSuccess(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.On("DeleteBucket", ctx, "epl-lake-test").Return(&types.NoSuchBucket{}).Once()

	require.NoError(t, newTestStore(client, "eu-central-1").DeleteBucket(ctx))
}

func TestEncodeLines_UnencodableRecordWritesNothing(t *testing.T) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	err := EncodeLines(buf, []player.Record{{"ok": 1}, {"bad": make(chan int)}})
	require.Error(t, err)
	assert.Zero(t, buf.Len())
}
