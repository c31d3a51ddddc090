package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/epl-data-lake/internal/domain/player"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
)

// ContentType is the media type of every object written by the store.
const ContentType = "application/x-ndjson"

// S3API is the slice of the S3 client the store needs.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// Store writes line-delimited JSON objects into a single bucket.
type Store struct {
	client S3API
	bucket string
	region string
	logger *logging.Logger
}

func NewStore(client S3API, bucket, region string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		client: client,
		bucket: strings.TrimSpace(bucket),
		region: strings.TrimSpace(region),
		logger: logger,
	}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		s.logger.InfoContext(ctx, "bucket already exists, skipping creation", "bucket", s.bucket)
		return nil
	}
	if !isNotFound(err) {
		return crerr.Wrapf(err, "head bucket %s", s.bucket)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	// us-east-1 rejects an explicit location constraint.
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if crerr.As(err, &owned) {
			return nil
		}
		return crerr.Wrapf(err, "create bucket %s", s.bucket)
	}
	s.logger.InfoContext(ctx, "bucket created", "bucket", s.bucket, "region", s.region)
	return nil
}

// PutRecords overwrites key with one compact JSON object per line.
func (s *Store) PutRecords(ctx context.Context, key string, records []player.Record) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := EncodeLines(buf, records); err != nil {
		return crerr.Wrapf(err, "encode %s", key)
	}

	// The pooled buffer is reused after return, so the body gets its own copy.
	body := append([]byte(nil), buf.B...)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(ContentType),
	})
	if err != nil {
		return crerr.Wrapf(err, "put object s3://%s/%s", s.bucket, key)
	}
	return nil
}

// Delete removes key. Deleting a missing object is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return crerr.Wrapf(err, "delete object s3://%s/%s", s.bucket, key)
	}
	return nil
}

// Purge deletes every object in the bucket, page by page, and reports how
// many were removed. A missing bucket has nothing to purge.
func (s *Store) Purge(ctx context.Context) (int, error) {
	deleted := 0
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				return deleted, nil
			}
			return deleted, crerr.Wrapf(err, "list objects in %s", s.bucket)
		}
		if len(page.Contents) == 0 {
			continue
		}

		identifiers := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, object := range page.Contents {
			identifiers = append(identifiers, types.ObjectIdentifier{Key: object.Key})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: identifiers, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, crerr.Wrapf(err, "delete %d objects in %s", len(identifiers), s.bucket)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return deleted + len(identifiers) - len(out.Errors), crerr.Newf(
				"delete objects in %s: %d failed, first key=%s code=%s",
				s.bucket, len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Code),
			)
		}
		deleted += len(identifiers)
	}
	return deleted, nil
}

// DeleteBucket removes the (already empty) bucket.
func (s *Store) DeleteBucket(ctx context.Context) error {
	_, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		if isNotFound(err) {
			s.logger.InfoContext(ctx, "bucket already removed", "bucket", s.bucket)
			return nil
		}
		return crerr.Wrapf(err, "delete bucket %s", s.bucket)
	}
	return nil
}

// EncodeLines writes each record as one compact JSON line terminated by a
// newline. Nothing is written when any record fails to encode.
func EncodeLines(buf *bytebufferpool.ByteBuffer, records []player.Record) error {
	lines := make([][]byte, 0, len(records))
	for idx, record := range records {
		line, err := sonic.Marshal(record)
		if err != nil {
			return fmt.Errorf("record %d: %w", idx, err)
		}
		lines = append(lines, line)
	}
	for _, line := range lines {
		_, _ = buf.Write(line)
		_ = buf.WriteByte('\n')
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if crerr.As(err, &notFound) {
		return true
	}
	var noBucket *types.NoSuchBucket
	if crerr.As(err, &noBucket) {
		return true
	}
	var noKey *types.NoSuchKey
	if crerr.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	if crerr.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket", "NoSuchKey":
			return true
		}
	}
	return false
}
