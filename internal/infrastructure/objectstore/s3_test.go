package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	put       *s3.PutObjectInput
	body      string
	putErr    error
	headErr   error
	created   bool
	createErr error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.putErr
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) CreateBucket(context.Context, *s3.CreateBucketInput, ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = true
	return &s3.CreateBucketOutput{}, f.createErr
}

func TestPut(t *testing.T) {
	fake := &fakeS3{}
	store := NewS3StoreWithClient(fake, "docs")

	err := store.Put(context.Background(), "CR/2024/CR-2024-000001/a-scan.pdf", "application/pdf", strings.NewReader("pdf"), 3)
	require.NoError(t, err)

	assert.Equal(t, "docs", aws.ToString(fake.put.Bucket))
	assert.Equal(t, "CR/2024/CR-2024-000001/a-scan.pdf", aws.ToString(fake.put.Key))
	assert.Equal(t, "application/pdf", aws.ToString(fake.put.ContentType))
	assert.EqualValues(t, 3, aws.ToInt64(fake.put.ContentLength))
	assert.Equal(t, "pdf", fake.body)
}

func TestPut_Errors(t *testing.T) {
	store := NewS3StoreWithClient(&fakeS3{putErr: errors.New("denied")}, "docs")
	err := store.Put(context.Background(), "k", "text/plain", strings.NewReader(""), 0)
	assert.ErrorContains(t, err, "denied")

	err = store.Put(context.Background(), "", "text/plain", strings.NewReader(""), 0)
	assert.Error(t, err)
}

func TestEnsureBucket(t *testing.T) {
	existing := &fakeS3{}
	require.NoError(t, NewS3StoreWithClient(existing, "docs").EnsureBucket(context.Background()))
	assert.False(t, existing.created)

	missing := &fakeS3{headErr: &s3types.NotFound{}}
	require.NoError(t, NewS3StoreWithClient(missing, "docs").EnsureBucket(context.Background()))
	assert.True(t, missing.created)

	raced := &fakeS3{headErr: &s3types.NoSuchBucket{}, createErr: &s3types.BucketAlreadyOwnedByYou{}}
	assert.NoError(t, NewS3StoreWithClient(raced, "docs").EnsureBucket(context.Background()))

	broken := &fakeS3{headErr: errors.New("forbidden")}
	assert.Error(t, NewS3StoreWithClient(broken, "docs").EnsureBucket(context.Background()))
}
