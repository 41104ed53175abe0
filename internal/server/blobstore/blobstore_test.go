package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	data := []byte("payload")
	require.NoError(t, m.Put(ctx, "k1", data))
	data[0] = 'X'

	got, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
	assert.Equal(t, []string{"k1"}, m.Keys())

	require.NoError(t, m.Delete(ctx, "k1"))
	require.NoError(t, m.Delete(ctx, "k1"))
	_, err = m.Get(ctx, "k1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, m.Put(cctx, "k2", nil), context.Canceled)
}

// fakeS3 embeds s3API so unexpected calls panic.
type fakeS3 struct {
	s3API

	mu      sync.Mutex
	objects map[string][]byte
	bucket  string
	fail    error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bucket = aws.ToString(in.Bucket)
	f.objects[aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func withFakeS3(t *testing.T, fake *fakeS3) (*awsconfig.LoadOptions, *s3.Options) {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	var lo awsconfig.LoadOptions
	var so s3.Options
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				return aws.Config{}, err
			}
		}
		return aws.Config{Region: lo.Region, Credentials: lo.Credentials}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&so)
		}
		return fake
	}
	return &lo, &so
}

func TestNewS3Store_AppliesSettings(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	lo, so := withFakeS3(t, fake)

	_, err := NewS3Store(context.Background(), S3Config{
		Region:       "us-east-1",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		Bucket:       "photos",
		BaseEndpoint: "http://127.0.0.1:9000",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", lo.Region)
	require.NotNil(t, lo.Credentials)
	creds, err := lo.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "minioadmin", creds.AccessKeyID)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(so.BaseEndpoint))
	assert.True(t, so.UsePathStyle)
}

func TestNewS3Store_Errors(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{})
	require.Error(t, err)

	withFakeS3(t, &fakeS3{})
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err = NewS3Store(context.Background(), S3Config{Bucket: "b"})
	require.ErrorContains(t, err, "load aws config: no config")
}

func TestS3Store_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	withFakeS3(t, fake)

	s, err := NewS3Store(ctx, S3Config{Region: "us-east-1", Bucket: "photos"})
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "users/u1/photos/p1/x", []byte("jpeg")))
	assert.Equal(t, "photos", fake.bucket)

	got, err := s.Get(ctx, "users/u1/photos/p1/x")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), got)

	require.NoError(t, s.Delete(ctx, "users/u1/photos/p1/x"))
	_, err = s.Get(ctx, "users/u1/photos/p1/x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestS3Store_WrapsFailures(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	withFakeS3(t, fake)
	s, err := NewS3Store(ctx, S3Config{Bucket: "photos"})
	require.NoError(t, err)

	fake.fail = errors.New("503")
	assert.ErrorContains(t, s.Put(ctx, "k", nil), "put object k: 503")
	_, err = s.Get(ctx, "k")
	assert.ErrorContains(t, err, "get object k: 503")
	assert.NotErrorIs(t, err, common.ErrNotFound)
	assert.ErrorContains(t, s.Delete(ctx, "k"), "delete object k: 503")
}
