package dataset

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecbench/vecerr"
)

type fakeObjects struct {
	objects map[string][]byte
	gets    atomic.Int32
}

func (f *fakeObjects) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets.Add(1)
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func TestFetchDownloadsAndReusesCache(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{
		"bench/sets/tiny/tiny_base.fvecs":        []byte("base-bytes"),
		"bench/sets/tiny/tiny_query.fvecs":       []byte("query"),
		"bench/sets/tiny/tiny_groundtruth.ivecs": []byte("truth!"),
	}}
	cache := t.TempDir()
	f, err := NewFetcher(objects, cache, nil)
	require.NoError(t, err)

	files := Resolve("s3://bench/sets", "tiny", DefaultExtensions)
	local, err := f.Fetch(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "bench", "sets", "tiny", "tiny_base.fvecs"), local.Base)
	data, err := os.ReadFile(local.GroundTruth)
	require.NoError(t, err)
	assert.Equal(t, "truth!", string(data))
	assert.EqualValues(t, 3, objects.gets.Load())

	_, err = f.Fetch(context.Background(), files)
	require.NoError(t, err)
	assert.EqualValues(t, 3, objects.gets.Load())

	objects.objects["bench/sets/tiny/tiny_query.fvecs"] = []byte("a longer query")
	again, err := f.Fetch(context.Background(), files)
	require.NoError(t, err)
	assert.EqualValues(t, 4, objects.gets.Load())
	data, err = os.ReadFile(again.Query)
	require.NoError(t, err)
	assert.Equal(t, "a longer query", string(data))
}

func TestFetchLeavesLocalPaths(t *testing.T) {
	f, err := NewFetcher(&fakeObjects{}, t.TempDir(), nil)
	require.NoError(t, err)
	files := Resolve("/data", "tiny", DefaultExtensions)
	local, err := f.Fetch(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, files, local)
}

func TestFetchMissingObject(t *testing.T) {
	f, err := NewFetcher(&fakeObjects{objects: map[string][]byte{}}, t.TempDir(), nil)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), Resolve("s3://bench", "nope", DefaultExtensions))
	require.Error(t, err)
	assert.True(t, vecerr.IsNotFound(err))
	assert.Equal(t, "nope", vecerr.FieldsOf(err)["dataset"])
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := parseS3URI("s3://bench/a/b.fvecs")
	require.NoError(t, err)
	assert.Equal(t, "bench", bucket)
	assert.Equal(t, "a/b.fvecs", key)

	for _, bad := range []string{"s3://", "s3://bucket", "s3:///key", "/local/path"} {
		_, _, err := parseS3URI(bad)
		assert.Error(t, err, bad)
	}
}
