package dataset_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecbench/dataset"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vecfile"
	"github.com/viant/vecbench/vector"
)

func writeDataset(t *testing.T, root, name string, queryDim int) dataset.Files {
	t.Helper()
	files := dataset.Resolve(root, name, dataset.Extensions{})
	require.NoError(t, os.MkdirAll(filepath.Dir(files.Base), 0o755))
	require.NoError(t, vecfile.CreateVectors(files.Base, []vector.Vector{{1, 2}, {3, 4}, {5, 6}}))
	query := make(vector.Vector, queryDim)
	require.NoError(t, vecfile.CreateVectors(files.Query, []vector.Vector{query}))
	require.NoError(t, vecfile.CreateNeighborSets(files.GroundTruth, [][]int32{{0, 1}}))
	return files
}

func TestResolve(t *testing.T) {
	files := dataset.Resolve("/data", "siftsmall", dataset.Extensions{})
	assert.Equal(t, "/data/siftsmall/siftsmall_base.fvecs", files.Base)
	assert.Equal(t, "/data/siftsmall/siftsmall_query.fvecs", files.Query)
	assert.Equal(t, "/data/siftsmall/siftsmall_groundtruth.ivecs", files.GroundTruth)
	assert.Equal(t, "siftsmall", files.Name)

	files = dataset.Resolve("", "gist", dataset.Extensions{Vectors: ".bvecs"})
	assert.Equal(t, filepath.Join("gist", "gist_base.bvecs"), files.Base)
	assert.Equal(t, filepath.Join("gist", "gist_groundtruth.ivecs"), files.GroundTruth)
}

func TestResolveRemote(t *testing.T) {
	files := dataset.Resolve("s3://bench/corpora/", "sift", dataset.DefaultExtensions)
	assert.Equal(t, "s3://bench/corpora/sift/sift_base.fvecs", files.Base)
	assert.Equal(t, "s3://bench/corpora/sift/sift_groundtruth.ivecs", files.GroundTruth)
	assert.True(t, dataset.IsRemote(files.Query))
	assert.False(t, dataset.IsRemote("/tmp/sift"))
}

func TestLoad(t *testing.T) {
	files := writeDataset(t, t.TempDir(), "tiny", 2)
	ds, err := dataset.Load(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, "tiny", ds.Name)
	assert.Equal(t, 2, ds.Dimension)
	assert.Len(t, ds.Base, 3)
	assert.Len(t, ds.Queries, 1)
	require.Len(t, ds.GroundTruth, 1)
	assert.Equal(t, []int{0, 1}, ds.GroundTruth[0].ToArray())

	base, err := dataset.LoadVectors(files)
	require.NoError(t, err)
	assert.Equal(t, ds.Base, base)

	require.NoError(t, os.Remove(files.Base))
	qs, err := dataset.LoadQueries(files)
	require.NoError(t, err)
	assert.Nil(t, qs.Base)
	assert.Equal(t, ds.Queries, qs.Queries)
	assert.Equal(t, 2, qs.Dimension)
}

func TestLoadMissingFile(t *testing.T) {
	root := t.TempDir()
	files := writeDataset(t, root, "tiny", 2)
	require.NoError(t, os.Remove(files.GroundTruth))

	_, err := dataset.Load(context.Background(), files)
	require.Error(t, err)
	assert.True(t, vecerr.IsNotFound(err))
	fields := vecerr.FieldsOf(err)
	assert.Equal(t, "tiny", fields["dataset"])
	assert.Equal(t, files.GroundTruth, fields["file"])
}

func TestLoadCorruptFileCarriesContext(t *testing.T) {
	files := writeDataset(t, t.TempDir(), "tiny", 2)
	require.NoError(t, os.WriteFile(files.Query, []byte{0, 0, 0, 0, 1, 2, 3, 4}, 0o644))

	_, err := dataset.Load(context.Background(), files)
	require.Error(t, err)
	assert.Equal(t, vecerr.KindCorruptRecord, vecerr.KindOf(err))
	fields := vecerr.FieldsOf(err)
	assert.Equal(t, "tiny", fields["dataset"])
	assert.Equal(t, files.Query, fields["file"])
}

func TestLoadQueryDimensionMismatch(t *testing.T) {
	files := writeDataset(t, t.TempDir(), "tiny", 3)
	_, err := dataset.Load(context.Background(), files)
	assert.Equal(t, vecerr.KindDatasetSizeMismatch, vecerr.KindOf(err))
}
