package dataset

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vecfile"
	"github.com/viant/vecbench/vector"
)

// Dataset holds the decoded base vectors, queries and ground truth.
type Dataset struct {
	Name        string
	Base        []vector.Vector
	Queries     []vector.Vector
	GroundTruth []vector.NeighborSet
	Dimension   int
}

// Load decodes local files. Errors carry the dataset and file fields.
func Load(ctx context.Context, files Files) (*Dataset, error) {
	for _, p := range files.Paths() {
		if err := checkExists(files.Name, p); err != nil {
			return nil, err
		}
	}
	base, err := LoadVectors(files)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeCanceled, "dataset load cancelled", vecerr.FieldDataset(files.Name))
	}
	ds, err := LoadQueries(files)
	if err != nil {
		return nil, err
	}
	ds.Base = base
	if len(base) > 0 {
		if queryDim := ds.Dimension; queryDim > 0 && queryDim != len(base[0]) {
			return nil, vecerr.New(vecerr.CodeDatasetSizeMismatch, "query dimension differs from base dimension",
				vecerr.FieldDataset(files.Name),
				vecerr.FieldFile(files.Query),
				vecerr.Field("dimension", queryDim),
				vecerr.Field("expected", len(base[0])),
			)
		}
		ds.Dimension = len(base[0])
	}
	return ds, nil
}

// LoadQueries decodes the query and ground-truth files, for search-only
// runs against an already loaded store. Dimension is the query dimension.
func LoadQueries(files Files) (*Dataset, error) {
	for _, p := range []string{files.Query, files.GroundTruth} {
		if err := checkExists(files.Name, p); err != nil {
			return nil, err
		}
	}
	ds := &Dataset{Name: files.Name}
	var err error
	if ds.Queries, err = vecfile.OpenVectors(files.Query); err != nil {
		return nil, vecerr.With(err, vecerr.FieldDataset(files.Name))
	}
	if ds.GroundTruth, err = vecfile.OpenNeighborSets(files.GroundTruth); err != nil {
		return nil, vecerr.With(err, vecerr.FieldDataset(files.Name))
	}
	if len(ds.Queries) > 0 {
		ds.Dimension = len(ds.Queries[0])
	}
	return ds, nil
}

// LoadVectors decodes only the base file, for load-only runs.
func LoadVectors(files Files) ([]vector.Vector, error) {
	if err := checkExists(files.Name, files.Base); err != nil {
		return nil, err
	}
	vs, err := vecfile.OpenVectors(files.Base)
	if err != nil {
		return nil, vecerr.With(err, vecerr.FieldDataset(files.Name))
	}
	return vs, nil
}

func checkExists(name, path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return vecerr.New(vecerr.CodeDatasetNotFound, "dataset file not found",
			vecerr.FieldDataset(name), vecerr.FieldFile(path))
	case err != nil:
		return vecerr.Wrap(err, vecerr.CodeFileOpenFailure, "stat dataset file",
			vecerr.FieldDataset(name), vecerr.FieldFile(path))
	case info.IsDir():
		return vecerr.New(vecerr.CodeDatasetNotFound, "dataset path is a directory",
			vecerr.FieldDataset(name), vecerr.FieldFile(path))
	}
	return nil
}
