package dataset

import (
	"path"
	"path/filepath"
	"strings"
)

// Extensions are the file extensions of vector and neighbor-set files.
type Extensions struct {
	Vectors   string
	Neighbors string
}

// DefaultExtensions selects the Texmex fvecs/ivecs files.
var DefaultExtensions = Extensions{Vectors: "fvecs", Neighbors: "ivecs"}

func (e Extensions) withDefaults() Extensions {
	if e.Vectors == "" {
		e.Vectors = DefaultExtensions.Vectors
	}
	if e.Neighbors == "" {
		e.Neighbors = DefaultExtensions.Neighbors
	}
	e.Vectors = strings.TrimPrefix(e.Vectors, ".")
	e.Neighbors = strings.TrimPrefix(e.Neighbors, ".")
	return e
}

// Files locates a dataset.
type Files struct {
	Name        string
	Base        string
	Query       string
	GroundTruth string
}

// Paths returns the three files in load order.
func (f Files) Paths() []string {
	return []string{f.Base, f.Query, f.GroundTruth}
}

// IsRemote reports whether root names an S3 location.
func IsRemote(root string) bool {
	return strings.HasPrefix(root, s3Scheme)
}

// Resolve maps a dataset name under root to
// <root>/<name>/<name>_base.<vectors>, _query.<vectors> and
// _groundtruth.<neighbors>.
func Resolve(root, name string, ext Extensions) Files {
	ext = ext.withDefaults()
	join := filepath.Join
	if IsRemote(root) {
		join = func(elem ...string) string {
			return s3Scheme + path.Join(append([]string{strings.TrimPrefix(elem[0], s3Scheme)}, elem[1:]...)...)
		}
	}
	if root == "" {
		root = "."
	}
	dir := join(root, name)
	return Files{
		Name:        name,
		Base:        join(dir, name+"_base."+ext.Vectors),
		Query:       join(dir, name+"_query."+ext.Vectors),
		GroundTruth: join(dir, name+"_groundtruth."+ext.Neighbors),
	}
}
