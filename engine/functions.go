package engine

import (
	"database/sql/driver"
	"fmt"
	"sync"

	"github.com/viant/vecbench/vector"
	sqlite "modernc.org/sqlite"
)

var registerOnce sync.Once

// RegisterVectorFunctions registers vec_cosine and vec_l2 with the driver so
// they are available on connections opened after this call. It is safe to
// call repeatedly.
func RegisterVectorFunctions() error {
	var err error
	registerOnce.Do(func() {
		if err = sqlite.RegisterDeterministicScalarFunction("vec_cosine", 2, vecCosine); err != nil {
			return
		}
		err = sqlite.RegisterDeterministicScalarFunction("vec_l2", 2, vecL2)
	})
	return err
}

func embeddingArgs(name string, args []driver.Value) (vector.Vector, vector.Vector, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func asEmbedding(arg driver.Value) (vector.Vector, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.DecodeEmbedding(v)
	default:
		return nil, fmt.Errorf("vec: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

// vecCosine returns cosine similarity, NULL when either side is NULL.
func vecCosine(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := embeddingArgs("vec_cosine", args)
	if err != nil || a == nil || b == nil {
		return nil, err
	}
	return vector.CosineSimilarity(a, b)
}

// vecL2 returns the Euclidean distance, NULL when either side is NULL.
func vecL2(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := embeddingArgs("vec_l2", args)
	if err != nil || a == nil || b == nil {
		return nil, err
	}
	return vector.L2Distance(a, b)
}
