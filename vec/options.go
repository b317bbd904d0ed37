package vec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/vecbench/index"
	"github.com/viant/vecbench/index/bruteforce"
	"github.com/viant/vecbench/index/cover"
	"github.com/viant/vecbench/index/vptree"
	"github.com/viant/vecbench/internal/cover/tree"
	"github.com/viant/vecbench/vector"
)

// Index kinds accepted by index=.
const (
	IndexAuto   = "auto"
	IndexBrute  = "brute"
	IndexVPTree = "vptree"
	IndexCover  = "cover"
)

const (
	autoCoverMinDocs            = 4000
	autoCoverMinDim             = 64
	autoCoverMinDensity float64 = 16
)

// Options are the USING vec(...) arguments of a table.
type Options struct {
	Metric      vector.Metric
	Index       string
	CoverBase   float32
	CoverBound  tree.BoundStrategy
	Compression Compression
}

// DefaultOptions returns l2, auto index selection and zstd compression.
func DefaultOptions() Options {
	return Options{Metric: vector.MetricL2, Index: IndexAuto, Compression: CompressionZSTD}
}

// Args renders the options as module arguments.
func (o Options) Args() []string {
	args := []string{
		"metric=" + string(o.Metric),
		"index=" + o.Index,
		"compression=" + o.Compression.String(),
	}
	if o.CoverBase > 1 {
		args = append(args, "cover_base="+strconv.FormatFloat(float64(o.CoverBase), 'f', -1, 32))
	}
	if o.CoverBound == tree.BoundLevel {
		args = append(args, "cover_bound=level")
	}
	return args
}

// ParseOptions reads key=value module arguments; unknown keys are ignored.
func ParseOptions(args []string) (Options, error) {
	opts := DefaultOptions()
	for _, raw := range args {
		key, val, ok := strings.Cut(strings.TrimSpace(raw), "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.Trim(strings.TrimSpace(val), `'"`)
		switch key {
		case "metric":
			m, err := vector.ParseMetric(val)
			if err != nil {
				return opts, err
			}
			opts.Metric = m
		case "index":
			kind := strings.ToLower(val)
			switch kind {
			case IndexAuto, IndexBrute, IndexVPTree, IndexCover:
				opts.Index = kind
			default:
				return opts, fmt.Errorf("vec: unsupported index %q", val)
			}
		case "cover_base":
			f, err := strconv.ParseFloat(val, 32)
			if err != nil || f <= 1 {
				return opts, fmt.Errorf("vec: cover_base must be a number > 1, got %q", val)
			}
			opts.CoverBase = float32(f)
		case "cover_bound":
			s, ok := tree.ParseBoundStrategy(strings.ToLower(val))
			if !ok {
				return opts, fmt.Errorf("vec: unsupported cover_bound %q", val)
			}
			opts.CoverBound = s
		case "compression":
			c, err := ParseCompression(val)
			if err != nil {
				return opts, err
			}
			opts.Compression = c
		}
	}
	return opts, nil
}

// resolveKind picks the concrete index for auto based on size and dimension.
func (o Options) resolveKind(docs, dim int) string {
	if o.Index != IndexAuto && o.Index != "" {
		return o.Index
	}
	if docs >= autoCoverMinDocs && dim >= autoCoverMinDim && float64(docs)/float64(dim) >= autoCoverMinDensity {
		return IndexCover
	}
	return IndexBrute
}

func (o Options) newIndex(kind string) index.Index {
	switch kind {
	case IndexCover:
		return o.newCover()
	case IndexVPTree:
		return vptree.New(o.Metric)
	default:
		return bruteforce.New(o.Metric)
	}
}

func (o Options) newCover() *cover.Index {
	return cover.New(o.Metric, cover.WithBase(o.CoverBase), cover.WithBoundStrategy(o.CoverBound))
}

// decodeIndex restores a serialized index from its magic header.
func (o Options) decodeIndex(data []byte) (index.Index, error) {
	var idx index.Index
	switch index.MagicOf(data) {
	case index.MagicBruteForce:
		idx = bruteforce.New(o.Metric)
	case index.MagicVPTree:
		idx = vptree.New(o.Metric)
	case index.MagicCover:
		idx = o.newCover()
	default:
		return nil, fmt.Errorf("vec: unknown index blob header %q", index.MagicOf(data))
	}
	if err := idx.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return idx, nil
}
