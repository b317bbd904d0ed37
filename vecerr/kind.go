package vecerr

// Kind is the tagged category of an error, used by callers that must treat
// some failures as benign and the rest as fatal.
type Kind int

const (
	KindUnknown Kind = iota
	KindCorruptRecord
	KindStoreWrite
	KindStoreQuery
	KindStoreSyntax
	KindDatasetSizeMismatch
	KindInvalidInput
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindCorruptRecord:
		return "corrupt_record"
	case KindStoreWrite:
		return "store_write"
	case KindStoreQuery:
		return "store_query"
	case KindStoreSyntax:
		return "store_syntax"
	case KindDatasetSizeMismatch:
		return "dataset_size_mismatch"
	case KindInvalidInput:
		return "invalid_input"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Codes win over context errors so a coded failure
// that happened to wrap a deadline keeps its store kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	switch code := CodeOf(err); {
	case code == CodeStoreQuerySyntax:
		return KindStoreSyntax
	case IsStoreQuery(err):
		return KindStoreQuery
	case code == CodeStoreWriteFailure:
		return KindStoreWrite
	case code == CodeCorruptRecord:
		return KindCorruptRecord
	case code == CodeDatasetSizeMismatch:
		return KindDatasetSizeMismatch
	case IsInvalidInput(err):
		return KindInvalidInput
	case code == CodeCanceled, IsCanceled(err):
		return KindCanceled
	default:
		return KindUnknown
	}
}
