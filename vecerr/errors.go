package vecerr

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. The last dotted
// segment is the reason.
type Code string

const (
	CodeCorruptRecord    Code = "vecfile.decode.corrupt_record"
	CodeFileOpenFailure  Code = "vecfile.open.failure"
	CodeFileReadFailure  Code = "vecfile.read.failure"
	CodeFileWriteFailure Code = "vecfile.write.failure"

	CodeStoreWriteFailure  Code = "store.write.failure"
	CodeStoreQueryFailure  Code = "store.query.failure"
	CodeStoreQuerySyntax   Code = "store.query.syntax"
	CodeStoreOpenFailure   Code = "store.open.failure"
	CodeStoreSchemaFailure Code = "store.schema.failure"

	CodeDatasetSizeMismatch Code = "dataset.size.mismatch"
	CodeDatasetNotFound     Code = "dataset.resolve.not_found"
	CodeDatasetFetchFailure Code = "dataset.fetch.failure"

	CodeLoaderInvalidInput Code = "loader.input.invalid"
	CodeRecallInvalidInput Code = "recall.input.invalid"
	CodeRecallStateInvalid Code = "recall.state.invalid"

	CodeConfigReadFailure  Code = "config.load.read.failure"
	CodeConfigInvalidValue Code = "config.validate.invalid_value"
	CodeReportWriteFailure Code = "report.write.failure"
	CodeCLIInputInvalid    Code = "cli.input.invalid"
	CodeCanceled           Code = "run.execute.canceled"
	CodeInternalFailure    Code = "internal.failure"
)

const storeQueryPrefix = "store.query."

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldDataset(name string) Attr { return Field("dataset", name) }

func FieldFile(path string) Attr { return Field("file", path) }

func FieldRecord(index int) Attr { return Field("record", index) }

func FieldOffset(offset int64) Attr { return Field("offset", offset) }

func FieldPK(pk int) Attr { return Field("pk", pk) }

func FieldQuery(index int) Attr { return Field("query", index) }

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

// With adds structured fields to an existing error chain, keeping its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}
	code := CodeOf(err)
	if code == "" {
		code = CodeInternalFailure
	}
	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

// CodeOf returns the innermost code carried by err, or "" when err carries none.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := any(oopsErr.Code()).(type) {
	case Code:
		return code
	case string:
		return Code(code)
	case nil:
		return ""
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

// FieldsOf returns the merged structured fields of err.
func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsStoreQuery reports whether err is a query-time store error, syntax
// errors included.
func IsStoreQuery(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), storeQueryPrefix)
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value"
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

// IsCanceled reports whether err stems from context cancellation or deadline.
func IsCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}
	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
