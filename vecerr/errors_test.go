package vecerr_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecbench/vecerr"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := vecerr.New(vecerr.CodeCorruptRecord, "bad dimension",
		vecerr.FieldFile("sift_base.fvecs"),
		vecerr.FieldRecord(7),
	)
	require.Error(t, err)
	assert.Equal(t, vecerr.CodeCorruptRecord, vecerr.CodeOf(err))
	assert.True(t, vecerr.HasCode(err, vecerr.CodeCorruptRecord))

	fields := vecerr.FieldsOf(err)
	assert.Equal(t, "sift_base.fvecs", fields["file"])
	assert.Equal(t, 7, fields["record"])
}

func TestWrapPreservesCause(t *testing.T) {
	root := stderrors.New("connection reset")
	err := vecerr.Wrap(root, vecerr.CodeStoreWriteFailure, "upsert", vecerr.FieldPK(42))
	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, vecerr.CodeStoreWriteFailure, vecerr.CodeOf(err))
	assert.Equal(t, 42, vecerr.FieldsOf(err)["pk"])
	assert.Contains(t, err.Error(), "connection reset")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, vecerr.Wrap(nil, vecerr.CodeStoreWriteFailure, "x"))
	assert.NoError(t, vecerr.With(nil, vecerr.FieldPK(1)))
}

func TestWithKeepsInnerCode(t *testing.T) {
	inner := vecerr.New(vecerr.CodeStoreQuerySyntax, "bad statement")
	err := vecerr.With(inner, vecerr.FieldQuery(3))
	assert.Equal(t, vecerr.CodeStoreQuerySyntax, vecerr.CodeOf(err))
	assert.Equal(t, 3, vecerr.FieldsOf(err)["query"])
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, vecerr.Code(""), vecerr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, vecerr.Code(""), vecerr.CodeOf(nil))
	assert.Nil(t, vecerr.FieldsOf(stderrors.New("plain")))
}

func TestIsStoreQueryCoversSyntax(t *testing.T) {
	assert.True(t, vecerr.IsStoreQuery(vecerr.New(vecerr.CodeStoreQueryFailure, "timeout")))
	assert.True(t, vecerr.IsStoreQuery(vecerr.New(vecerr.CodeStoreQuerySyntax, "malformed")))
	assert.False(t, vecerr.IsStoreQuery(vecerr.New(vecerr.CodeStoreWriteFailure, "write")))
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want vecerr.Kind
	}{
		{name: "nil", err: nil, want: vecerr.KindUnknown},
		{name: "plain", err: stderrors.New("boom"), want: vecerr.KindUnknown},
		{name: "syntax", err: vecerr.New(vecerr.CodeStoreQuerySyntax, "x"), want: vecerr.KindStoreSyntax},
		{name: "query", err: vecerr.New(vecerr.CodeStoreQueryFailure, "x"), want: vecerr.KindStoreQuery},
		{name: "write", err: vecerr.New(vecerr.CodeStoreWriteFailure, "x"), want: vecerr.KindStoreWrite},
		{name: "corrupt", err: vecerr.New(vecerr.CodeCorruptRecord, "x"), want: vecerr.KindCorruptRecord},
		{name: "mismatch", err: vecerr.New(vecerr.CodeDatasetSizeMismatch, "x"), want: vecerr.KindDatasetSizeMismatch},
		{name: "invalid", err: vecerr.New(vecerr.CodeRecallInvalidInput, "x"), want: vecerr.KindInvalidInput},
		{name: "canceled", err: fmt.Errorf("wrapped: %w", context.Canceled), want: vecerr.KindCanceled},
		{name: "canceled code", err: vecerr.Wrap(context.Canceled, vecerr.CodeCanceled, "stopped"), want: vecerr.KindCanceled},
		{name: "syntax wrapped as failure", err: vecerr.Wrap(vecerr.New(vecerr.CodeStoreQuerySyntax, "x"), vecerr.CodeStoreQueryFailure, "query"), want: vecerr.KindStoreSyntax},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, vecerr.KindOf(tc.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "store_syntax", vecerr.KindStoreSyntax.String())
	assert.Equal(t, "unknown", vecerr.Kind(99).String())
}
