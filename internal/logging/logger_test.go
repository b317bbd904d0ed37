package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecbench/vecerr"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestLogUpsertFailureCarriesCode(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSON(&buf, slog.LevelDebug)

	l.LogUpsert(context.Background(), 9, vecerr.New(vecerr.CodeStoreWriteFailure, "down"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "upsert failed", rec["msg"])
	assert.Equal(t, "store.write.failure", rec["code"])
	assert.EqualValues(t, 9, rec["pk"])
}

func TestLogErrorAddsFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSON(&buf, slog.LevelInfo)

	err := vecerr.New(vecerr.CodeCorruptRecord, "bad", vecerr.FieldFile("a.fvecs"))
	l.LogError(context.Background(), "decode", err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "a.fvecs", rec["file"])
	assert.Equal(t, "vecfile.decode.corrupt_record", rec["code"])
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewText(&buf, slog.LevelInfo)
	l.LogQuery(context.Background(), 1, 10, 3, nil)
	assert.Empty(t, buf.String())

	l.LogQuery(context.Background(), 1, 10, 0, errors.New("x"))
	assert.Contains(t, buf.String(), "query failed")
}

func TestNoopDiscards(t *testing.T) {
	l := OrNoop(nil)
	require.NotNil(t, l)
	l.Error("ignored")
}

func TestProgressLogsEveryTenth(t *testing.T) {
	var buf bytes.Buffer
	l := NewText(&buf, slog.LevelInfo)
	progress := l.Progress(context.Background(), "load")
	for done := 1; done <= 100; done++ {
		progress(done, 100)
	}
	assert.Equal(t, 10, bytes.Count(buf.Bytes(), []byte("load progress")))
	assert.Contains(t, buf.String(), "percent=100")

	progress(5, 0)
	assert.Equal(t, 10, bytes.Count(buf.Bytes(), []byte("load progress")))
}
