package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eoerrors "github.com/erfanzar/eopod/errors"
	"github.com/erfanzar/eopod/pkg/tpu"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenAt(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestCredentialsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	target := tpu.Target{Project: "test-project", Zone: "us-central2-b", Name: "test-tpu"}
	require.NoError(t, store.SaveCredentials(target))

	loaded, err := store.Credentials()
	require.NoError(t, err)
	assert.Equal(t, target, loaded)
}

func TestCredentialsNotConfigured(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Credentials()
	require.Error(t, err)
	assert.True(t, eoerrors.IsNotConfigured(err))
}

func TestCredentialsIncomplete(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.configFile, []byte("project_id = p\n"), 0644))

	_, err := store.Credentials()
	require.Error(t, err)
	assert.True(t, eoerrors.IsNotConfigured(err))
}

func TestHistoryRoundTripPreservesOrder(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordHistory(fmt.Sprintf("cmd-%d", i), "success", "out"))
	}

	history, err := store.History()
	require.NoError(t, err)
	require.Len(t, history, 5)
	for i, entry := range history {
		assert.Equal(t, fmt.Sprintf("cmd-%d", i), entry.Command)
		assert.Equal(t, "success", entry.Status)
	}
}

func TestHistoryCapEvictsOldestFirst(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 120; i++ {
		require.NoError(t, store.RecordHistory(fmt.Sprintf("cmd-%d", i), "success", ""))
	}

	history, err := store.History()
	require.NoError(t, err)
	require.Len(t, history, historyCap)
	assert.Equal(t, "cmd-20", history[0].Command)
	assert.Equal(t, "cmd-119", history[len(history)-1].Command)
}

func TestErrorLogCapEvictsOldestFirst(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 60; i++ {
		require.NoError(t, store.RecordError(fmt.Sprintf("cmd-%d", i), "boom"))
	}

	errorLog, err := store.Errors()
	require.NoError(t, err)
	require.Len(t, errorLog, errorLogCap)
	assert.Equal(t, "cmd-10", errorLog[0].Command)
	assert.Equal(t, "cmd-59", errorLog[len(errorLog)-1].Command)
}

func TestHistoryOutputTruncation(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordHistory("big", "success", strings.Repeat("x", 2*outputCap)))

	history, err := store.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Len(t, history[0].Output, outputCap)
}

func TestHistoryOutputTruncationKeepsValidUTF8(t *testing.T) {
	store := newTestStore(t)

	// A multi-byte character straddling the cap is dropped whole rather
	// than split into invalid bytes.
	output := strings.Repeat("a", outputCap-1) + "世界"
	require.NoError(t, store.RecordHistory("big", "success", output))

	history, err := store.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, utf8.ValidString(history[0].Output))
	assert.Equal(t, strings.Repeat("a", outputCap-1), history[0].Output)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "", Truncate("世", 2), "never splits a rune")
	assert.Equal(t, "世", Truncate("世界", 4))
}

func TestMalformedHistoryTreatedAsEmpty(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.historyFile, []byte("}{not yaml: ["), 0644))

	history, err := store.History()
	require.NoError(t, err, "malformed logs are recovered, never fatal")
	assert.Empty(t, history)

	// An append after recovery starts a fresh log.
	require.NoError(t, store.RecordHistory("cmd", "success", "out"))
	history, err = store.History()
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMalformedErrorLogTreatedAsEmpty(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.errorFile, []byte(":\n\t:::"), 0644))

	errorLog, err := store.Errors()
	require.NoError(t, err)
	assert.Empty(t, errorLog)
}

func TestErrorEntriesKeepFullText(t *testing.T) {
	store := newTestStore(t)

	long := strings.Repeat("e", 600)
	require.NoError(t, store.RecordError("cmd", long))

	errorLog, err := store.Errors()
	require.NoError(t, err)
	require.Len(t, errorLog, 1)
	assert.Equal(t, long, errorLog[0].Error, "truncation is a display concern")
}

func TestOpenAtCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".eopod")
	store, err := OpenAt(dir)
	require.NoError(t, err)

	info, err := os.Stat(store.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEntriesCarryTimestamps(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordHistory("cmd", "success", ""))
	require.NoError(t, store.RecordError("cmd", "boom"))

	history, err := store.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].Timestamp)

	errorLog, err := store.Errors()
	require.NoError(t, err)
	require.Len(t, errorLog, 1)
	assert.NotEmpty(t, errorLog[0].Timestamp)
}
