package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediarelay/internal/domain"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return l
}

// setupTestDB creates a temporary BadgerDB store and a cleanup function.
func setupTestDB(t *testing.T) (*BadgerCursorStore, string, func()) {
	t.Helper()

	dir := t.TempDir()
	store, err := NewBadgerCursorStore(dir, testLogger())
	require.NoError(t, err, "Failed to create test BadgerDB store")

	cleanup := func() {
		assert.NoError(t, store.Close(), "Failed to close test BadgerDB store")
	}
	return store, dir, cleanup
}

func cursorPtr(v uint64) *uint64 { return &v }

func TestBadgerCursorStore_EmptyByDefault(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state.LastCheckedMessageID)
	assert.Equal(t, uint64(0), state.Cursor())
}

func TestBadgerCursorStore_SaveAndLoad(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.State{LastCheckedMessageID: cursorPtr(1179902312739782758)}))
	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1179902312739782758), state.Cursor())

	// Overwrite
	require.NoError(t, store.Save(ctx, domain.State{LastCheckedMessageID: cursorPtr(1179902312739782999)}))
	state, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1179902312739782999), state.Cursor())
}

func TestBadgerCursorStore_PersistsAcrossReopen(t *testing.T) {
	store, dir, _ := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.State{LastCheckedMessageID: cursorPtr(77)}))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerCursorStore(dir, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	state, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), state.Cursor())
}

func TestBadgerCursorStore_CorruptValueIsEmpty(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()

	err := store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey, []byte("{not json"))
	})
	require.NoError(t, err)

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state.LastCheckedMessageID)
}

func TestFileCursorStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileCursorStore(path, testLogger())

	// Missing file
	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state.LastCheckedMessageID)

	require.NoError(t, store.Save(ctx, domain.State{LastCheckedMessageID: cursorPtr(12345)}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_checked_message_id": 12345}`, string(raw))

	state, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), state.Cursor())

	// Empty record written by older deployments
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
	state, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state.LastCheckedMessageID)

	// Corrupt
	require.NoError(t, os.WriteFile(path, []byte(`garbage`), 0o600))
	state, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state.LastCheckedMessageID)

	assert.NoError(t, store.Close())
}
