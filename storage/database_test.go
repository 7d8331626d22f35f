package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest-cli/storage"
	"attest-cli/storage/tests"
)

func TestHistoryJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	var testStore *storage.JSONDB
	reopen := func() {
		var err error
		require.NoError(t, os.RemoveAll(path))
		testStore, err = storage.Connect(path)
		require.NoError(t, err)
	}
	reopen()

	tests.RunTests(t, &reopeningStore{get: func() *storage.JSONDB { return testStore }}, reopen)
}

func TestJSONDB_PersistsAcrossConnections(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.json")

	db, err := storage.Connect(path)
	require.NoError(t, err)

	record := &storage.Record{
		ContentHash:   "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		AiProbability: 42.5,
		Signature:     "sig",
	}
	require.NoError(t, db.Save(ctx, record))
	require.NoError(t, db.Close())

	reopened, err := storage.Connect(path)
	require.NoError(t, err)

	actual, err := reopened.Get(ctx, record.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, record.ID, actual.ID)
	assert.Equal(t, 42.5, actual.AiProbability)
	assert.True(t, record.CreatedAt.Equal(actual.CreatedAt))
}

func TestJSONDB_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := storage.Connect(path)
	assert.Error(t, err)
}

// reopeningStore forwards to whichever JSONDB the teardown most recently
// opened, so each suite case starts from an empty file.
type reopeningStore struct {
	get func() *storage.JSONDB
}

func (s *reopeningStore) Save(ctx context.Context, r *storage.Record) error {
	return s.get().Save(ctx, r)
}

func (s *reopeningStore) Get(ctx context.Context, hash string) (*storage.Record, error) {
	return s.get().Get(ctx, hash)
}

func (s *reopeningStore) List(ctx context.Context) ([]*storage.Record, error) {
	return s.get().List(ctx)
}

func (s *reopeningStore) Delete(ctx context.Context, hash string) error {
	return s.get().Delete(ctx, hash)
}

func (s *reopeningStore) Close() error {
	return s.get().Close()
}
