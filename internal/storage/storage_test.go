package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndLoadSnapshotRoundTrips(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.SaveSnapshot("ROOM1", 5, []byte(`{"phase":"TURN"}`)))

	blob, seq, ok, err := repo.LoadSnapshot("ROOM1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, seq)
	assert.JSONEq(t, `{"phase":"TURN"}`, string(blob))
}

func TestLoadSnapshotMissingRoomReturnsNotOK(t *testing.T) {
	repo := newTestRepository(t)
	blob, seq, ok, err := repo.LoadSnapshot("NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, blob)
	assert.Zero(t, seq)
}

func TestSaveSnapshotOverwritesPriorSnapshot(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.SaveSnapshot("ROOM1", 1, []byte(`{"phase":"WAITING"}`)))
	require.NoError(t, repo.SaveSnapshot("ROOM1", 2, []byte(`{"phase":"PREPARATION"}`)))

	blob, seq, ok, err := repo.LoadSnapshot("ROOM1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, seq)
	assert.JSONEq(t, `{"phase":"PREPARATION"}`, string(blob))
}

func TestRoomIDsListsEverySavedRoom(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.SaveSnapshot("ROOM1", 0, []byte(`{}`)))
	require.NoError(t, repo.SaveSnapshot("ROOM2", 0, []byte(`{}`)))

	ids, err := repo.RoomIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ROOM1", "ROOM2"}, ids)
}

func TestDeleteSnapshotRemovesRoomAndItsEvents(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.SaveSnapshot("ROOM1", 0, []byte(`{}`)))
	require.NoError(t, repo.AppendEvent("ROOM1", 1, []byte(`{"delta":1}`)))

	require.NoError(t, repo.DeleteSnapshot("ROOM1"))

	_, _, ok, err := repo.LoadSnapshot("ROOM1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppendEventDoesNotAffectSnapshot(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.SaveSnapshot("ROOM1", 3, []byte(`{"phase":"TURN"}`)))
	require.NoError(t, repo.AppendEvent("ROOM1", 3, []byte(`{"delta":"played"}`)))

	blob, seq, ok, err := repo.LoadSnapshot("ROOM1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, seq)
	assert.JSONEq(t, `{"phase":"TURN"}`, string(blob))
}

func TestNoopRepositoryNeverPersists(t *testing.T) {
	var repo NoopRepository
	require.NoError(t, repo.SaveSnapshot("ROOM1", 1, []byte(`{}`)))

	_, _, ok, err := repo.LoadSnapshot("ROOM1")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := repo.RoomIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
