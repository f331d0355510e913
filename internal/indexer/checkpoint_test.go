package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	cp := NewFileCheckpoint(path, "0xabc")

	_, ok, err := cp.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok, "empty checkpoint")

	require.NoError(t, cp.Save(ctx, 1234))

	block, ok, err := cp.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1234), block)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "tmp file left behind")
}

func TestFileCheckpointOtherContract(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, NewFileCheckpoint(path, "0xabc").Save(ctx, 99))

	_, ok, err := NewFileCheckpoint(path, "0xdef").Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "checkpoint for another contract must be ignored")
}

func TestFileCheckpointCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, _, err := NewFileCheckpoint(path, "").Load(context.Background())
	assert.Error(t, err)
}

type fakeStateStore struct {
	state map[string]uint64
}

func (s *fakeStateStore) LoadState(_ context.Context, name string) (uint64, bool, error) {
	block, ok := s.state[name]
	return block, ok, nil
}

func (s *fakeStateStore) SaveState(_ context.Context, name string, block uint64) error {
	s.state[name] = block
	return nil
}

func TestDBCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := &fakeStateStore{state: map[string]uint64{}}
	cp := &DBCheckpoint{Store: store, Name: "factory"}

	require.NoError(t, cp.Save(ctx, 77))

	block, ok, err := cp.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(77), block)
}
