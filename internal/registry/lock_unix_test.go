//go:build unix

package registry

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelregistry/internal/blob"
)

func TestFileLock_Exclusive(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	a, b := NewFileLock(dir), NewFileLock(dir)

	release, err := a.Lock(ctx)
	require.NoError(t, err)

	_, err = b.Lock(ctx)
	assert.ErrorIs(t, err, ErrLocked)

	pid, err := os.ReadFile(a.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(pid)))

	require.NoError(t, release())
	require.NoError(t, release())

	again, err := b.Lock(ctx)
	require.NoError(t, err)
	require.NoError(t, again())
}

func TestFileLock_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileLock(t.TempDir()).Lock(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmit_HeldLockRejectsWriter(t *testing.T) {
	dir := t.TempDir()
	store, err := blob.NewFilesystem(dir)
	require.NoError(t, err)
	r := newTestRegistry(t, store, func(o *Options) { o.Locker = NewFileLock(dir) })

	release, err := NewFileLock(dir).Lock(context.Background())
	require.NoError(t, err)
	_, err = r.Submit(context.Background(), sampleWeights(t), 0.5)
	assert.ErrorIs(t, err, ErrLocked)
	require.NoError(t, release())

	res, err := r.Submit(context.Background(), sampleWeights(t), 0.5)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFirstChampion, res.Outcome)

	st, err := r.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Healthy())
}
