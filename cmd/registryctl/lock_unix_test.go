//go:build unix

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelregistry/internal/registry"
)

func TestSubmitWhileLockedExitsThree(t *testing.T) {
	h := newHarness(t, "")
	w := h.weightsFile("w.csv", weightsCSV)
	require.NoError(t, os.MkdirAll(h.root, 0o755))

	release, err := registry.NewFileLock(h.root).Lock(context.Background())
	require.NoError(t, err)

	code, _, errOut := h.run("submit", "--weights", w, "--metric", "1")
	assert.Equal(t, 3, code)
	assert.Contains(t, errOut, "locked")

	require.NoError(t, release())
	code, _, errOut = h.run("submit", "--weights", w, "--metric", "1")
	assert.Equal(t, 0, code, errOut)

	_, err = os.Stat(filepath.Join(h.root, string(registry.RoleChampion)))
	assert.NoError(t, err)
}

func TestLockDisabledByConfig(t *testing.T) {
	h := newHarness(t, "registry:\n  lock: false\n")
	w := h.weightsFile("w.csv", weightsCSV)
	require.NoError(t, os.MkdirAll(h.root, 0o755))

	release, err := registry.NewFileLock(h.root).Lock(context.Background())
	require.NoError(t, err)
	defer func() { _ = release() }()

	code, _, errOut := h.run("submit", "--weights", w, "--metric", "1")
	assert.Equal(t, 0, code, errOut)
}
