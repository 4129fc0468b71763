package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelregistry/internal/blob"
)

func TestStatus_Empty(t *testing.T) {
	r := newTestRegistry(t, blob.NewMemory())
	st, err := r.Status(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st.Champion)
	assert.Equal(t, "memory", st.Driver)
	assert.Equal(t, []string{"no champion model"}, st.Warnings)
	assert.False(t, st.Healthy())
}

func TestStatus_AfterSubmissions(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, blob.NewMemory())
	w := sampleWeights(t)
	first, err := r.Submit(ctx, w, 0.5)
	require.NoError(t, err)
	second, err := r.Submit(ctx, w, 0.9)
	require.NoError(t, err)
	third, err := r.Submit(ctx, w, 0.1)
	require.NoError(t, err)

	st, err := r.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, st.Champion)
	assert.Equal(t, third.Version, st.Champion.Version)
	assert.Equal(t, []string{first.Version}, st.Backups)
	assert.Equal(t, []string{second.Version}, st.Challengers)
	assert.Empty(t, st.Warnings)
	assert.True(t, st.Healthy())
}

func TestStatus_ChampionWithoutMetadata(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, blob.NewMemory())
	require.NoError(t, r.Store().Write(ctx, RoleChampion, []byte("feature,weight\na,1\n")))
	st, err := r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st.Warnings, 1)
	assert.Contains(t, st.Warnings[0], "without")
}
