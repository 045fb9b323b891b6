package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-filter-editor/internal/filters"
)

type image struct {
	source string
	chain  *filters.Chain
}

func (i image) Source() string               { return i.source }
func (i image) CurrentChain() *filters.Chain { return i.chain }

func TestChainStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "db", "chains.db"))
	require.NoError(t, err)
	defer s.Close()

	c := filters.NewChain()
	f, err := c.Add(filters.CLAHE)
	require.NoError(t, err)
	require.NoError(t, f.Set(2, "1.5"))
	_, err = c.Add(filters.Invert)
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, "p", image{"a.png", c}, image{"b.png", nil}))
	require.NoError(t, s.Save(ctx, "other", image{"a.png", filters.NewChain()}))

	got, err := s.Load(ctx, "p")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, c.Equal(got["a.png"]))
	assert.Equal(t, "1.5", got["a.png"].At(0).Get(2))

	// overwrite, then remove
	_, err = c.Add(filters.LUTCyan)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "p", image{"a.png", c}))
	got, err = s.Load(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 3, got["a.png"].Len())

	require.NoError(t, s.Save(ctx, "p", image{"a.png", nil}))
	got, err = s.Load(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
