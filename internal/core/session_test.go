package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-filter-editor/internal/filters"
)

func TestNewSession_ConsistentSeedsFromReference(t *testing.T) {
	ref := newTarget(1, blur(t, "2.0"))
	other := newTarget(2, blur(t, "2.0"))
	p := &fakePresenter{}

	s, err := NewSession(targets(ref, other), nil, p, nil)
	require.NoError(t, err)
	assert.Empty(t, p.reports, "operator must not be prompted")
	assert.True(t, s.Report().Empty())
	assert.True(t, s.Chain().Equal(ref.chain))
	assert.NotSame(t, ref.chain.At(0), s.Chain().At(0))
	assert.Len(t, s.Targets(), 2)
	assert.Same(t, ref, s.Reference())
}

func TestNewSession_UseReference(t *testing.T) {
	ref := newTarget(1, blur(t, "2.0"))
	a := newTarget(2, blur(t, "2.0"))
	b := newTarget(3, blur(t, "3.0"))
	p := &fakePresenter{resolution: UseReference}

	s, err := NewSession(targets(ref, a, b), ref, p, nil)
	require.NoError(t, err)
	require.Len(t, p.reports, 1)
	assert.Equal(t, []int64{3}, p.reports[0].Targets())

	require.Equal(t, 1, s.Chain().Len())
	assert.Equal(t, filters.GaussianBlur, s.Chain().At(0).Type())
	assert.Equal(t, "2.0", s.Chain().At(0).Get(0))
}

func TestNewSession_StartEmpty(t *testing.T) {
	ref := newTarget(1, blur(t, "2.0"))
	b := newTarget(2, nil)
	p := &fakePresenter{resolution: StartEmpty}

	s, err := NewSession(targets(ref, b), ref, p, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Chain().Len())

	s.Resolve(UseReference)
	assert.Equal(t, 1, s.Chain().Len())
}

func TestNewSession_Canceled(t *testing.T) {
	ref := newTarget(1, blur(t, "2.0"))
	b := newTarget(2, nil)

	_, err := NewSession(targets(ref, b), ref, &fakePresenter{err: ErrCanceled}, nil)
	assert.ErrorIs(t, err, ErrCanceled)

	_, err = NewSession(targets(ref, b), ref, nil, nil)
	assert.ErrorIs(t, err, ErrCanceled)

	_, err = NewSession(nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoTargets)
}

func TestNewSession_EditingDoesNotTouchReference(t *testing.T) {
	ref := newTarget(1, blur(t, "2.0"))
	s, err := NewSession(targets(ref), nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Chain().At(0).Set(0, "8"))
	_, err = s.Chain().Add(filters.Invert)
	require.NoError(t, err)

	assert.Equal(t, "2.0", ref.chain.At(0).Get(0))
	assert.Equal(t, 1, ref.chain.Len())
}

func TestSanityCheck(t *testing.T) {
	c := chainOf(t, filters.Invert, filters.GaussianBlur, filters.Invert, filters.SubtractBackground)
	require.NoError(t, c.At(1).Set(1, "0"))
	require.NoError(t, c.At(3).Set(1, "0"))

	r := SanityCheck(c)
	assert.False(t, r.Empty())
	assert.Equal(t, []filters.TypeID{filters.Invert}, r.Duplicates)
	assert.Equal(t,
		"WARNING: there are repeated filters!\n"+
			"WARNING: parameter 'accuracy' of filter 'GaussianBlur' is zero!\n",
		r.Warning())

	clean := SanityCheck(chainOf(t, filters.Invert, filters.GaussianBlur))
	assert.True(t, clean.Empty())
	assert.Equal(t, "", clean.Warning())
}
