package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainOf(t *testing.T, ids ...TypeID) *Chain {
	t.Helper()
	c := NewChain()
	for _, id := range ids {
		_, err := c.Add(id)
		require.NoError(t, err)
	}
	return c
}

func TestChain_InsertAndRemove(t *testing.T) {
	c := chainOf(t, Invert, GaussianBlur)

	_, err := c.Insert(CLAHE, 1)
	require.NoError(t, err)
	assert.Equal(t, []TypeID{Invert, CLAHE, GaussianBlur}, c.Types())

	_, err = c.Insert(CLAHE, 4)
	assert.ErrorIs(t, err, ErrPosition)
	_, err = c.Insert("Sharpen", 0)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, 3, c.Len())

	next, err := c.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, 0, next)
	assert.Equal(t, []TypeID{Invert, GaussianBlur}, c.Types())

	_, err = c.RemoveAt(2)
	assert.ErrorIs(t, err, ErrPosition)
}

func TestChain_RemoveAtSelection(t *testing.T) {
	cases := []struct {
		name string
		size int
		pos  int
		want int
	}{
		{"only element", 1, 0, -1},
		{"first", 3, 0, 0},
		{"last", 3, 2, 1},
		{"middle", 4, 2, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChain()
			for i := 0; i < tc.size; i++ {
				_, err := c.Add(Invert)
				require.NoError(t, err)
			}
			next, err := c.RemoveAt(tc.pos)
			require.NoError(t, err)
			assert.Equal(t, tc.want, next)
			assert.Equal(t, tc.size-1, c.Len())
		})
	}
}

func TestChain_MoveUpDownBoundaries(t *testing.T) {
	c := chainOf(t, Invert, GaussianBlur, CLAHE)

	assert.Equal(t, 0, c.MoveUp(0))
	assert.Equal(t, 2, c.MoveDown(2))
	assert.Equal(t, []TypeID{Invert, GaussianBlur, CLAHE}, c.Types())

	assert.Equal(t, 1, c.MoveUp(2))
	assert.Equal(t, []TypeID{Invert, CLAHE, GaussianBlur}, c.Types())

	assert.Equal(t, 1, c.MoveDown(0))
	assert.Equal(t, []TypeID{CLAHE, Invert, GaussianBlur}, c.Types())

	assert.Equal(t, 7, c.MoveDown(7))
	assert.Equal(t, -1, c.MoveUp(-1))
}

func TestChain_NilReceiver(t *testing.T) {
	var c *Chain

	_, err := c.Add(Invert)
	assert.ErrorIs(t, err, ErrNilChain)
	_, err = c.Insert(Invert, 0)
	assert.ErrorIs(t, err, ErrNilChain)
	_, err = c.RemoveAt(0)
	assert.ErrorIs(t, err, ErrPosition)

	assert.NotPanics(t, func() {
		c.Clear()
		assert.Equal(t, 0, c.MoveUp(0))
		assert.Equal(t, 0, c.MoveDown(0))
	})
	assert.True(t, c.IsEmpty())
	assert.Empty(t, c.Types())
	assert.Equal(t, "[]", c.String())
}

func TestChain_DuplicateTypes(t *testing.T) {
	assert.Equal(t, []TypeID{Invert}, chainOf(t, Invert, GaussianBlur, Invert).DuplicateTypes())
	assert.Empty(t, chainOf(t, Invert, GaussianBlur).DuplicateTypes())
	assert.Empty(t, NewChain().DuplicateTypes())
	assert.Equal(t, []TypeID{LUTRed, Invert},
		chainOf(t, LUTRed, Invert, LUTRed, Invert, Invert).DuplicateTypes())
}

func TestChain_ZeroValuedParameters(t *testing.T) {
	c := chainOf(t, GaussianBlur, RankFilter, SubtractBackground)
	require.NoError(t, c.At(0).Set(0, "0"))  // float renders "0.0"
	require.NoError(t, c.At(1).Set(1, "0"))  // int8 renders "0"
	require.NoError(t, c.At(2).Set(1, "0"))  // string "0" is exempt
	require.NoError(t, c.At(2).Set(0, "-0")) // int renders "0"

	zeros := c.ZeroValuedParameters()
	assert.Equal(t, []ZeroParameter{
		{Position: 0, Filter: GaussianBlur, Parameter: "radius"},
		{Position: 1, Filter: RankFilter, Parameter: "type"},
		{Position: 2, Filter: SubtractBackground, Parameter: "radius"},
	}, zeros)

	assert.Empty(t, chainOf(t, GaussianBlur, CLAHE).ZeroValuedParameters())
}

func TestChain_DeepCopyShareNothing(t *testing.T) {
	c := chainOf(t, GaussianBlur, Invert)
	cp := c.DeepCopy()

	require.True(t, c.Equal(cp))
	for i := 0; i < c.Len(); i++ {
		assert.NotSame(t, c.At(i), cp.At(i))
	}

	require.NoError(t, cp.At(0).Set(0, "9"))
	assert.Equal(t, "2.0", c.At(0).Get(0))
	assert.False(t, c.Equal(cp))

	var absent *Chain
	assert.Equal(t, 0, absent.DeepCopy().Len())
	assert.Nil(t, Duplicate(absent))
	assert.NotNil(t, Duplicate(c))
}

func TestChain_AppendCopies(t *testing.T) {
	c := chainOf(t, Invert)
	extra := chainOf(t, GaussianBlur)
	c.Append(extra)

	assert.Equal(t, []TypeID{Invert, GaussianBlur}, c.Types())
	assert.NotSame(t, extra.At(0), c.At(1))
}

func TestChainSpec_RoundTrip(t *testing.T) {
	c := chainOf(t, CLAHE, SubtractBackground)
	require.NoError(t, c.At(0).Set(2, "2.5"))

	spec := c.Spec()
	assert.Equal(t, "2.5", spec[0].Params["slope"])
	assert.Equal(t, "rolling", spec[1].Params["shape"])

	built, err := spec.Build()
	require.NoError(t, err)
	assert.True(t, c.Equal(built))
}

func TestChainSpec_BuildErrors(t *testing.T) {
	_, err := ChainSpec{{Type: "Sharpen"}}.Build()
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = ChainSpec{{Type: GaussianBlur, Params: map[string]string{"sigma": "1"}}}.Build()
	assert.ErrorContains(t, err, "no parameter 'sigma'")

	_, err = ChainSpec{{Type: GaussianBlur, Params: map[string]string{"radius": "wide"}}}.Build()
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)

	c, err := ChainSpec{{Type: Invert}}.Build()
	require.NoError(t, err)
	assert.Equal(t, []TypeID{Invert}, c.Types())
}
