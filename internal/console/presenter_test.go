package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-filter-editor/internal/core"
)

var report = core.Report{
	Reference:   1,
	Divergences: []core.Divergence{{Kind: core.DivergenceLength, Target: 2, Reference: 1}},
}

func TestResolveDivergence(t *testing.T) {
	cases := []struct {
		input string
		want  core.Resolution
		err   error
	}{
		{"\n", core.UseReference, nil},
		{"1\n", core.UseReference, nil},
		{"2\n", core.StartEmpty, nil},
		{"2", core.StartEmpty, nil},
		{"c\n", core.UseReference, core.ErrCanceled},
		{"", core.UseReference, core.ErrCanceled},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		p := New(strings.NewReader(tc.input), &out, false)
		got, err := p.ResolveDivergence(report)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
		if tc.err != nil {
			assert.ErrorIs(t, err, tc.err)
		} else {
			require.NoError(t, err)
		}
		assert.Contains(t, out.String(), "image #2 has a different number of filters than reference image #1")
	}
}

func TestConfirmSanity(t *testing.T) {
	for input, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false} {
		var out bytes.Buffer
		p := New(strings.NewReader(input), &out, false)
		assert.Equal(t, want, p.ConfirmSanity("WARNING: there are repeated filters!\nContinue?"), "input %q", input)
		assert.Contains(t, out.String(), "repeated filters")
	}
}

func TestAssumeYes(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader(""), &out, true)
	got, err := p.ResolveDivergence(report)
	require.NoError(t, err)
	assert.Equal(t, core.UseReference, got)
	assert.True(t, p.ConfirmSanity("warning"))
}
