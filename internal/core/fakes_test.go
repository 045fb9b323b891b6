package core

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"image-filter-editor/internal/filters"
)

type fakeTarget struct {
	mu     sync.Mutex
	id     int64
	domain string
	chain  *filters.Chain
}

func newTarget(id int64, chain *filters.Chain) *fakeTarget {
	return &fakeTarget{id: id, domain: "project", chain: chain}
}

func (t *fakeTarget) ID() int64      { return t.id }
func (t *fakeTarget) Domain() string { return t.domain }

func (t *fakeTarget) CurrentChain() *filters.Chain {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chain
}

func (t *fakeTarget) SetChain(c *filters.Chain) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chain = c
}

func (t *fakeTarget) AppendChain(c *filters.Chain) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.chain == nil {
		t.chain = filters.NewChain()
	}
	t.chain.Append(c)
}

type fakeCache struct {
	mu          sync.Mutex
	cached      map[int64]bool
	invalidated []int64
}

func newFakeCache(ids ...int64) *fakeCache {
	c := &fakeCache{cached: make(map[int64]bool)}
	for _, id := range ids {
		c.cached[id] = true
	}
	return c
}

func (c *fakeCache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cached, id)
	c.invalidated = append(c.invalidated, id)
}

func (c *fakeCache) IsCached(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached[id]
}

func (c *fakeCache) put(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached[id] = true
}

type fakeUndo struct {
	before map[int64]string
	after  map[int64]string
	steps  int
}

func snapshot(targets []Target) map[int64]string {
	m := make(map[int64]string)
	for _, t := range targets {
		m[t.ID()] = t.CurrentChain().String()
	}
	return m
}

func (u *fakeUndo) BeginStep(targets []Target) { u.before = snapshot(targets) }

func (u *fakeUndo) EndStep(targets []Target) {
	u.after = snapshot(targets)
	u.steps++
}

type fakeRecomputer struct {
	cache *fakeCache
	fail  map[int64]bool

	mu        sync.Mutex
	recompute []int64
	// sawStale records targets still cached when their recompute started
	sawStale []int64
}

func (r *fakeRecomputer) Recompute(_ context.Context, t Target) error {
	r.mu.Lock()
	r.recompute = append(r.recompute, t.ID())
	if r.cache.IsCached(t.ID()) {
		r.sawStale = append(r.sawStale, t.ID())
	}
	r.mu.Unlock()

	if r.fail[t.ID()] {
		return fmt.Errorf("cannot decode source of #%d", t.ID())
	}
	r.cache.put(t.ID())
	return nil
}

type fakePresenter struct {
	resolution Resolution
	err        error
	confirm    bool

	reports  []Report
	warnings []string
}

func (p *fakePresenter) ResolveDivergence(r Report) (Resolution, error) {
	p.reports = append(p.reports, r)
	return p.resolution, p.err
}

func (p *fakePresenter) ConfirmSanity(warning string) bool {
	p.warnings = append(p.warnings, warning)
	return p.confirm
}

func chainOf(t *testing.T, ids ...filters.TypeID) *filters.Chain {
	t.Helper()
	c := filters.NewChain()
	for _, id := range ids {
		_, err := c.Add(id)
		require.NoError(t, err)
	}
	return c
}

func blur(t *testing.T, radius string) *filters.Chain {
	t.Helper()
	c := chainOf(t, filters.GaussianBlur)
	require.NoError(t, c.At(0).Set(0, radius))
	return c
}

func targets(ts ...*fakeTarget) []Target {
	out := make([]Target, len(ts))
	for i, t := range ts {
		out[i] = t
	}
	return out
}
