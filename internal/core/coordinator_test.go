package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-filter-editor/internal/filters"
	"image-filter-editor/internal/metrics"
)

type harness struct {
	coord *Coordinator
	cache *fakeCache
	undo  *fakeUndo
	rec   *fakeRecomputer
}

func newHarness(t *testing.T, fail ...int64) *harness {
	t.Helper()
	cache := newFakeCache(1, 2, 3)
	rec := &fakeRecomputer{cache: cache, fail: make(map[int64]bool)}
	for _, id := range fail {
		rec.fail[id] = true
	}
	undo := &fakeUndo{}
	coord, err := NewCoordinator(CoordinatorConfig{
		Cache:      cache,
		Undo:       undo,
		Recomputer: rec,
		Workers:    2,
		Metrics:    metrics.NewApplyMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return &harness{coord: coord, cache: cache, undo: undo, rec: rec}
}

func threeTargets(t *testing.T) (*fakeTarget, *fakeTarget, *fakeTarget) {
	return newTarget(1, chainOf(t, filters.Invert)), newTarget(2, nil), newTarget(3, blur(t, "5"))
}

func TestApply_ReplaceGivesEachTargetItsOwnCopy(t *testing.T) {
	h := newHarness(t)
	a, b, c := threeTargets(t)
	chain := chainOf(t, filters.GaussianBlur, filters.CLAHE)

	res, err := h.coord.Apply(context.Background(), ApplyRequest{Chain: chain, Targets: targets(a, b, c)}, nil)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, res.State)
	assert.Equal(t, StateCommitted, h.coord.State())
	assert.ElementsMatch(t, []int64{1, 2, 3}, res.Applied)

	all := []*fakeTarget{a, b, c}
	for _, tg := range all {
		require.True(t, chain.Equal(tg.chain), "target %d", tg.id)
		for i := 0; i < chain.Len(); i++ {
			assert.NotSame(t, chain.At(i), tg.chain.At(i))
		}
	}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			assert.NotSame(t, all[i].chain, all[j].chain)
			for k := 0; k < chain.Len(); k++ {
				assert.NotSame(t, all[i].chain.At(k), all[j].chain.At(k))
			}
		}
	}

	// editing one target never leaks into another
	require.NoError(t, a.chain.At(0).Set(0, "9"))
	assert.Equal(t, "2.0", b.chain.At(0).Get(0))
	assert.Equal(t, "2.0", chain.At(0).Get(0))

	assert.ElementsMatch(t, []int64{1, 2, 3}, h.cache.invalidated)
	assert.ElementsMatch(t, []int64{1, 2, 3}, h.rec.recompute)
	assert.Empty(t, h.rec.sawStale)
}

func TestApply_UndoBracketSnapshotsBeforeAndAfter(t *testing.T) {
	h := newHarness(t)
	a, b, c := threeTargets(t)
	before := snapshot(targets(a, b, c))

	_, err := h.coord.Apply(context.Background(), ApplyRequest{Chain: chainOf(t, filters.LUTRed), Targets: targets(a, b, c)}, nil)
	require.NoError(t, err)

	assert.Equal(t, before, h.undo.before)
	assert.Equal(t, 1, h.undo.steps)
	for _, id := range []int64{1, 2, 3} {
		assert.Equal(t, "[LUTRed()]", h.undo.after[id])
	}
}

func TestApply_AppendMode(t *testing.T) {
	h := newHarness(t)
	a, b, _ := threeTargets(t)

	_, err := h.coord.Apply(context.Background(), ApplyRequest{
		Chain:   chainOf(t, filters.LUTGreen),
		Targets: targets(a, b),
		Mode:    Append,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []filters.TypeID{filters.Invert, filters.LUTGreen}, a.chain.Types())
	assert.Equal(t, []filters.TypeID{filters.LUTGreen}, b.chain.Types())
}

func TestApply_EmptyChainClearsTargets(t *testing.T) {
	h := newHarness(t)
	a, _, c := threeTargets(t)
	p := &fakePresenter{}

	_, err := h.coord.Apply(context.Background(), ApplyRequest{Chain: filters.NewChain(), Targets: targets(a, c)}, p)
	require.NoError(t, err)
	assert.Nil(t, a.chain)
	assert.Nil(t, c.chain)
	assert.Empty(t, p.warnings)
}

func TestApply_RecomputeFailureIsIsolated(t *testing.T) {
	h := newHarness(t, 2)
	a, b, c := threeTargets(t)
	chain := chainOf(t, filters.Normalize)

	res, err := h.coord.Apply(context.Background(), ApplyRequest{Chain: chain, Targets: targets(a, b, c)}, nil)
	require.Error(t, err)

	var applyErr *ApplyError
	require.True(t, errors.As(err, &applyErr))
	require.Len(t, applyErr.Failures, 1)
	assert.Equal(t, int64(2), applyErr.Failures[0].Target)
	assert.Contains(t, err.Error(), "image #2")

	assert.Equal(t, StateCommitted, res.State)
	assert.Equal(t, applyErr.Failures, res.Failures)

	// the failing target keeps the new chain
	assert.True(t, chain.Equal(b.chain))
	assert.True(t, h.cache.IsCached(1))
	assert.False(t, h.cache.IsCached(2))
	assert.True(t, h.cache.IsCached(3))
	assert.ElementsMatch(t, []int64{1, 2, 3}, h.rec.recompute)
	assert.Equal(t, 1, h.undo.steps)
}

func TestApply_FailuresJoinedInSubmissionOrder(t *testing.T) {
	h := newHarness(t, 3, 1)
	a, b, c := threeTargets(t)

	res, err := h.coord.Apply(context.Background(), ApplyRequest{Chain: chainOf(t, filters.Invert), Targets: targets(a, b, c)}, nil)
	var applyErr *ApplyError
	require.ErrorAs(t, err, &applyErr)

	require.Len(t, res.Failures, 2)
	assert.Equal(t, int64(1), res.Failures[0].Target)
	assert.Equal(t, int64(3), res.Failures[1].Target)
	assert.ErrorContains(t, res.Failures[1].Err, "#3")
	assert.Equal(t, StateCommitted, res.State)
	assert.True(t, h.cache.IsCached(2))
}

func TestApply_PreconditionViolations(t *testing.T) {
	h := newHarness(t)

	res, err := h.coord.Apply(context.Background(), ApplyRequest{Chain: chainOf(t, filters.Invert)}, nil)
	assert.ErrorIs(t, err, ErrNoTargets)
	assert.Equal(t, StateAborted, res.State)

	a := newTarget(1, nil)
	b := newTarget(2, nil)
	b.domain = "other project"
	_, err = h.coord.Apply(context.Background(), ApplyRequest{Chain: chainOf(t, filters.Invert), Targets: targets(a, b)}, nil)
	assert.ErrorIs(t, err, ErrMixedDomains)
	assert.Nil(t, a.chain)
	assert.Nil(t, b.chain)
	assert.Equal(t, 0, h.undo.steps)
	assert.Empty(t, h.cache.invalidated)
}

func TestApply_SanityWarningDeclined(t *testing.T) {
	h := newHarness(t)
	a, b, c := threeTargets(t)
	before := snapshot(targets(a, b, c))
	p := &fakePresenter{confirm: false}

	chain := chainOf(t, filters.Invert, filters.Invert)
	res, err := h.coord.Apply(context.Background(), ApplyRequest{Chain: chain, Targets: targets(a, b, c)}, p)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, StateAborted, res.State)
	require.Len(t, p.warnings, 1)
	assert.Contains(t, p.warnings[0], "repeated filters")
	assert.Contains(t, p.warnings[0], "Continue?")

	assert.Equal(t, before, snapshot(targets(a, b, c)))
	assert.Equal(t, 0, h.undo.steps)
	assert.Empty(t, h.rec.recompute)

	// no presenter means nobody can confirm
	_, err = h.coord.Apply(context.Background(), ApplyRequest{Chain: chain, Targets: targets(a)}, nil)
	assert.ErrorIs(t, err, ErrAborted)
}

func TestApply_SanityWarningConfirmed(t *testing.T) {
	h := newHarness(t)
	a, _, _ := threeTargets(t)
	p := &fakePresenter{confirm: true}

	chain := chainOf(t, filters.GaussianBlur)
	require.NoError(t, chain.At(0).Set(0, "0"))

	_, err := h.coord.Apply(context.Background(), ApplyRequest{Chain: chain, Targets: targets(a)}, p)
	require.NoError(t, err)
	require.Len(t, p.warnings, 1)
	assert.Contains(t, p.warnings[0], "parameter 'radius' of filter 'GaussianBlur' is zero!")
	assert.True(t, chain.Equal(a.chain))
}

type blockingRecomputer struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (r *blockingRecomputer) Recompute(ctx context.Context, _ Target) error {
	r.once.Do(func() { close(r.started) })
	<-r.release
	return ctx.Err()
}

func TestApply_BusyWhileJoining(t *testing.T) {
	rec := &blockingRecomputer{release: make(chan struct{}), started: make(chan struct{})}
	coord, err := NewCoordinator(CoordinatorConfig{Cache: newFakeCache(), Undo: &fakeUndo{}, Recomputer: rec})
	require.NoError(t, err)

	var mu sync.Mutex
	var busy []bool
	coord.OnBusyChange(func(b bool) {
		mu.Lock()
		busy = append(busy, b)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := coord.Apply(ctx, ApplyRequest{Chain: chainOf(t, filters.Invert), Targets: targets(newTarget(1, nil))}, nil)
		done <- err
	}()

	<-rec.started
	assert.Equal(t, StateJoining, waitForState(coord, StateJoining))

	_, err = coord.Apply(context.Background(), ApplyRequest{Chain: chainOf(t, filters.Invert), Targets: targets(newTarget(2, nil))}, nil)
	assert.ErrorIs(t, err, ErrBusy)

	// canceling the caller does not cancel recomputes
	cancel()
	close(rec.release)
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, busy)
}

func waitForState(c *Coordinator, want State) State {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := c.State(); s == want {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	return c.State()
}

func TestNewCoordinator_RequiresCollaborators(t *testing.T) {
	_, err := NewCoordinator(CoordinatorConfig{})
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("append")
	require.NoError(t, err)
	assert.Equal(t, Append, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Replace, m)

	_, err = ParseMode("merge")
	assert.Error(t, err)
}
