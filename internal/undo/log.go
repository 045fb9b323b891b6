// Undo log recording before/after filter chain snapshots of batch edits
package undo

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"image-filter-editor/internal/core"
	"image-filter-editor/internal/filters"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrStepOpen      = errors.New("undo step still open")
)

// Snapshot is the state of one image at a bracket boundary
type Snapshot struct {
	Chain  *filters.Chain
	Cached bool
}

// Step is one bracketed batch edit
type Step struct {
	ID      uuid.UUID
	Started time.Time
	Before  map[int64]Snapshot
	After   map[int64]Snapshot

	targets []core.Target
}

// Closed reports whether EndStep was recorded
func (s *Step) Closed() bool { return s.After != nil }

// Log implements core.UndoLog. Steps are kept newest last, up to limit.
type Log struct {
	mu     sync.Mutex
	cache  core.Cache
	steps  []*Step
	open   *Step
	limit  int
	logger logrus.FieldLogger
}

// NewLog creates an undo log; cache may be nil, limit <= 0 keeps 32 steps
func NewLog(cache core.Cache, limit int, logger logrus.FieldLogger) *Log {
	if limit <= 0 {
		limit = 32
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Log{cache: cache, limit: limit, logger: logger}
}

func (l *Log) snapshot(targets []core.Target) map[int64]Snapshot {
	snaps := make(map[int64]Snapshot, len(targets))
	for _, t := range targets {
		s := Snapshot{Chain: filters.Duplicate(t.CurrentChain())}
		if l.cache != nil {
			s.Cached = l.cache.IsCached(t.ID())
		}
		snaps[t.ID()] = s
	}
	return snaps
}

// BeginStep records the "before" state of every target
func (l *Log) BeginStep(targets []core.Target) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := make([]core.Target, len(targets))
	copy(ts, targets)
	l.open = &Step{
		ID:      uuid.New(),
		Started: time.Now(),
		Before:  l.snapshot(targets),
		targets: ts,
	}
	l.logger.WithFields(logrus.Fields{"step": l.open.ID.String(), "targets": len(targets)}).Debug("UNDO: step opened")
}

// EndStep records the "after" state and closes the open step
func (l *Log) EndStep(targets []core.Target) {
	l.mu.Lock()
	defer l.mu.Unlock()

	step := l.open
	if step == nil {
		step = &Step{ID: uuid.New(), Started: time.Now(), Before: map[int64]Snapshot{}, targets: targets}
	}
	step.After = l.snapshot(targets)
	l.open = nil

	l.steps = append(l.steps, step)
	if len(l.steps) > l.limit {
		l.steps = l.steps[len(l.steps)-l.limit:]
	}
	l.logger.WithField("step", step.ID.String()).Debug("UNDO: step closed")
}

// Steps returns the closed steps, oldest first
func (l *Log) Steps() []*Step {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]*Step, len(l.steps))
	copy(result, l.steps)
	return result
}

// Undo restores the "before" chains of the newest step, invalidates the
// affected caches and returns the restored targets so they can be
// recomputed
func (l *Log) Undo() ([]core.Target, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.open != nil {
		return nil, ErrStepOpen
	}
	if len(l.steps) == 0 {
		return nil, ErrNothingToUndo
	}
	step := l.steps[len(l.steps)-1]
	l.steps = l.steps[:len(l.steps)-1]

	restored := make([]core.Target, 0, len(step.targets))
	for _, t := range step.targets {
		before, ok := step.Before[t.ID()]
		if !ok {
			continue
		}
		t.SetChain(filters.Duplicate(before.Chain))
		if l.cache != nil {
			l.cache.Invalidate(t.ID())
		}
		restored = append(restored, t)
	}
	l.logger.WithFields(logrus.Fields{"step": step.ID.String(), "targets": len(restored)}).Info("UNDO: step reverted")
	return restored, nil
}
