// Transactional batch application of a filter chain to many images
package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"image-filter-editor/internal/filters"
	"image-filter-editor/internal/metrics"
	"image-filter-editor/internal/tasks"
)

// State of one apply run
type State int

const (
	StateIdle State = iota
	StateSanityChecked
	StateApplying
	StateJoining
	StateCommitted
	StateAborted
)

var stateNames = map[State]string{
	StateIdle:          "idle",
	StateSanityChecked: "sanity_checked",
	StateApplying:      "applying",
	StateJoining:       "joining",
	StateCommitted:     "committed",
	StateAborted:       "aborted",
}

func (s State) String() string { return stateNames[s] }

// RecomputeFailure names a target whose recompute failed after its chain
// was already replaced
type RecomputeFailure struct {
	Target int64
	Err    error
}

// ApplyError aggregates the recompute failures of one apply run
type ApplyError struct {
	Failures []RecomputeFailure
}

func (e *ApplyError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("image #%d: %v", f.Target, f.Err)
	}
	return fmt.Sprintf("%d image(s) failed to recompute: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *ApplyError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// ApplyRequest describes one batch apply
type ApplyRequest struct {
	Chain   *filters.Chain
	Targets []Target
	Mode    Mode
}

// Result summarizes a finished apply run
type Result struct {
	State    State
	Applied  []int64
	Failures []RecomputeFailure
	Duration time.Duration
}

// CoordinatorConfig wires the coordinator's collaborators
type CoordinatorConfig struct {
	Cache      Cache
	Undo       UndoLog
	Recomputer Recomputer
	// Workers bounds parallel recomputes; <= 0 means one per target
	Workers int
	Logger  logrus.FieldLogger
	Metrics *metrics.ApplyMetrics
}

// Coordinator applies chains to batches of targets. Only one apply runs at
// a time; while it runs the coordinator reports itself busy so the editor
// can disable its controls.
type Coordinator struct {
	cache      Cache
	undo       UndoLog
	recomputer Recomputer
	workers    int
	logger     logrus.FieldLogger
	metrics    *metrics.ApplyMetrics

	running sync.Mutex

	mu     sync.Mutex
	state  State
	onBusy func(busy bool)
}

func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Cache == nil || cfg.Undo == nil || cfg.Recomputer == nil {
		return nil, fmt.Errorf("coordinator requires cache, undo log and recomputer")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}
	return &Coordinator{
		cache:      cfg.Cache,
		undo:       cfg.Undo,
		recomputer: cfg.Recomputer,
		workers:    cfg.Workers,
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// OnBusyChange registers a callback invoked with true when an apply starts
// and false once it finished, whatever the outcome
func (c *Coordinator) OnBusyChange(fn func(busy bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBusy = fn
}

// State returns the state of the current or last apply run
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) transition(to State, fields logrus.Fields) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()

	entry := c.logger.WithFields(fields).WithFields(logrus.Fields{"from": from.String(), "to": to.String()})
	entry.Debug("APPLY: state transition")
}

func (c *Coordinator) setBusy(busy bool) {
	c.mu.Lock()
	fn := c.onBusy
	c.mu.Unlock()
	if fn != nil {
		fn(busy)
	}
}

// Apply validates the request, asks confirm to accept sanity warnings and
// then applies a private deep copy of the chain to every target, waiting
// for all recomputes before closing the undo step. Recompute failures do
// not stop other targets; they are returned as an *ApplyError alongside a
// committed Result.
func (c *Coordinator) Apply(ctx context.Context, req ApplyRequest, confirm Confirmer) (*Result, error) {
	if !c.running.TryLock() {
		return nil, ErrBusy
	}
	defer c.running.Unlock()

	c.setBusy(true)
	defer c.setBusy(false)

	start := time.Now()
	c.transition(StateIdle, nil)

	if err := checkPreconditions(req.Targets); err != nil {
		c.abort(err)
		return &Result{State: StateAborted}, err
	}

	if !req.Chain.IsEmpty() {
		sanity := SanityCheck(req.Chain)
		if !sanity.Empty() {
			warning := sanity.Warning()
			c.logger.WithField("warning", strings.TrimSpace(warning)).Warn("APPLY: sanity check raised warnings")
			if confirm == nil || !confirm.ConfirmSanity(warning+"\nContinue?") {
				c.abort(ErrAborted)
				return &Result{State: StateAborted}, ErrAborted
			}
		}
	}
	c.transition(StateSanityChecked, logrus.Fields{"filters": req.Chain.Len()})

	result := c.run(ctx, req)
	result.Duration = time.Since(start)

	if len(result.Failures) > 0 {
		c.metrics.RunFinished(metrics.OutcomeFailed)
		err := &ApplyError{Failures: result.Failures}
		c.logger.WithError(err).Error("APPLY: finished with recompute failures")
		return result, err
	}
	c.metrics.RunFinished(metrics.OutcomeCommitted)
	c.logger.WithFields(logrus.Fields{
		"targets":  len(result.Applied),
		"duration": result.Duration.String(),
	}).Info("APPLY: filters set")
	return result, nil
}

func (c *Coordinator) abort(reason error) {
	c.transition(StateAborted, logrus.Fields{"reason": reason.Error()})
	c.metrics.RunFinished(metrics.OutcomeAborted)
}

func checkPreconditions(targets []Target) error {
	if len(targets) == 0 {
		return ErrNoTargets
	}
	domain := targets[0].Domain()
	for _, t := range targets[1:] {
		if t.Domain() != domain {
			return fmt.Errorf("%w: %q and %q", ErrMixedDomains, domain, t.Domain())
		}
	}
	return nil
}

// run is the transactional part: nothing in here can be canceled.
func (c *Coordinator) run(ctx context.Context, req ApplyRequest) *Result {
	ctx = context.WithoutCancel(ctx)
	c.transition(StateApplying, logrus.Fields{"targets": len(req.Targets), "mode": req.Mode.String()})

	c.undo.BeginStep(req.Targets)

	workers := c.workers
	if workers <= 0 {
		workers = len(req.Targets)
	}
	group := tasks.NewGroup(workers)
	ids := make(map[*tasks.Handle]int64, len(req.Targets))
	result := &Result{Applied: make([]int64, 0, len(req.Targets))}

	for _, t := range req.Targets {
		switch req.Mode {
		case Append:
			t.AppendChain(req.Chain.DeepCopy())
		default:
			// an empty editing chain removes the target's chain
			t.SetChain(asTargetChain(req.Chain))
		}
		c.metrics.TargetApplied(req.Mode.String())

		c.cache.Invalidate(t.ID())
		c.logger.WithFields(logrus.Fields{
			"target": t.ID(),
			"cached": c.cache.IsCached(t.ID()),
		}).Debug("APPLY: cache invalidated")

		target := t
		h := group.Go(fmt.Sprintf("image #%d", t.ID()), func() error {
			done := c.metrics.RecomputeStarted()
			err := c.recomputer.Recompute(ctx, target)
			done(err)
			return err
		})
		ids[h] = t.ID()
		result.Applied = append(result.Applied, t.ID())
	}

	c.transition(StateJoining, nil)
	handles := group.Wait()
	if err := tasks.JoinAll(handles...); err != nil {
		c.logger.WithError(err).Error("APPLY: recompute failed")
		for _, h := range handles {
			if err := h.Wait(); err != nil {
				result.Failures = append(result.Failures, RecomputeFailure{Target: ids[h], Err: err})
			}
		}
	}

	c.undo.EndStep(req.Targets)
	c.transition(StateCommitted, logrus.Fields{"failures": len(result.Failures)})
	result.State = StateCommitted
	return result
}

func asTargetChain(c *filters.Chain) *filters.Chain {
	if c.IsEmpty() {
		return nil
	}
	return c.DeepCopy()
}
