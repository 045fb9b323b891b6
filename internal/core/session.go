package core

import (
	"github.com/sirupsen/logrus"

	"image-filter-editor/internal/filters"
)

// Session is one editing session over a set of target images. It owns
// the editing chain, a free-standing deep copy until applied.
type Session struct {
	targets   []Target
	reference Target
	report    Report
	chain     *filters.Chain
	logger    logrus.FieldLogger
}

// NewSession checks the targets for consistency and seeds the editing chain
// from the reference. When chains diverge the resolver decides whether the
// seed is the reference chain or an empty one; ErrCanceled from the
// resolver aborts the session.
func NewSession(targets []Target, reference Target, resolver Resolver, logger logrus.FieldLogger) (*Session, error) {
	if logger == nil {
		logger = discardLogger()
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if reference == nil {
		reference = targets[0]
	}

	report, err := CheckConsistency(targets, reference)
	if err != nil {
		return nil, err
	}

	s := &Session{
		targets:   targets,
		reference: reference,
		report:    report,
		chain:     reference.CurrentChain().DeepCopy(),
		logger:    logger,
	}

	if !report.Empty() {
		logger.WithFields(logrus.Fields{
			"reference":   reference.ID(),
			"divergences": len(report.Divergences),
		}).Warn("Filters are not all the same for all images")

		if resolver == nil {
			return nil, ErrCanceled
		}
		resolution, err := resolver.ResolveDivergence(report)
		if err != nil {
			return nil, err
		}
		s.Resolve(resolution)
	}
	return s, nil
}

// Resolve reseeds the editing chain per the operator's choice
func (s *Session) Resolve(r Resolution) {
	switch r {
	case StartEmpty:
		s.chain = filters.NewChain()
	default:
		s.chain = s.reference.CurrentChain().DeepCopy()
	}
	s.logger.WithField("resolution", r.String()).Info("Editing chain seeded")
}

func (s *Session) Chain() *filters.Chain { return s.chain }

func (s *Session) Report() Report { return s.report }

func (s *Session) Reference() Target { return s.reference }

// Targets returns the images the session was opened on
func (s *Session) Targets() []Target {
	result := make([]Target, len(s.targets))
	copy(result, s.targets)
	return result
}
