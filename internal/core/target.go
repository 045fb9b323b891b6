// Collaborator contracts consumed by the filter chain engine
package core

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"image-filter-editor/internal/filters"
)

var (
	ErrNoTargets    = errors.New("no target images")
	ErrMixedDomains = errors.New("target images belong to different projects")
	ErrAborted      = errors.New("apply aborted by operator")
	ErrCanceled     = errors.New("canceled by operator")
	ErrBusy         = errors.New("another apply is in progress")
)

// Target is an image that owns a filter chain and a cached raster
type Target interface {
	ID() int64
	// Domain names the consistency domain (the project) of the target
	Domain() string
	// CurrentChain returns the configured chain, nil when none is set.
	// Implementations report an empty chain as nil. Callers must treat it
	// as read-only.
	CurrentChain() *filters.Chain
	// SetChain replaces the chain wholesale; nil removes it
	SetChain(c *filters.Chain)
	// AppendChain adds c's filters after the existing ones
	AppendChain(c *filters.Chain)
}

// Cache is the raster cache holding each target's derived image
type Cache interface {
	Invalidate(id int64)
	IsCached(id int64) bool
}

// UndoLog brackets a batch mutation with before/after snapshots
type UndoLog interface {
	BeginStep(targets []Target)
	EndStep(targets []Target)
}

// Recomputer regenerates a target's derived raster from its chain
type Recomputer interface {
	Recompute(ctx context.Context, t Target) error
}

// Resolution is the operator's answer to a divergence report
type Resolution int

const (
	UseReference Resolution = iota
	StartEmpty
)

func (r Resolution) String() string {
	if r == StartEmpty {
		return "Start from an empty list of filters"
	}
	return "Use the filters of the reference image"
}

// Mode selects how an applied chain combines with a target's existing one
type Mode int

const (
	Replace Mode = iota
	Append
)

func (m Mode) String() string {
	if m == Append {
		return "append"
	}
	return "replace"
}

// ParseMode accepts "replace" or "append"; anything else is an error
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "replace":
		return Replace, nil
	case "append":
		return Append, nil
	}
	return Replace, errors.New("unknown apply mode: " + s)
}

// Resolver asks the operator how to seed the editor after a divergence
type Resolver interface {
	ResolveDivergence(report Report) (Resolution, error)
}

// Confirmer asks the operator to accept a sanity warning
type Confirmer interface {
	ConfirmSanity(warning string) bool
}

// Presenter is the presentation layer seen from the engine
type Presenter interface {
	Resolver
	Confirmer
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
