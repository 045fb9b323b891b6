package core

import (
	"fmt"
	"strings"

	"image-filter-editor/internal/filters"
)

// DivergenceKind classifies a consistency finding
type DivergenceKind int

const (
	// DivergenceLength: one chain is absent or the lengths differ
	DivergenceLength DivergenceKind = iota
	// DivergenceType: same length, different filter type at Position
	DivergenceType
	// DivergenceValue: same filter type at Position, different parameters
	DivergenceValue
)

func (k DivergenceKind) String() string {
	switch k {
	case DivergenceLength:
		return "different number of filters"
	case DivergenceType:
		return "different filters"
	case DivergenceValue:
		return "same filter, different parameters"
	}
	return "unknown"
}

// IsStructural reports whether the finding stopped comparison of its target
func (k DivergenceKind) IsStructural() bool {
	return k != DivergenceValue
}

// Divergence is one finding of a consistency check
type Divergence struct {
	Kind       DivergenceKind
	Target     int64
	Reference  int64
	Position   int
	Filter     filters.TypeID
	Parameters []string
}

func (d Divergence) String() string {
	switch d.Kind {
	case DivergenceLength:
		return fmt.Sprintf("WARNING: image #%d has a different number of filters than reference image #%d", d.Target, d.Reference)
	case DivergenceType:
		return fmt.Sprintf("WARNING: image #%d has different filters than reference image #%d", d.Target, d.Reference)
	}
	return fmt.Sprintf("WARNING: image #%d has filter '%s' with different parameters (%s) than reference image #%d",
		d.Target, d.Filter, strings.Join(d.Parameters, ", "), d.Reference)
}

// Report is the ordered result of a consistency check
type Report struct {
	Reference   int64
	Divergences []Divergence
}

// Empty means every chain matched the reference
func (r Report) Empty() bool { return len(r.Divergences) == 0 }

func (r Report) String() string {
	lines := make([]string, len(r.Divergences))
	for i, d := range r.Divergences {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// Targets lists the ids named by the report, once each, in report order
func (r Report) Targets() []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, d := range r.Divergences {
		if !seen[d.Target] {
			seen[d.Target] = true
			ids = append(ids, d.Target)
		}
	}
	return ids
}

// CheckConsistency compares every target's chain with the reference's.
// A nil reference defaults to the first target. An absent chain and an
// empty chain are equivalent.
func CheckConsistency(targets []Target, reference Target) (Report, error) {
	if len(targets) == 0 {
		return Report{}, ErrNoTargets
	}
	if reference == nil {
		reference = targets[0]
	}

	refChain := reference.CurrentChain()
	report := Report{Reference: reference.ID()}

	for _, t := range targets {
		if t.ID() == reference.ID() {
			continue
		}
		report.Divergences = append(report.Divergences, compareChains(t.ID(), reference.ID(), t.CurrentChain(), refChain)...)
	}
	return report, nil
}

// compareChains stops at the first structural mismatch but keeps walking
// past parameter mismatches.
func compareChains(id, refID int64, chain, ref *filters.Chain) []Divergence {
	if chain.Len() != ref.Len() {
		return []Divergence{{Kind: DivergenceLength, Target: id, Reference: refID, Position: -1}}
	}

	var found []Divergence
	for i := 0; i < ref.Len(); i++ {
		have, want := chain.At(i), ref.At(i)
		if have.Type() != want.Type() {
			found = append(found, Divergence{Kind: DivergenceType, Target: id, Reference: refID, Position: i, Filter: have.Type()})
			break
		}
		if !want.ValueEquals(have) {
			found = append(found, Divergence{
				Kind:       DivergenceValue,
				Target:     id,
				Reference:  refID,
				Position:   i,
				Filter:     have.Type(),
				Parameters: want.DiffParameters(have),
			})
		}
	}
	return found
}
