package core

import (
	"fmt"
	"strings"

	"image-filter-editor/internal/filters"
)

// SanityReport lists the pre-apply warnings for a chain
type SanityReport struct {
	Duplicates []filters.TypeID
	Zeros      []filters.ZeroParameter
}

// SanityCheck flags repeated filter types and zero-valued numeric parameters
func SanityCheck(chain *filters.Chain) SanityReport {
	return SanityReport{
		Duplicates: chain.DuplicateTypes(),
		Zeros:      chain.ZeroValuedParameters(),
	}
}

func (r SanityReport) Empty() bool {
	return len(r.Duplicates) == 0 && len(r.Zeros) == 0
}

// Warning renders the combined warning text, empty when there is nothing to report
func (r SanityReport) Warning() string {
	var sb strings.Builder
	if len(r.Duplicates) > 0 {
		sb.WriteString("WARNING: there are repeated filters!\n")
	}
	for _, z := range r.Zeros {
		fmt.Fprintf(&sb, "WARNING: parameter '%s' of filter '%s' is zero!\n", z.Parameter, z.Filter)
	}
	return sb.String()
}
