package layers

import (
	"fmt"
	"regexp"
)

// SelectionMode chooses which images an apply targets
type SelectionMode int

const (
	// SelectExplicit takes the patches listed in Selection.IDs
	SelectExplicit SelectionMode = iota
	// SelectLayer takes every patch in Selection.Layer
	SelectLayer
	// SelectLayerRange takes patches in layers First..Last whose title
	// matches TitlePattern, optionally visible ones only
	SelectLayerRange
)

func (m SelectionMode) String() string {
	switch m {
	case SelectLayer:
		return "layer"
	case SelectLayerRange:
		return "layer range"
	}
	return "explicit"
}

type Selection struct {
	Mode         SelectionMode
	IDs          []int64
	Layer        int
	First, Last  int
	TitlePattern string
	VisibleOnly  bool
}

// ListTargets resolves a selection to patches of this project
func (p *Project) ListTargets(sel Selection) ([]*Patch, error) {
	switch sel.Mode {
	case SelectExplicit:
		result := make([]*Patch, 0, len(sel.IDs))
		for _, id := range sel.IDs {
			patch, ok := p.Patch(id)
			if !ok {
				return nil, fmt.Errorf("image #%d is not part of project %q", id, p.name)
			}
			result = append(result, patch)
		}
		return result, nil

	case SelectLayer:
		l, err := p.Layer(sel.Layer)
		if err != nil {
			return nil, err
		}
		return l.Patches(false), nil

	case SelectLayerRange:
		var pattern *regexp.Regexp
		if sel.TitlePattern != "" {
			re, err := regexp.Compile(`^(?:` + sel.TitlePattern + `)$`)
			if err != nil {
				return nil, fmt.Errorf("invalid title pattern: %w", err)
			}
			pattern = re
		}

		first, last := sel.First, sel.Last
		if first > last {
			first, last = last, first
		}
		var result []*Patch
		for i := first; i <= last; i++ {
			l, err := p.Layer(i)
			if err != nil {
				return nil, err
			}
			for _, patch := range l.Patches(sel.VisibleOnly) {
				if pattern != nil && !pattern.MatchString(patch.Title()) {
					continue
				}
				result = append(result, patch)
			}
		}
		return result, nil
	}
	return nil, fmt.Errorf("unknown selection mode %d", sel.Mode)
}
