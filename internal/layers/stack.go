// Layers package: a project's stack of layers holding image patches
package layers

import (
	"fmt"
	"sort"
	"sync"

	"image-filter-editor/internal/core"
)

// Layer is one section of the stack, holding patches in insertion order
type Layer struct {
	project *Project
	index   int
	name    string
	patches []*Patch
}

func (l *Layer) Index() int { return l.index }

func (l *Layer) Name() string { return l.name }

// Patches returns the layer's patches, only the visible ones if visibleOnly
func (l *Layer) Patches(visibleOnly bool) []*Patch {
	l.project.mu.RLock()
	defer l.project.mu.RUnlock()

	result := make([]*Patch, 0, len(l.patches))
	for _, p := range l.patches {
		if visibleOnly && !p.Visible() {
			continue
		}
		result = append(result, p)
	}
	return result
}

// AddPatch places a new image in the layer and assigns it a project-wide id
func (l *Layer) AddPatch(title, source string, visible bool) *Patch {
	l.project.mu.Lock()
	defer l.project.mu.Unlock()

	p := &Patch{
		id:      l.project.nextID,
		title:   title,
		source:  source,
		visible: visible,
		layer:   l,
	}
	l.project.nextID++
	l.patches = append(l.patches, p)
	l.project.patches[p.id] = p
	return p
}

// Project is the consistency domain: a named stack of layers
type Project struct {
	mu      sync.RWMutex
	name    string
	layers  []*Layer
	patches map[int64]*Patch
	nextID  int64
}

func NewProject(name string) *Project {
	return &Project{
		name:    name,
		layers:  make([]*Layer, 0),
		patches: make(map[int64]*Patch),
		nextID:  1,
	}
}

func (p *Project) Name() string { return p.name }

// AddLayer appends a layer at the bottom of the stack
func (p *Project) AddLayer(name string) *Layer {
	p.mu.Lock()
	defer p.mu.Unlock()

	l := &Layer{project: p, index: len(p.layers), name: name}
	p.layers = append(p.layers, l)
	return l
}

// Layers returns all layers in stack order
func (p *Project) Layers() []*Layer {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*Layer, len(p.layers))
	copy(result, p.layers)
	return result
}

func (p *Project) Layer(index int) (*Layer, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if index < 0 || index >= len(p.layers) {
		return nil, fmt.Errorf("layer %d out of range (project has %d)", index, len(p.layers))
	}
	return p.layers[index], nil
}

func (p *Project) Patch(id int64) (*Patch, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	patch, ok := p.patches[id]
	return patch, ok
}

// AllPatches returns every patch ordered by id
func (p *Project) AllPatches() []*Patch {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*Patch, 0, len(p.patches))
	for _, patch := range p.patches {
		result = append(result, patch)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].id < result[j].id })
	return result
}

// Targets adapts patches to the engine's target contract
func Targets(patches []*Patch) []core.Target {
	result := make([]core.Target, len(patches))
	for i, p := range patches {
		result[i] = p
	}
	return result
}
