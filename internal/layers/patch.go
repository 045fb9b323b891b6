package layers

import (
	"sync"

	"image-filter-editor/internal/filters"
)

// Patch is one image placed in a layer. It owns its filter chain.
type Patch struct {
	mu      sync.RWMutex
	id      int64
	title   string
	source  string
	visible bool
	layer   *Layer
	chain   *filters.Chain
}

func (p *Patch) ID() int64 { return p.id }

// Domain is the name of the project the patch belongs to
func (p *Patch) Domain() string { return p.layer.project.name }

func (p *Patch) Title() string { return p.title }

// Source is the path of the original image file
func (p *Patch) Source() string { return p.source }

func (p *Patch) Layer() *Layer { return p.layer }

func (p *Patch) Visible() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.visible
}

func (p *Patch) SetVisible(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = visible
}

// CurrentChain returns the patch's chain, nil when it has none
func (p *Patch) CurrentChain() *filters.Chain {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chain
}

// SetChain replaces the chain; nil or empty removes it
func (p *Patch) SetChain(c *filters.Chain) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.IsEmpty() {
		c = nil
	}
	p.chain = c
}

// AppendChain adds copies of c's filters after the existing ones
func (p *Patch) AppendChain(c *filters.Chain) {
	if c.IsEmpty() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chain == nil {
		p.chain = filters.NewChain()
	}
	p.chain.Append(c)
}
