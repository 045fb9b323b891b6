package filters

import "fmt"

// FilterSpec is the serialized form of one filter. Parameter values are
// stored in their canonical text form; omitted parameters keep defaults.
type FilterSpec struct {
	Type   TypeID            `json:"type" yaml:"type"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// ChainSpec is the serialized form of a chain
type ChainSpec []FilterSpec

// Spec serializes the chain
func (c *Chain) Spec() ChainSpec {
	spec := make(ChainSpec, 0, c.Len())
	for _, f := range c.Filters() {
		fs := FilterSpec{Type: f.typeID}
		if f.Len() > 0 {
			fs.Params = make(map[string]string, f.Len())
			for i := range f.values {
				fs.Params[f.schema[i].Name] = f.values[i].String()
			}
		}
		spec = append(spec, fs)
	}
	return spec
}

// Build turns a spec back into a chain, parsing every parameter by kind
func (s ChainSpec) Build() (*Chain, error) {
	c := NewChain()
	for pos, fs := range s {
		f, err := c.Add(fs.Type)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", pos, err)
		}
		for name, text := range fs.Params {
			i := f.Index(name)
			if i < 0 {
				return nil, fmt.Errorf("filter %d: '%s' has no parameter '%s'", pos, fs.Type, name)
			}
			if err := f.Set(i, text); err != nil {
				return nil, fmt.Errorf("filter %d: %w", pos, err)
			}
		}
	}
	return c, nil
}
