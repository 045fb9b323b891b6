package filters

import (
	"errors"
	"fmt"
)

var (
	ErrPosition = errors.New("chain position out of range")
	ErrNilChain = errors.New("nil chain")
)

// ZeroParameter locates a numeric parameter whose value renders as zero
type ZeroParameter struct {
	Position  int
	Filter    TypeID
	Parameter string
}

// Chain is an ordered sequence of filters, applied first to last.
// Duplicate types are allowed and only flagged by DuplicateTypes.
// A nil *Chain reads as empty; Insert and Add reject it with ErrNilChain.
type Chain struct {
	filters []*Instance
}

// NewChain builds a chain holding the given instances (not copies)
func NewChain(filters ...*Instance) *Chain {
	c := &Chain{filters: make([]*Instance, 0, len(filters))}
	for _, f := range filters {
		if f != nil {
			c.filters = append(c.filters, f)
		}
	}
	return c
}

func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.filters)
}

func (c *Chain) IsEmpty() bool { return c.Len() == 0 }

// At returns the filter at position pos, nil when out of range
func (c *Chain) At(pos int) *Instance {
	if pos < 0 || pos >= c.Len() {
		return nil
	}
	return c.filters[pos]
}

// Filters returns the chain's instances in order; the slice is a copy,
// the instances are not.
func (c *Chain) Filters() []*Instance {
	result := make([]*Instance, c.Len())
	if c != nil {
		copy(result, c.filters)
	}
	return result
}

// Types lists the filter types in chain order
func (c *Chain) Types() []TypeID {
	result := make([]TypeID, c.Len())
	for i := range result {
		result[i] = c.filters[i].typeID
	}
	return result
}

// Insert creates a default instance of id at pos (0..Len)
func (c *Chain) Insert(id TypeID, pos int) (*Instance, error) {
	if c == nil {
		return nil, ErrNilChain
	}
	if pos < 0 || pos > len(c.filters) {
		return nil, fmt.Errorf("%w: insert at %d of %d", ErrPosition, pos, len(c.filters))
	}
	f, err := NewInstance(id)
	if err != nil {
		return nil, err
	}
	c.filters = append(c.filters, nil)
	copy(c.filters[pos+1:], c.filters[pos:])
	c.filters[pos] = f
	return f, nil
}

// Add appends a default instance of id
func (c *Chain) Add(id TypeID) (*Instance, error) {
	return c.Insert(id, c.Len())
}

// RemoveAt deletes the filter at pos and returns the position the editor
// should select next, -1 when the chain became empty.
func (c *Chain) RemoveAt(pos int) (int, error) {
	if pos < 0 || pos >= c.Len() {
		return -1, fmt.Errorf("%w: remove at %d of %d", ErrPosition, pos, c.Len())
	}
	last := len(c.filters) - 1
	c.filters = append(c.filters[:pos], c.filters[pos+1:]...)

	switch {
	case len(c.filters) == 0:
		return -1, nil
	case pos == 0:
		return 0, nil
	case pos == last:
		return len(c.filters) - 1, nil
	}
	return pos - 1, nil
}

// MoveUp swaps the filter at pos with its predecessor and returns the new
// position. At the first position it is a no-op.
func (c *Chain) MoveUp(pos int) int {
	if pos <= 0 || pos >= c.Len() {
		return pos
	}
	c.filters[pos-1], c.filters[pos] = c.filters[pos], c.filters[pos-1]
	return pos - 1
}

// MoveDown swaps the filter at pos with its successor and returns the new
// position. At the last position it is a no-op.
func (c *Chain) MoveDown(pos int) int {
	if pos < 0 || pos >= c.Len()-1 {
		return pos
	}
	c.filters[pos+1], c.filters[pos] = c.filters[pos], c.filters[pos+1]
	return pos + 1
}

// Clear removes every filter
func (c *Chain) Clear() {
	if c == nil {
		return
	}
	c.filters = c.filters[:0]
}

// DuplicateTypes returns each type appearing at least twice, in order of
// first appearance
func (c *Chain) DuplicateTypes() []TypeID {
	counts := make(map[TypeID]int)
	var order []TypeID
	for _, f := range c.Filters() {
		if counts[f.typeID] == 0 {
			order = append(order, f.typeID)
		}
		counts[f.typeID]++
	}

	var dups []TypeID
	for _, id := range order {
		if counts[id] > 1 {
			dups = append(dups, id)
		}
	}
	return dups
}

// ZeroValuedParameters flags numeric parameters rendering as "0" or "0.0".
// String parameters are exempt even when their text is "0".
func (c *Chain) ZeroValuedParameters() []ZeroParameter {
	var zeros []ZeroParameter
	for pos, f := range c.Filters() {
		for i, v := range f.values {
			if !f.schema[i].Kind.IsNumeric() {
				continue
			}
			if isZeroText(v.String()) {
				zeros = append(zeros, ZeroParameter{Position: pos, Filter: f.typeID, Parameter: f.schema[i].Name})
			}
		}
	}
	return zeros
}

// DeepCopy clones every element; a nil chain copies to an empty one
func (c *Chain) DeepCopy() *Chain {
	out := &Chain{filters: make([]*Instance, c.Len())}
	for i := range out.filters {
		out.filters[i] = c.filters[i].Copy()
	}
	return out
}

// Append adds deep copies of other's filters to the end of c, which must
// be non-nil
func (c *Chain) Append(other *Chain) {
	for _, f := range other.Filters() {
		c.filters = append(c.filters, f.Copy())
	}
}

// Equal reports whether both chains have the same types and text values
func (c *Chain) Equal(other *Chain) bool {
	if c.Len() != other.Len() {
		return false
	}
	for i := 0; i < c.Len(); i++ {
		if !c.filters[i].ValueEquals(other.filters[i]) {
			return false
		}
	}
	return true
}

// Duplicate deep-copies a possibly absent chain; nil stays nil
func Duplicate(c *Chain) *Chain {
	if c == nil {
		return nil
	}
	return c.DeepCopy()
}

func (c *Chain) String() string {
	s := "["
	for i, f := range c.Filters() {
		if i > 0 {
			s += ", "
		}
		s += f.String()
	}
	return s + "]"
}
