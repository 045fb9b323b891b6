package filters

import "fmt"

// Instance is a filter type paired with concrete values for its parameters.
// values is aligned 1:1 with the type's schema and is never shared between
// instances.
type Instance struct {
	typeID TypeID
	schema []Parameter
	values []Value
}

func (f *Instance) Type() TypeID { return f.typeID }

// Len returns the number of parameters
func (f *Instance) Len() int { return len(f.values) }

func (f *Instance) Name(i int) string {
	if i < 0 || i >= len(f.schema) {
		return ""
	}
	return f.schema[i].Name
}

func (f *Instance) Descriptor(i int) (ParameterDescriptor, error) {
	if i < 0 || i >= len(f.schema) {
		return ParameterDescriptor{}, fmt.Errorf("%w: %d of %d", ErrIndex, i, len(f.schema))
	}
	return f.schema[i].ParameterDescriptor, nil
}

// Index finds a parameter by name, -1 if the type has no such parameter
func (f *Instance) Index(name string) int {
	for i, p := range f.schema {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Get renders the value at index i in its canonical text form
func (f *Instance) Get(i int) string {
	if i < 0 || i >= len(f.values) {
		return ""
	}
	return f.values[i].String()
}

func (f *Instance) Value(i int) (Value, error) {
	if i < 0 || i >= len(f.values) {
		return Value{}, fmt.Errorf("%w: %d of %d", ErrIndex, i, len(f.values))
	}
	return f.values[i], nil
}

// Set parses text as the declared kind of parameter i and stores it.
// On a parse error the previous value is kept and the error returned.
func (f *Instance) Set(i int, text string) error {
	if i < 0 || i >= len(f.values) {
		return fmt.Errorf("%w: %d of %d", ErrIndex, i, len(f.values))
	}
	v, err := ParseValue(f.schema[i].Kind, text)
	if err != nil {
		return fmt.Errorf("parameter '%s' of filter '%s': %w", f.schema[i].Name, f.typeID, err)
	}
	f.values[i] = v
	return nil
}

// SetValue stores an already typed value; its kind must match the schema
func (f *Instance) SetValue(i int, v Value) error {
	if i < 0 || i >= len(f.values) {
		return fmt.Errorf("%w: %d of %d", ErrIndex, i, len(f.values))
	}
	if v.Kind() != f.schema[i].Kind {
		return fmt.Errorf("%w: '%s' is %s, got %s", ErrKind, f.schema[i].Name, f.schema[i].Kind, v.Kind())
	}
	f.values[i] = v
	return nil
}

// Copy returns a deep copy sharing no value storage with f
func (f *Instance) Copy() *Instance {
	values := make([]Value, len(f.values))
	copy(values, f.values)
	return &Instance{typeID: f.typeID, schema: f.schema, values: values}
}

// ValueEquals compares by type and then by canonical text form, index by index
func (f *Instance) ValueEquals(other *Instance) bool {
	if f == other {
		return true
	}
	if other == nil || f.typeID != other.typeID || len(f.values) != len(other.values) {
		return false
	}
	for i := range f.values {
		if f.values[i].String() != other.values[i].String() {
			return false
		}
	}
	return true
}

// DiffParameters lists the names of parameters whose text forms differ.
// Instances of different types yield nil.
func (f *Instance) DiffParameters(other *Instance) []string {
	if other == nil || f.typeID != other.typeID {
		return nil
	}
	var names []string
	for i := range f.values {
		if i >= len(other.values) || f.values[i].String() != other.values[i].String() {
			names = append(names, f.schema[i].Name)
		}
	}
	return names
}

func (f *Instance) String() string {
	s := string(f.typeID) + "("
	for i := range f.values {
		if i > 0 {
			s += ", "
		}
		s += f.schema[i].Name + "=" + f.values[i].String()
	}
	return s + ")"
}
