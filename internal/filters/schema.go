// Filter catalog and per-type parameter schema registry
package filters

import (
	"errors"
	"fmt"
	"sync"
)

// TypeID identifies a concrete filter kind from the fixed catalog
type TypeID string

const (
	CLAHE              TypeID = "CLAHE"
	EqualizeHistogram  TypeID = "EqualizeHistogram"
	GaussianBlur       TypeID = "GaussianBlur"
	Invert             TypeID = "Invert"
	Normalize          TypeID = "Normalize"
	RankFilter         TypeID = "RankFilter"
	SubtractBackground TypeID = "SubtractBackground"
	LUTRed             TypeID = "LUTRed"
	LUTGreen           TypeID = "LUTGreen"
	LUTBlue            TypeID = "LUTBlue"
	LUTMagenta         TypeID = "LUTMagenta"
	LUTCyan            TypeID = "LUTCyan"
	LUTYellow          TypeID = "LUTYellow"
)

// Rank filter operations selected by RankFilter's "type" parameter
const (
	RankMean     int8 = 0
	RankMin      int8 = 1
	RankMax      int8 = 2
	RankVariance int8 = 3
	RankMedian   int8 = 4
)

var (
	ErrUnknownType = errors.New("unknown filter type")
	ErrIndex       = errors.New("parameter index out of range")
	ErrKind        = errors.New("value kind does not match parameter")
)

// ParameterDescriptor names one editable slot of a filter type
type ParameterDescriptor struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Parameter couples a descriptor with its built-in default value
type Parameter struct {
	ParameterDescriptor
	Default Value
}

// Param declares a parameter whose kind is taken from the default value
func Param(name string, def Value) Parameter {
	return Parameter{ParameterDescriptor: ParameterDescriptor{Name: name, Kind: def.Kind()}, Default: def}
}

type typeEntry struct {
	id     TypeID
	params []Parameter
}

var (
	registryMu sync.RWMutex
	registry   = make(map[TypeID]*typeEntry)
	catalog    []TypeID
	schemas    = make(map[TypeID][]ParameterDescriptor)
)

// Register adds a filter type to the catalog. Parameter order is preserved
// and defines row order everywhere the parameters are listed.
func Register(id TypeID, params ...Parameter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[id]; !exists {
		catalog = append(catalog, id)
	}
	registry[id] = &typeEntry{id: id, params: params}
	delete(schemas, id)
}

func lookup(id TypeID) (*typeEntry, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	entry, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, id)
	}
	return entry, nil
}

// IsKnown reports whether id is part of the catalog
func IsKnown(id TypeID) bool {
	_, err := lookup(id)
	return err == nil
}

// Catalog lists the available filter types in registration order
func Catalog() []TypeID {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TypeID, len(catalog))
	copy(result, catalog)
	return result
}

// Schema returns the ordered parameter descriptors of a filter type.
// The slice is memoized per type; callers get their own copy.
func Schema(id TypeID) ([]ParameterDescriptor, error) {
	registryMu.RLock()
	cached, ok := schemas[id]
	registryMu.RUnlock()
	if ok {
		return cloneDescriptors(cached), nil
	}

	entry, err := lookup(id)
	if err != nil {
		return nil, err
	}

	descriptors := make([]ParameterDescriptor, len(entry.params))
	for i, p := range entry.params {
		descriptors[i] = p.ParameterDescriptor
	}

	registryMu.Lock()
	schemas[id] = descriptors
	registryMu.Unlock()

	return cloneDescriptors(descriptors), nil
}

func cloneDescriptors(in []ParameterDescriptor) []ParameterDescriptor {
	out := make([]ParameterDescriptor, len(in))
	copy(out, in)
	return out
}

// NewInstance creates a filter of the given type holding its default values
func NewInstance(id TypeID) (*Instance, error) {
	entry, err := lookup(id)
	if err != nil {
		return nil, err
	}

	values := make([]Value, len(entry.params))
	for i, p := range entry.params {
		values[i] = p.Default
	}
	return &Instance{typeID: id, schema: entry.params, values: values}, nil
}

func init() {
	Register(CLAHE,
		Param("blockRadius", Int32Value(63)),
		Param("bins", Int16Value(255)),
		Param("slope", Float32Value(3)),
	)
	Register(EqualizeHistogram)
	Register(GaussianBlur,
		Param("radius", Float64Value(2)),
		Param("accuracy", Float64Value(0.002)),
	)
	Register(Invert)
	Register(Normalize,
		Param("saturated", Float64Value(0.4)),
	)
	Register(RankFilter,
		Param("radius", Float64Value(2)),
		Param("type", Int8Value(RankMedian)),
	)
	Register(SubtractBackground,
		Param("radius", Int64Value(50)),
		Param("shape", StringValue("rolling")),
	)
	Register(LUTRed)
	Register(LUTGreen)
	Register(LUTBlue)
	Register(LUTMagenta)
	Register(LUTCyan)
	Register(LUTYellow)
}
