// Package ir describes the dynamic parameters a resolved type needs, at
// runtime, to validate or build an instance: the IR the code generator plans
// against once the resolver and dependency analyzer have finished.
package ir

import "github.com/abi-tools/abi-tools-go/abi/expr"

// Primitive mirrors the primitive kinds a dynamic parameter can take. It is
// always one of the width-tagged integer kinds used for counts, tags, and
// payload sizes; IR parameters are never floating point.
type Primitive int

const (
	U8 Primitive = iota
	U16
	U32
	U64
)

func (p Primitive) String() string {
	switch p {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	default:
		return "u64"
	}
}

// Param is a single dynamic parameter a type's footprint/validate/build
// surface needs. Path is the canonical dotted path of the field it
// ultimately binds (for a derived parameter, the field that supplies the
// value; for an external binding, the path as referenced from the type's own
// size or tag expression).
type Param struct {
	// Name is the parameter's local name, such as "len" or "payload_size".
	Name string
	// Path is the canonical dotted path this parameter corresponds to.
	Path expr.Path
	// Type is the primitive type the parameter is read/written as.
	Type Primitive
	// Derived is true when the builder can compute this parameter itself
	// from a prior primitive field already present in the buffer/builder,
	// rather than asking the caller to supply it.
	Derived bool
}

// ParamList is an ordered, duplicate-free set of [Param]s, keyed by Path.
type ParamList struct {
	params []Param
	index  map[expr.Path]int
}

// NewParamList returns an empty ParamList.
func NewParamList() *ParamList {
	return &ParamList{index: make(map[expr.Path]int)}
}

// Add inserts p, or merges it into an existing entry for the same Path: a
// parameter becomes Derived if any contributor marks it Derived, since a
// single buffer-recoverable field satisfies the need regardless of how many
// expressions reference it.
func (l *ParamList) Add(p Param) {
	if i, ok := l.index[p.Path]; ok {
		if p.Derived {
			l.params[i].Derived = true
		}
		return
	}
	l.index[p.Path] = len(l.params)
	l.params = append(l.params, p)
}

// Params returns the accumulated parameters in insertion order.
func (l *ParamList) Params() []Param {
	return l.params
}

// NonDerived returns the subset of parameters the caller must supply.
func (l *ParamList) NonDerived() []Param {
	out := make([]Param, 0, len(l.params))
	for _, p := range l.params {
		if !p.Derived {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of distinct parameters.
func (l *ParamList) Len() int {
	return len(l.params)
}
