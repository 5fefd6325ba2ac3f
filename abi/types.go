// Package abi implements the type resolver: it lowers an [ast.TypeDef] graph
// into a resolved type graph carrying sizes, alignments, field offsets, and
// the set of external field-reference bindings each type's layout depends
// on. See [Resolve].
package abi

import (
	"github.com/coreos/go-semver/semver"

	"github.com/abi-tools/abi-tools-go/abi/expr"
	"github.com/abi-tools/abi-tools-go/abi/prim"
)

// Size is either a compile-time-known byte count, or a set of external
// bindings (dotted field path -> the primitive type of that field) the
// byte count depends on.
type Size struct {
	constant bool
	bytes    uint64
	bindings map[expr.Path]prim.Type
}

// ConstSize returns a Size fixed at n bytes.
func ConstSize(n uint64) Size {
	return Size{constant: true, bytes: n}
}

// VarSize returns a variable Size carrying bindings. bindings may be empty
// only for the two cases the base specification calls out as exceptions:
// a [SizeDiscriminatedUnion] (its variant is chosen by observed length, not
// by any field) and a jagged array whose element count is itself constant
// (the byte length still isn't knowable without walking the buffer).
func VarSize(bindings map[expr.Path]prim.Type) Size {
	if bindings == nil {
		bindings = map[expr.Path]prim.Type{}
	}
	return Size{bindings: bindings}
}

// IsConst reports whether s is a compile-time-known byte count.
func (s Size) IsConst() bool { return s.constant }

// Bytes returns the constant byte count. It panics if !s.IsConst().
func (s Size) Bytes() uint64 {
	if !s.constant {
		panic("abi: Size.Bytes called on a variable size")
	}
	return s.bytes
}

// Bindings returns the external field bindings a variable size depends on.
// It panics if s.IsConst().
func (s Size) Bindings() map[expr.Path]prim.Type {
	if s.constant {
		panic("abi: Size.Bindings called on a constant size")
	}
	return s.bindings
}

func mergeSize(a, b Size) Size {
	if a.constant && b.constant {
		return ConstSize(a.bytes + b.bytes)
	}
	merged := map[expr.Path]prim.Type{}
	if !a.constant {
		for k, v := range a.bindings {
			merged[k] = v
		}
	}
	if !b.constant {
		for k, v := range b.bindings {
			merged[k] = v
		}
	}
	return VarSize(merged)
}

// ConstantStatus is the result of classifying an expression: either it
// folds to a value, or it carries the set of external field-ref bindings it
// depends on.
type ConstantStatus struct {
	Constant bool
	Value    int64
	Bindings []expr.Path
}

// ResolvedExpr pairs a source expression with its computed ConstantStatus.
type ResolvedExpr struct {
	Expr   expr.Expr
	Status ConstantStatus
}

// Sized is implemented by every [ResolvedTypeKind] and reports its already
// computed ABI size and alignment.
type Sized interface {
	Size() Size
	Align() uint64
}

// ResolvedTypeKind is the closed set of seven resolved type shapes, mirroring
// [ast.TypeKind] but with sizes, alignments, and (for struct fields) offsets
// already computed.
type ResolvedTypeKind interface {
	Sized
	isResolvedTypeKind()
}

type resolvedTypeKind struct{}

func (resolvedTypeKind) isResolvedTypeKind() {}

// RPrimitive is a resolved direct primitive reference.
type RPrimitive struct {
	resolvedTypeKind
	Type prim.Type
}

func (p RPrimitive) Size() Size    { return ConstSize(p.Type.Size()) }
func (p RPrimitive) Align() uint64 { return p.Type.Align() }

// RTypeRef is a resolved by-name reference to another [ResolvedType]. Size
// and Align are copied from the referenced type at resolution time (the
// referenced type is always resolved first).
type RTypeRef struct {
	resolvedTypeKind
	Name      string
	RefSize   Size
	RefAlign  uint64
}

func (r RTypeRef) Size() Size    { return r.RefSize }
func (r RTypeRef) Align() uint64 { return r.RefAlign }

// RField is a single resolved field within an [RStruct]. Offset is nil iff
// a preceding field has a variable size, making this field's position
// itself undecidable until runtime.
type RField struct {
	Name   string
	Kind   ResolvedTypeKind
	Offset *uint64
}

// RStruct is a resolved, ordered sequence of fields.
type RStruct struct {
	resolvedTypeKind
	Fields    []RField
	Attrs     ContainerAttrs
	size      Size
	alignment uint64
}

func (s RStruct) Size() Size    { return s.size }
func (s RStruct) Align() uint64 { return s.alignment }

// ContainerAttrs mirrors [ast.ContainerAttributes] after resolution (it is
// not further processed; it is carried for codegen to read packing rules
// from).
type ContainerAttrs struct {
	Packed  bool
	Aligned uint64
	Comment string
}

// RVariant is a single resolved alternative within an [RUnion].
type RVariant struct {
	Name string
	Kind ResolvedTypeKind
}

// RUnion is a resolved overlay of same-offset alternatives.
type RUnion struct {
	resolvedTypeKind
	Variants  []RVariant
	size      Size
	alignment uint64
}

func (u RUnion) Size() Size    { return u.size }
func (u RUnion) Align() uint64 { return u.alignment }

// REnumVariant is a single resolved tagged alternative within an [REnum].
type REnumVariant struct {
	Name     string
	TagValue int64
	Kind     ResolvedTypeKind
}

// REnum is a resolved tagged union.
type REnum struct {
	resolvedTypeKind
	TagExpr   ResolvedExpr
	Variants  []REnumVariant
	size      Size
	alignment uint64
}

func (e REnum) Size() Size    { return e.size }
func (e REnum) Align() uint64 { return e.alignment }

// EqualSizeVariants reports whether every variant has an equal, constant
// payload size -- the exception the dependency analyzer uses to permit a
// forward-referencing tag expression (see base spec §4.4).
func (e REnum) EqualSizeVariants() bool {
	if len(e.Variants) < 2 {
		return false
	}
	first := e.Variants[0].Kind.Size()
	if !first.IsConst() {
		return false
	}
	for _, v := range e.Variants[1:] {
		sz := v.Kind.Size()
		if !sz.IsConst() || sz.Bytes() != first.Bytes() {
			return false
		}
	}
	return true
}

// RArray is a resolved fixed- or variable-length sequence.
type RArray struct {
	resolvedTypeKind
	Element   ResolvedTypeKind
	SizeExpr  ResolvedExpr
	Jagged    bool
	Attrs     ContainerAttrs
	size      Size
	alignment uint64
}

func (a RArray) Size() Size    { return a.size }
func (a RArray) Align() uint64 { return a.alignment }

// RSDUVariant is a single resolved alternative within an
// [RSizeDiscriminatedUnion].
type RSDUVariant struct {
	Name         string
	ExpectedSize uint64
	Kind         ResolvedTypeKind
}

// RSizeDiscriminatedUnion is a resolved length-discriminated union. Its size
// is always variable with an empty binding set: the variant is chosen by
// the caller-observed payload length, not by any field.
type RSizeDiscriminatedUnion struct {
	resolvedTypeKind
	Variants  []RSDUVariant
	alignment uint64
}

func (u RSizeDiscriminatedUnion) Size() Size    { return VarSize(nil) }
func (u RSizeDiscriminatedUnion) Align() uint64 { return u.alignment }

// ResolvedType is the fully laid-out form of a single named [ast.TypeDef].
type ResolvedType struct {
	Name       string
	Kind       ResolvedTypeKind
	Size       Size
	Alignment  uint64
	Comment    string
	Since      *semver.Version
	Deprecated *semver.Version
}

// Graph is the complete set of [ResolvedType]s produced by a single
// compilation run, plus the order types were first resolved in (a
// topological order over type-reference edges, since a type is always
// resolved before anything that references it).
type Graph struct {
	Types []*ResolvedType
	byName map[string]*ResolvedType
}

// Lookup returns the resolved type named name, or nil if it doesn't exist.
func (g *Graph) Lookup(name string) *ResolvedType {
	return g.byName[name]
}
