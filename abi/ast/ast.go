// Package ast defines the input data model the core consumes: a tree of
// [TypeDef] nodes describing structs, unions, tagged enums, size-discriminated
// unions, arrays, primitives, and by-name type references, whose sizes and
// discriminants may depend on other fields. The AST is produced by an
// external front end (not part of this package) and is immutable once handed
// to the resolver.
package ast

import (
	"github.com/coreos/go-semver/semver"

	"github.com/abi-tools/abi-tools-go/abi/expr"
	"github.com/abi-tools/abi-tools-go/abi/prim"
)

// TypeDef is a single named type definition.
type TypeDef struct {
	Name    string
	Kind    TypeKind
	Comment string

	// Since and Deprecated optionally record when this type was
	// introduced or deprecated. They are pure metadata: the resolver
	// never changes layout behavior based on them.
	Since      *semver.Version
	Deprecated *semver.Version
}

// TypeKind is the closed set of seven AST-level type shapes.
type TypeKind interface {
	isTypeKind()
}

type typeKind struct{}

func (typeKind) isTypeKind() {}

// Primitive is a direct reference to a built-in scalar type.
type Primitive struct {
	typeKind
	Type prim.Type
}

// TypeRef is a by-name reference to another named [TypeDef].
type TypeRef struct {
	typeKind
	Name    string
	Comment string
}

// ContainerAttributes modifies the layout of a [Struct] or [Array]: whether
// its fields are packed (alignment step of 1), an alignment floor, and a
// doc comment.
type ContainerAttributes struct {
	Packed  bool
	Aligned uint64
	Comment string
}

// Array is a fixed- or variable-length sequence of ElementType. SizeExpr
// gives the element count; when constant, the array has constant size iff
// ElementType also has constant size and Jagged is false. When Jagged is
// true, each element may itself have a different size (the element type is
// typically a TypeRef to a variable-size type), and SizeExpr still gives the
// element *count*, not the byte length.
type Array struct {
	typeKind
	ElementType TypeKind
	SizeExpr    expr.Expr
	Jagged      bool
	Attrs       ContainerAttributes
}

// StructField is a single named field within a [Struct].
type StructField struct {
	Name string
	Kind TypeKind
}

// Struct is an ordered sequence of named fields, laid out with natural
// alignment unless Attrs.Packed is set.
type Struct struct {
	typeKind
	Fields []StructField
	Attrs  ContainerAttributes
}

// UnionVariant is a single named alternative within a [Union].
type UnionVariant struct {
	Name string
	Kind TypeKind
}

// Union is an overlay of same-offset alternatives; its size is the max of
// its variants' sizes, with no external discriminant (the caller is
// expected to know, out of band, which variant is live; see [Enum] for a
// tag-discriminated alternative and [SizeDiscriminatedUnion] for a
// length-discriminated one).
type Union struct {
	typeKind
	Variants []UnionVariant
}

// EnumVariant is a single tagged alternative within an [Enum]. TagValue must
// be unique among an Enum's variants.
type EnumVariant struct {
	Name     string
	TagValue int64
	Kind     TypeKind
}

// Enum is a tagged union: TagExpr yields the discriminant (typically a
// reference to a sibling field), and Variants chooses the payload type by
// matching TagValue.
type Enum struct {
	typeKind
	TagExpr  expr.Expr
	Variants []EnumVariant
}

// SizeDiscriminatedVariant is a single alternative within a
// [SizeDiscriminatedUnion], selected by the observed byte length of its
// payload rather than by an explicit tag.
type SizeDiscriminatedVariant struct {
	Name         string
	ExpectedSize uint64
	Kind         TypeKind
}

// SizeDiscriminatedUnion discriminates its variant by the caller-observed
// (or caller-supplied) payload byte length. It must have at least two
// variants, all with distinct ExpectedSize values.
type SizeDiscriminatedUnion struct {
	typeKind
	Variants []SizeDiscriminatedVariant
}
