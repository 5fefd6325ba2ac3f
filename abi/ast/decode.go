package ast

import (
	"encoding/json"
	"fmt"

	"github.com/coreos/go-semver/semver"

	"github.com/abi-tools/abi-tools-go/abi/expr"
	"github.com/abi-tools/abi-tools-go/abi/prim"
)

// Document is the top-level JSON document a front end hands to the core:
// an ordered list of type definitions. Order does not need to be
// topological; the dependency analyzer computes that separately.
type Document struct {
	Types []*TypeDef
}

// DecodeJSON decodes a [Document] from data. This is the one place the core
// touches an external wire format; it exists purely as a convenience so the
// core can be driven without a caller hand-assembling the AST in Go.
func DecodeJSON(data []byte) (*Document, error) {
	var raw struct {
		Types []json.RawMessage `json:"types"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ast: decode document: %w", err)
	}
	doc := &Document{Types: make([]*TypeDef, 0, len(raw.Types))}
	for i, rm := range raw.Types {
		td, err := decodeTypeDef(rm)
		if err != nil {
			return nil, fmt.Errorf("ast: decode document: types[%d]: %w", i, err)
		}
		doc.Types = append(doc.Types, td)
	}
	return doc, nil
}

type typeDefEnvelope struct {
	Name       string          `json:"name"`
	Kind       json.RawMessage `json:"kind"`
	Comment    string          `json:"comment,omitempty"`
	Since      string          `json:"since,omitempty"`
	Deprecated string          `json:"deprecated,omitempty"`
}

func decodeTypeDef(data []byte) (*TypeDef, error) {
	var env typeDefEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	kind, err := decodeTypeKind(env.Kind)
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", env.Name, err)
	}
	td := &TypeDef{Name: env.Name, Kind: kind, Comment: env.Comment}
	if env.Since != "" {
		v, err := semver.NewVersion(env.Since)
		if err != nil {
			return nil, fmt.Errorf("type %q: since: %w", env.Name, err)
		}
		td.Since = v
	}
	if env.Deprecated != "" {
		v, err := semver.NewVersion(env.Deprecated)
		if err != nil {
			return nil, fmt.Errorf("type %q: deprecated: %w", env.Name, err)
		}
		td.Deprecated = v
	}
	return td, nil
}

// kindEnvelope carries the "variant" discriminator common to every TypeKind
// JSON object, plus every variant's fields flattened; unused fields for a
// given variant are simply ignored.
type kindEnvelope struct {
	Variant string `json:"variant"`

	// Primitive
	Primitive string `json:"primitive,omitempty"`

	// TypeRef
	Name    string `json:"name,omitempty"`
	Comment string `json:"comment,omitempty"`

	// Array
	ElementType json.RawMessage `json:"element_type,omitempty"`
	SizeExpr    json.RawMessage `json:"size_expr,omitempty"`
	Jagged      bool            `json:"jagged,omitempty"`
	Attrs       *attrsEnvelope  `json:"attrs,omitempty"`

	// Struct
	Fields []fieldEnvelope `json:"fields,omitempty"`

	// Union
	Variants []variantEnvelope `json:"variants,omitempty"`

	// Enum
	TagExpr json.RawMessage `json:"tag_expr,omitempty"`

	// SizeDiscriminatedUnion
	SDUVariants []sduVariantEnvelope `json:"sdu_variants,omitempty"`
}

type attrsEnvelope struct {
	Packed  bool   `json:"packed,omitempty"`
	Aligned uint64 `json:"aligned,omitempty"`
	Comment string `json:"comment,omitempty"`
}

func (a *attrsEnvelope) toAttrs() ContainerAttributes {
	if a == nil {
		return ContainerAttributes{}
	}
	return ContainerAttributes{Packed: a.Packed, Aligned: a.Aligned, Comment: a.Comment}
}

type fieldEnvelope struct {
	Name string          `json:"name"`
	Kind json.RawMessage `json:"kind"`
}

type variantEnvelope struct {
	Name     string          `json:"name"`
	Kind     json.RawMessage `json:"kind"`
	TagValue int64           `json:"tag_value,omitempty"`
}

type sduVariantEnvelope struct {
	Name         string          `json:"name"`
	ExpectedSize uint64          `json:"expected_size"`
	Kind         json.RawMessage `json:"kind"`
}

func decodeTypeKind(data []byte) (TypeKind, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing kind")
	}
	var env kindEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode kind: %w", err)
	}
	switch env.Variant {
	case "primitive":
		p, err := prim.Parse(env.Primitive)
		if err != nil {
			return nil, err
		}
		return Primitive{Type: p}, nil
	case "type_ref":
		return TypeRef{Name: env.Name, Comment: env.Comment}, nil
	case "array":
		elem, err := decodeTypeKind(env.ElementType)
		if err != nil {
			return nil, fmt.Errorf("array element_type: %w", err)
		}
		sz, err := decodeExpr(env.SizeExpr)
		if err != nil {
			return nil, fmt.Errorf("array size_expr: %w", err)
		}
		return Array{ElementType: elem, SizeExpr: sz, Jagged: env.Jagged, Attrs: env.Attrs.toAttrs()}, nil
	case "struct":
		fields := make([]StructField, 0, len(env.Fields))
		for i, f := range env.Fields {
			k, err := decodeTypeKind(f.Kind)
			if err != nil {
				return nil, fmt.Errorf("struct field[%d] %q: %w", i, f.Name, err)
			}
			fields = append(fields, StructField{Name: f.Name, Kind: k})
		}
		return Struct{Fields: fields, Attrs: env.Attrs.toAttrs()}, nil
	case "union":
		variants := make([]UnionVariant, 0, len(env.Variants))
		for i, v := range env.Variants {
			k, err := decodeTypeKind(v.Kind)
			if err != nil {
				return nil, fmt.Errorf("union variant[%d] %q: %w", i, v.Name, err)
			}
			variants = append(variants, UnionVariant{Name: v.Name, Kind: k})
		}
		return Union{Variants: variants}, nil
	case "enum":
		tag, err := decodeExpr(env.TagExpr)
		if err != nil {
			return nil, fmt.Errorf("enum tag_expr: %w", err)
		}
		variants := make([]EnumVariant, 0, len(env.Variants))
		for i, v := range env.Variants {
			k, err := decodeTypeKind(v.Kind)
			if err != nil {
				return nil, fmt.Errorf("enum variant[%d] %q: %w", i, v.Name, err)
			}
			variants = append(variants, EnumVariant{Name: v.Name, TagValue: v.TagValue, Kind: k})
		}
		return Enum{TagExpr: tag, Variants: variants}, nil
	case "size_discriminated_union":
		variants := make([]SizeDiscriminatedVariant, 0, len(env.SDUVariants))
		for i, v := range env.SDUVariants {
			k, err := decodeTypeKind(v.Kind)
			if err != nil {
				return nil, fmt.Errorf("size_discriminated_union variant[%d] %q: %w", i, v.Name, err)
			}
			variants = append(variants, SizeDiscriminatedVariant{Name: v.Name, ExpectedSize: v.ExpectedSize, Kind: k})
		}
		return SizeDiscriminatedUnion{Variants: variants}, nil
	default:
		return nil, fmt.Errorf("unknown type kind variant %q", env.Variant)
	}
}

type exprEnvelope struct {
	Variant string          `json:"variant"`
	Value   int64           `json:"value,omitempty"`
	Path    string          `json:"path,omitempty"`
	Name    string          `json:"name,omitempty"`
	Op      string          `json:"op,omitempty"`
	Left    json.RawMessage `json:"left,omitempty"`
	Right   json.RawMessage `json:"right,omitempty"`
	Operand json.RawMessage `json:"operand,omitempty"`
}

func decodeExpr(data []byte) (expr.Expr, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing expression")
	}
	var env exprEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode expression: %w", err)
	}
	switch env.Variant {
	case "literal":
		return expr.Literal{Value: env.Value}, nil
	case "field_ref":
		return expr.FieldRef{Path: expr.Path(env.Path)}, nil
	case "sizeof":
		return expr.SizeofType{Name: env.Name}, nil
	case "alignof":
		return expr.AlignofType{Name: env.Name}, nil
	case "binary":
		op, err := decodeBinaryOp(env.Op)
		if err != nil {
			return nil, err
		}
		l, err := decodeExpr(env.Left)
		if err != nil {
			return nil, fmt.Errorf("binary left: %w", err)
		}
		r, err := decodeExpr(env.Right)
		if err != nil {
			return nil, fmt.Errorf("binary right: %w", err)
		}
		return expr.Binary{Op: op, Left: l, Right: r}, nil
	case "unary":
		op, err := decodeUnaryOp(env.Op)
		if err != nil {
			return nil, err
		}
		operand, err := decodeExpr(env.Operand)
		if err != nil {
			return nil, fmt.Errorf("unary operand: %w", err)
		}
		return expr.Unary{Op: op, Operand: operand}, nil
	default:
		return nil, fmt.Errorf("unknown expression variant %q", env.Variant)
	}
}

func decodeBinaryOp(s string) (expr.BinaryOp, error) {
	switch s {
	case "+":
		return expr.Add, nil
	case "-":
		return expr.Sub, nil
	case "*":
		return expr.Mul, nil
	case "/":
		return expr.Div, nil
	case "%":
		return expr.Mod, nil
	case "&":
		return expr.And, nil
	case "|":
		return expr.Or, nil
	case "^":
		return expr.Xor, nil
	case "<<":
		return expr.Shl, nil
	case ">>":
		return expr.Shr, nil
	default:
		return 0, fmt.Errorf("unknown binary operator %q", s)
	}
}

func decodeUnaryOp(s string) (expr.UnaryOp, error) {
	switch s {
	case "-":
		return expr.Neg, nil
	case "^":
		return expr.Not, nil
	case "popcount":
		return expr.PopcountOp, nil
	default:
		return 0, fmt.Errorf("unknown unary operator %q", s)
	}
}
