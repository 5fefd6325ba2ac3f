package codegen

import (
	"testing"

	"github.com/abi-tools/abi-tools-go/abi/ast"
	"github.com/abi-tools/abi-tools-go/abi/expr"
	"github.com/abi-tools/abi-tools-go/abi/prim"
)

func TestExtractParamsDerivedLengthField(t *testing.T) {
	defs := []*ast.TypeDef{{
		Name: "Msg",
		Kind: ast.Struct{Fields: []ast.StructField{
			primField("len", prim.U16),
			{Name: "payload", Kind: ast.Array{ElementType: ast.Primitive{Type: prim.U8}, SizeExpr: expr.FieldRef{Path: "len"}}},
		}},
	}}
	rt := resolveOne(t, defs, "Msg")
	params := ExtractParams(rt)
	if params.Len() != 1 {
		t.Fatalf("got %d params, want 1: %+v", params.Len(), params.Params())
	}
	p := params.Params()[0]
	if p.Name != "len" || !p.Derived {
		t.Fatalf("got %+v, want derived param named len", p)
	}
	if len(params.NonDerived()) != 0 {
		t.Fatalf("NonDerived should be empty since len is a sibling field, got %+v", params.NonDerived())
	}
}

func TestExtractParamsEnumTag(t *testing.T) {
	enumDef := ast.Enum{
		TagExpr: expr.FieldRef{Path: "external.tag"},
		Variants: []ast.EnumVariant{
			{Name: "V1", TagValue: 1, Kind: ast.Primitive{Type: prim.U32}},
			{Name: "V2", TagValue: 2, Kind: ast.Primitive{Type: prim.U64}},
		},
	}
	defs := []*ast.TypeDef{{
		Name: "S",
		Kind: ast.Struct{Fields: []ast.StructField{
			{Name: "e", Kind: enumDef},
		}},
	}}
	rt := resolveOne(t, defs, "S")
	params := ExtractParams(rt)
	if params.Len() == 0 {
		t.Fatal("expected at least one dynamic parameter for the computed tag")
	}
}
