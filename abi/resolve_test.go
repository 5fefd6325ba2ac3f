package abi

import (
	"testing"

	"github.com/abi-tools/abi-tools-go/abi/aerr"
	"github.com/abi-tools/abi-tools-go/abi/ast"
	"github.com/abi-tools/abi-tools-go/abi/expr"
	"github.com/abi-tools/abi-tools-go/abi/prim"
)

func mustResolve(t *testing.T, defs []*ast.TypeDef) *Graph {
	t.Helper()
	g, diags := Resolve(defs)
	if !diags.OK() {
		t.Fatalf("unexpected errors: %v", diags.Err())
	}
	return g
}

func primField(name string, p prim.Type) ast.StructField {
	return ast.StructField{Name: name, Kind: ast.Primitive{Type: p}}
}

func TestResolvePoint(t *testing.T) {
	defs := []*ast.TypeDef{{
		Name: "Point",
		Kind: ast.Struct{Fields: []ast.StructField{
			primField("x", prim.U32),
			primField("y", prim.U32),
		}},
	}}
	g := mustResolve(t, defs)
	rt := g.Lookup("Point")
	if !rt.Size.IsConst() || rt.Size.Bytes() != 8 {
		t.Fatalf("got size %+v, want const 8", rt.Size)
	}
	if rt.Alignment != 4 {
		t.Fatalf("got alignment %d, want 4", rt.Alignment)
	}
	st := rt.Kind.(RStruct)
	if *st.Fields[0].Offset != 0 || *st.Fields[1].Offset != 4 {
		t.Fatalf("unexpected offsets: %d, %d", *st.Fields[0].Offset, *st.Fields[1].Offset)
	}
}

func TestResolvePacked(t *testing.T) {
	defs := []*ast.TypeDef{{
		Name: "Packed",
		Kind: ast.Struct{
			Fields: []ast.StructField{
				primField("a", prim.U8),
				primField("b", prim.U32),
			},
			Attrs: ast.ContainerAttributes{Packed: true},
		},
	}}
	g := mustResolve(t, defs)
	rt := g.Lookup("Packed")
	if !rt.Size.IsConst() || rt.Size.Bytes() != 5 {
		t.Fatalf("got size %+v, want const 5", rt.Size)
	}
	st := rt.Kind.(RStruct)
	if *st.Fields[0].Offset != 0 || *st.Fields[1].Offset != 1 {
		t.Fatalf("unexpected offsets: %d, %d", *st.Fields[0].Offset, *st.Fields[1].Offset)
	}
}

func TestResolveLengthPrefixedMessage(t *testing.T) {
	defs := []*ast.TypeDef{{
		Name: "Msg",
		Kind: ast.Struct{Fields: []ast.StructField{
			primField("len", prim.U16),
			{Name: "payload", Kind: ast.Array{
				ElementType: ast.Primitive{Type: prim.U8},
				SizeExpr:    expr.FieldRef{Path: "len"},
			}},
		}},
	}}
	g := mustResolve(t, defs)
	rt := g.Lookup("Msg")
	if rt.Size.IsConst() {
		t.Fatalf("expected variable size, got %+v", rt.Size)
	}
	st := rt.Kind.(RStruct)
	if *st.Fields[0].Offset != 0 {
		t.Fatalf("len offset = %d, want 0", *st.Fields[0].Offset)
	}
	if st.Fields[1].Offset == nil || *st.Fields[1].Offset != 2 {
		t.Fatalf("payload offset should be known constant 2")
	}
	arr := st.Fields[1].Kind.(RArray)
	if arr.SizeExpr.Status.Constant {
		t.Fatal("expected payload size_expr to be non-constant")
	}
	if typ, ok := arr.size.bindings["len"]; !ok || typ != prim.U16 {
		t.Fatalf("expected len binding typed as u16, got %+v", arr.size.bindings)
	}
}

func TestResolveEqualSizeEnumIsConstant(t *testing.T) {
	enumDef := ast.Enum{
		TagExpr: expr.FieldRef{Path: "t"},
		Variants: []ast.EnumVariant{
			{Name: "V1", TagValue: 1, Kind: ast.Primitive{Type: prim.U32}},
			{Name: "V2", TagValue: 2, Kind: ast.Primitive{Type: prim.U32}},
		},
	}
	defs := []*ast.TypeDef{{
		Name: "S",
		Kind: ast.Struct{Fields: []ast.StructField{
			primField("t", prim.U8),
			{Name: "e", Kind: enumDef},
		}},
	}}
	g := mustResolve(t, defs)
	rt := g.Lookup("S")
	if !rt.Size.IsConst() || rt.Size.Bytes() != 5 {
		t.Fatalf("got size %+v, want const 5", rt.Size)
	}
}

func TestResolveSizeDiscriminatedUnion(t *testing.T) {
	defs := []*ast.TypeDef{{
		Name: "Acct",
		Kind: ast.SizeDiscriminatedUnion{Variants: []ast.SizeDiscriminatedVariant{
			{Name: "Small", ExpectedSize: 82, Kind: ast.Array{ElementType: ast.Primitive{Type: prim.U8}, SizeExpr: expr.Literal{Value: 82}}},
			{Name: "Large", ExpectedSize: 165, Kind: ast.Array{ElementType: ast.Primitive{Type: prim.U8}, SizeExpr: expr.Literal{Value: 165}}},
		}},
	}}
	g := mustResolve(t, defs)
	rt := g.Lookup("Acct")
	if rt.Size.IsConst() {
		t.Fatal("size-discriminated union must have variable size")
	}
	if len(rt.Size.Bindings()) != 0 {
		t.Fatalf("expected empty bindings, got %+v", rt.Size.Bindings())
	}
}

func TestResolveSizeDiscriminatedUnionTooFewVariants(t *testing.T) {
	defs := []*ast.TypeDef{{
		Name: "Acct",
		Kind: ast.SizeDiscriminatedUnion{Variants: []ast.SizeDiscriminatedVariant{
			{Name: "Small", ExpectedSize: 82, Kind: ast.Primitive{Type: prim.U8}},
		}},
	}}
	_, diags := Resolve(defs)
	if diags.OK() {
		t.Fatal("expected InsufficientVariants error")
	}
}

func TestResolveCircularDependency(t *testing.T) {
	defs := []*ast.TypeDef{
		{Name: "A", Kind: ast.Struct{Fields: []ast.StructField{{Name: "b", Kind: ast.TypeRef{Name: "B"}}}}},
		{Name: "B", Kind: ast.Struct{Fields: []ast.StructField{{Name: "a", Kind: ast.TypeRef{Name: "A"}}}}},
	}
	_, diags := Resolve(defs)
	if diags.OK() {
		t.Fatal("expected circular dependency error")
	}
	found := false
	for _, e := range diags.Errors() {
		if _, ok := e.(*aerr.CircularDependencyError); ok {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a CircularDependencyError among %v", diags.Errors())
	}
}

func TestResolveDuplicateTypeName(t *testing.T) {
	defs := []*ast.TypeDef{
		{Name: "Foo", Kind: ast.Primitive{Type: prim.U8}},
		{Name: "Foo", Kind: ast.Primitive{Type: prim.U16}},
	}
	_, diags := Resolve(defs)
	if diags.OK() {
		t.Fatal("expected DuplicateTypeName error")
	}
}

func TestResolveDuplicateTagValue(t *testing.T) {
	defs := []*ast.TypeDef{{
		Name: "E",
		Kind: ast.Enum{
			TagExpr: expr.Literal{Value: 1},
			Variants: []ast.EnumVariant{
				{Name: "V1", TagValue: 1, Kind: ast.Primitive{Type: prim.U8}},
				{Name: "V2", TagValue: 1, Kind: ast.Primitive{Type: prim.U8}},
			},
		},
	}}
	_, diags := Resolve(defs)
	if diags.OK() {
		t.Fatal("expected DuplicateTagValue error")
	}
}
