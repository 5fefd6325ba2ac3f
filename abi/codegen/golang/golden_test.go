package golang

import (
	"context"
	"flag"
	"os"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/abi-tools/abi-tools-go/abi"
	"github.com/abi-tools/abi-tools-go/abi/ast"
	"github.com/abi-tools/abi-tools-go/abi/codegen"
	"github.com/abi-tools/abi-tools-go/abi/expr"
	"github.com/abi-tools/abi-tools-go/abi/prim"
)

var update = flag.Bool("update", false, "update golden files")

func primField(name string, p prim.Type) ast.StructField {
	return ast.StructField{Name: name, Kind: ast.Primitive{Type: p}}
}

func goldenFixtures() map[string][]*ast.TypeDef {
	return map[string][]*ast.TypeDef{
		"point": {{
			Name: "Point",
			Kind: ast.Struct{Fields: []ast.StructField{
				primField("x", prim.U32),
				primField("y", prim.U32),
			}},
		}},
		"msg": {{
			Name: "Msg",
			Kind: ast.Struct{Fields: []ast.StructField{
				primField("len", prim.U16),
				{Name: "payload", Kind: ast.Array{ElementType: ast.Primitive{Type: prim.U8}, SizeExpr: expr.FieldRef{Path: "len"}}},
			}},
		}},
		"bag": {
			{
				Name: "Item",
				Kind: ast.Struct{Fields: []ast.StructField{
					primField("len", prim.U16),
					{Name: "data", Kind: ast.Array{ElementType: ast.Primitive{Type: prim.U8}, SizeExpr: expr.FieldRef{Path: "len"}}},
				}},
			},
			{
				Name: "Bag",
				Kind: ast.Struct{Fields: []ast.StructField{
					primField("count", prim.U8),
					{Name: "items", Kind: ast.Array{ElementType: ast.TypeRef{Name: "Item"}, SizeExpr: expr.FieldRef{Path: "count"}, Jagged: true}},
				}},
			},
		},
	}
}

// TestGoldenFiles generates every fixture's backend output and compares it
// against its checked-in testdata/<name>.golden file, printing a readable
// diff on mismatch.
func TestGoldenFiles(t *testing.T) {
	for name, defs := range goldenFixtures() {
		name, defs := name, defs
		t.Run(name, func(t *testing.T) {
			g, diags := abi.Resolve(defs)
			if !diags.OK() {
				t.Fatalf("resolve errors: %v", diags.Err())
			}

			order := make([]string, len(defs))
			for i, d := range defs {
				order[i] = d.Name
			}

			outputs, err := codegen.Generate(context.Background(), g, order, Backend{})
			if err != nil {
				t.Fatalf("generate: %v", err)
			}

			var got string
			for _, o := range outputs {
				got += o.Source
			}

			compareOrWrite(t, "testdata/"+name+".golden", got)
		})
	}
}

func compareOrWrite(t *testing.T, path, data string) {
	t.Helper()
	if *update {
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		return
	}
	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(want) != data {
		dmp := diffmatchpatch.New()
		dmp.PatchMargin = 3
		diffs := dmp.DiffMain(string(want), data, false)
		t.Errorf("generated output for %s did not match golden value:\n%v", path, dmp.DiffPrettyText(diffs))
	}
}
