//go:build compilecheck

package golang

import (
	"context"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/go/packages"

	"github.com/abi-tools/abi-tools-go/abi"
	"github.com/abi-tools/abi-tools-go/abi/codegen"
	"github.com/abi-tools/abi-tools-go/internal/gengo"
)

// TestGeneratedOutputCompiles type-checks every golden fixture's generated
// source against the wire package via an in-memory overlay, gated behind
// the compilecheck build tag since it shells out to the go command.
func TestGeneratedOutputCompiles(t *testing.T) {
	dir := t.TempDir()

	for name, defs := range goldenFixtures() {
		g, diags := abi.Resolve(defs)
		if !diags.OK() {
			t.Fatalf("%s: resolve errors: %v", name, diags.Err())
		}

		order := make([]string, len(defs))
		for i, d := range defs {
			order[i] = d.Name
		}

		outputs, err := codegen.Generate(context.Background(), g, order, Backend{})
		if err != nil {
			t.Fatalf("%s: generate: %v", name, err)
		}

		pkg := gengo.NewPackage("github.com/abi-tools/abi-tools-go/abi/codegen/golang/testdata/compiled/" + name)
		for _, o := range outputs {
			f := pkg.File(o.TypeName + ".go")
			f.Import("github.com/abi-tools/abi-tools-go/wire")
			f.Write([]byte(o.Source))
		}

		pkgDir := filepath.Join(dir, name)
		if err := os.MkdirAll(pkgDir, 0755); err != nil {
			t.Fatal(err)
		}

		cfg := &packages.Config{
			Mode:    packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles | packages.NeedImports | packages.NeedTypes | packages.NeedTypesInfo,
			Fset:    token.NewFileSet(),
			Dir:     pkgDir,
			Overlay: make(map[string][]byte),
		}

		for _, f := range pkg.Files {
			if !f.HasContent() {
				continue
			}
			content, err := f.Bytes()
			if err != nil {
				t.Fatalf("%s: format %s: %v", name, f.Name, err)
			}
			path := filepath.Join(pkgDir, f.Name)
			cfg.Overlay[path] = content
			if err := os.WriteFile(path, content, 0644); err != nil {
				t.Fatal(err)
			}
		}

		pkgs, err := packages.Load(cfg, ".")
		if err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		for _, p := range pkgs {
			for _, e := range p.Errors {
				t.Errorf("%s: %v", name, e)
			}
		}
	}
}
