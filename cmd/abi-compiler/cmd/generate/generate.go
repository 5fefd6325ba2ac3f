// Package generate implements the "generate" subcommand: resolve a layout
// document, validate its dependency shape, and emit one Go source file per
// resolved type into an output package.
package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/abi-tools/abi-tools-go/abi/codegen"
	"github.com/abi-tools/abi-tools-go/abi/codegen/golang"
	"github.com/abi-tools/abi-tools-go/abi/depend"
	"github.com/abi-tools/abi-tools-go/internal/abicli"
	"github.com/abi-tools/abi-tools-go/internal/gengo"
	"github.com/abi-tools/abi-tools-go/internal/modpath"
)

// Command is the CLI command for generate.
var Command = &cli.Command{
	Name:  "generate",
	Usage: "generate Go bindings from a resolved layout document",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "out",
			Aliases:  []string{"o"},
			Value:    ".",
			OnlyOnce: true,
			Usage:    "output directory",
		},
		&cli.StringFlag{
			Name:     "package",
			Aliases:  []string{"p"},
			Value:    "",
			OnlyOnce: true,
			Usage:    "Go package path for the generated files, otherwise derived from the nearest go.mod",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "do not write files; print to stdout",
		},
	},
	Action: action,
}

type config struct {
	dryRun  bool
	out     string
	outPerm os.FileMode
	pkgPath string
	path    string
}

func action(ctx context.Context, cmd *cli.Command) error {
	cfg, err := parseFlags(cmd)
	if err != nil {
		return err
	}

	doc, g, diags, err := abicli.Resolve(cfg.path)
	if err != nil {
		return err
	}
	if !diags.OK() {
		fmt.Fprintln(os.Stderr, "resolution errors:")
		abicli.PrintDiagnostics(os.Stderr, diags)
		return diags.Err()
	}

	analysis := depend.Analyze(doc.Types, g)
	if len(analysis.Cycles) > 0 {
		for _, c := range analysis.Cycles {
			fmt.Fprintf(os.Stderr, "circular dependency: %v\n", c.Path)
		}
		return fmt.Errorf("generation aborted: circular dependencies")
	}
	if len(analysis.LayoutViolations) > 0 {
		for _, v := range analysis.LayoutViolations {
			fmt.Fprintf(os.Stderr, "  - %v\n", v)
		}
		return fmt.Errorf("generation aborted: layout constraint violations")
	}

	outputs, err := codegen.Generate(ctx, g, analysis.TopoOrder, golang.Backend{})
	if err != nil {
		return err
	}

	return writePackage(outputs, cfg)
}

func parseFlags(cmd *cli.Command) (*config, error) {
	out := cmd.String("out")
	info, err := os.Stat(out)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", out)
	}

	pkgPath := cmd.String("package")
	if pkgPath == "" {
		pkgPath, err = modpath.PackagePath(out)
		if err != nil {
			return nil, err
		}
	}

	path, err := abicli.LoadPath(cmd.Args().Slice()...)
	if err != nil {
		return nil, err
	}

	return &config{
		dryRun:  cmd.Bool("dry-run"),
		out:     out,
		outPerm: info.Mode().Perm(),
		pkgPath: pkgPath,
		path:    path,
	}, nil
}

func writePackage(outputs []codegen.Output, cfg *config) error {
	pkg := gengo.NewPackage(cfg.pkgPath)

	for _, o := range outputs {
		f := pkg.File(fileNameFor(o.TypeName))
		f.GeneratedBy = "abi-compiler"
		f.Import("github.com/abi-tools/abi-tools-go/wire")
		f.Write([]byte(o.Source))
	}

	names := make([]string, 0, len(pkg.Files))
	for name := range pkg.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		file := pkg.Files[name]
		if !file.HasContent() {
			continue
		}

		content, err := file.Bytes()
		if err != nil {
			if content == nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "error formatting file: %v\n", err)
		}

		if cfg.dryRun {
			fmt.Printf("// -- %s --\n", name)
			fmt.Println(string(content))
			continue
		}

		path := filepath.Join(cfg.out, name)
		if err := os.WriteFile(path, content, cfg.outPerm); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "generated %s\n", path)
	}

	return nil
}

func fileNameFor(typeName string) string {
	return fmt.Sprintf("%s.abi.go", toSnakeCase(typeName))
}

func toSnakeCase(name string) string {
	out := make([]byte, 0, len(name)+4)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
