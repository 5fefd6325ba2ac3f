// Package describe implements the "describe" subcommand: a human-readable
// summary of a resolved layout document, one line per type followed by one
// line per dynamic parameter.
package describe

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/abi-tools/abi-tools-go/abi/codegen"
	"github.com/abi-tools/abi-tools-go/abi/depend"
	"github.com/abi-tools/abi-tools-go/internal/abicli"
)

// Command is the CLI command for describe.
var Command = &cli.Command{
	Name:      "describe",
	Usage:     "print each resolved type's size, selected builder plan, and dynamic parameters",
	ArgsUsage: "[path]",
	Action:    action,
}

func action(ctx context.Context, cmd *cli.Command) error {
	path, err := abicli.LoadPath(cmd.Args().Slice()...)
	if err != nil {
		return err
	}

	doc, g, diags, err := abicli.Resolve(path)
	if err != nil {
		return err
	}
	if !diags.OK() {
		fmt.Fprintln(os.Stderr, "resolution errors:")
		abicli.PrintDiagnostics(os.Stderr, diags)
		return diags.Err()
	}

	analysis := depend.Analyze(doc.Types, g)
	order := analysis.TopoOrder
	if order == nil {
		order = make([]string, len(doc.Types))
		for i, t := range doc.Types {
			order[i] = t.Name
		}
	}

	for _, name := range order {
		rt := g.Lookup(name)
		if rt == nil {
			continue
		}
		plan := codegen.SelectPlan(rt)
		params := codegen.ExtractParams(rt)

		size := "variable"
		if rt.Size.IsConst() {
			size = fmt.Sprintf("%d bytes", rt.Size.Bytes())
		}
		fmt.Printf("%s: %s, align=%d, plan=%s\n", rt.Name, size, rt.Alignment, plan.Kind)
		for _, p := range params.Params() {
			derived := ""
			if p.Derived {
				derived = " (derived)"
			}
			fmt.Printf("  param %s: %s%s\n", p.Name, p.Type, derived)
		}
	}

	return nil
}
