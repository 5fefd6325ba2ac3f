// Package validate implements the "validate" subcommand: resolve a layout
// document and run the full dependency/layout analysis without generating
// any code, reporting every diagnostic found.
package validate

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/abi-tools/abi-tools-go/abi/depend"
	"github.com/abi-tools/abi-tools-go/internal/abicli"
)

// Command is the CLI command for validate.
var Command = &cli.Command{
	Name:      "validate",
	Usage:     "check a layout document for resolution, cycle, and layout-constraint errors",
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

	failed := !diags.OK()
	if failed {
		fmt.Fprintln(os.Stderr, "resolution errors:")
		abicli.PrintDiagnostics(os.Stderr, diags)
	}

	analysis := depend.Analyze(doc.Types, g)

	for _, c := range analysis.Cycles {
		failed = true
		fmt.Fprintf(os.Stderr, "circular dependency: %v\n", c.Path)
	}
	for _, v := range analysis.LayoutViolations {
		failed = true
		fmt.Fprintf(os.Stderr, "  - %v\n", v)
	}
	for _, v := range analysis.ValidationErrors {
		failed = true
		fmt.Fprintf(os.Stderr, "  - %v\n", v)
	}

	if failed {
		return fmt.Errorf("validation failed")
	}

	fmt.Printf("ok: %d types, no errors\n", len(doc.Types))
	return nil
}
