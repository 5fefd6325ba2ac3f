package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/urfave/cli/v3"

	"github.com/abi-tools/abi-tools-go/cmd/abi-compiler/cmd/describe"
	"github.com/abi-tools/abi-tools-go/cmd/abi-compiler/cmd/generate"
	"github.com/abi-tools/abi-tools-go/cmd/abi-compiler/cmd/validate"
)

var version = ""

func init() {
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = build.Main.Version
	if version == "" {
		for _, s := range build.Settings {
			if s.Key == "vcs.revision" {
				version = s.Value
			}
		}
	}
	if version == "" {
		version = "(none)"
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "abi-compiler",
		Usage: "resolve, validate, and generate Go bindings from binary layout definitions",
		Commands: []*cli.Command{
			generate.Command,
			describe.Command,
			validate.Command,
		},
		Version: version,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
