// Package abicli holds the input-loading and diagnostics-formatting code
// shared by the abi-compiler subcommands.
package abicli

import (
	"fmt"
	"io"
	"os"

	"github.com/abi-tools/abi-tools-go/abi"
	"github.com/abi-tools/abi-tools-go/abi/aerr"
	"github.com/abi-tools/abi-tools-go/abi/ast"
)

// LoadPath resolves the single positional path argument a subcommand
// accepts. An empty list or "-" reads from stdin.
func LoadPath(args ...string) (string, error) {
	switch len(args) {
	case 0:
		return "-", nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("found %d path arguments, expecting 0 or 1", len(args))
	}
}

// ReadDocument reads and decodes the AST document at path ("-" for stdin).
func ReadDocument(path string) (*ast.Document, error) {
	data, err := readAll(path)
	if err != nil {
		return nil, err
	}
	return ast.DecodeJSON(data)
}

func readAll(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// Resolve reads, decodes, and resolves the document at path, returning the
// decoded document and the resolved graph alongside any diagnostics
// gathered along the way.
func Resolve(path string) (*ast.Document, *abi.Graph, *aerr.Diagnostics, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	g, diags := abi.Resolve(doc.Types)
	return doc, g, diags, nil
}

// PrintDiagnostics writes every diagnostic in diags to w, one per line.
func PrintDiagnostics(w io.Writer, diags *aerr.Diagnostics) {
	for _, err := range diags.Errors() {
		fmt.Fprintf(w, "  - %v\n", err)
	}
}
