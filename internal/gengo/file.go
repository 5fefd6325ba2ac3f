package gengo

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strings"
)

// File is one generated Go source file within a [Package].
type File struct {
	Package *Package

	// Name is the file's base name, e.g. "point.abi.go".
	Name string

	// GeneratedBy, when set, is recorded as a "Code generated by ... DO NOT
	// EDIT." header comment.
	GeneratedBy string

	// GoBuild, when set, emits a "//go:build <expr>" constraint line.
	GoBuild string

	// PackageDocs, when set on at least one file in the package, becomes
	// that file's package-level doc comment.
	PackageDocs string

	// Header and Trailer are raw text inserted immediately before and
	// after Content, outside of the generated-by/build-tag/package
	// boilerplate.
	Header, Trailer string

	// Imports maps an import path to its local name ("" for the default
	// name, "_" for a blank import).
	Imports map[string]string

	// Content is the file's declaration body, already valid Go source
	// (sans package clause and import block, which Bytes assembles).
	Content []byte
}

// IsGo reports whether f's name has a .go extension.
func (f *File) IsGo() bool {
	return strings.HasSuffix(f.Name, ".go")
}

// HasContent reports whether f would produce a non-empty file: declaration
// content, a package doc comment, a header/trailer, or any non-blank
// import.
func (f *File) HasContent() bool {
	if len(f.Content) > 0 || f.PackageDocs != "" || f.Header != "" || f.Trailer != "" {
		return true
	}
	for _, name := range f.Imports {
		if name != "_" {
			return true
		}
	}
	return false
}

// Import records path as imported by f and returns the identifier used to
// reference it, resolving collisions against f's own import set.
func (f *File) Import(path string) string {
	_, name := ParseSelector(path)
	if existing, ok := f.Imports[path]; ok {
		if existing != "" {
			return existing
		}
		return name
	}
	unique := UniqueName(name, HasKey(f.importNames()), IsReserved)
	if unique == name {
		f.Imports[path] = ""
		return name
	}
	f.Imports[path] = unique
	return unique
}

func (f *File) importNames() map[string]bool {
	names := make(map[string]bool, len(f.Imports))
	for path, name := range f.Imports {
		if name == "" {
			_, short := ParseSelector(path)
			names[short] = true
		} else {
			names[name] = true
		}
	}
	return names
}

// Write appends raw source text to f's content.
func (f *File) Write(p []byte) (int, error) {
	f.Content = append(f.Content, p...)
	return len(p), nil
}

// Printf appends a formatted string to f's content.
func (f *File) Printf(format string, args ...any) {
	fmt.Fprintf(f, format, args...)
}

// Bytes assembles f's full source text -- generated-by comment, build tag,
// package clause, import block, header, content, trailer -- and runs it
// through gofmt.
func (f *File) Bytes() ([]byte, error) {
	var b bytes.Buffer
	if f.GeneratedBy != "" {
		fmt.Fprintf(&b, "// Code generated by %s. DO NOT EDIT.\n\n", f.GeneratedBy)
	}
	if f.GoBuild != "" {
		fmt.Fprintf(&b, "//go:build %s\n\n", f.GoBuild)
	}
	if f.PackageDocs != "" {
		b.WriteString(FormatDocComments(f.PackageDocs, false))
	}
	fmt.Fprintf(&b, "package %s\n\n", f.Package.Name)

	if len(f.Imports) > 0 {
		paths := make([]string, 0, len(f.Imports))
		for path := range f.Imports {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		b.WriteString("import (\n")
		for _, path := range paths {
			name := f.Imports[path]
			switch name {
			case "":
				fmt.Fprintf(&b, "\t%q\n", path)
			default:
				fmt.Fprintf(&b, "\t%s %q\n", name, path)
			}
		}
		b.WriteString(")\n\n")
	}

	if f.Header != "" {
		b.WriteString(f.Header)
	}
	b.Write(f.Content)
	if f.Trailer != "" {
		b.WriteString(f.Trailer)
	}

	return format.Source(b.Bytes())
}
