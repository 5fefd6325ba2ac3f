// Package modpath resolves the Go package path generated code should
// declare itself under, by walking up from an output directory to the
// nearest go.mod and joining its module path with the remaining
// subdirectory.
package modpath

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// PackagePath returns the Go package import path for dir, derived from the
// nearest ancestor go.mod's module directive plus dir's path relative to
// that module root.
func PackagePath(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("modpath: not a directory: %s", dir)
	}

	var modFile string
	var subdirs string
	cur := dir
	for {
		modFile = filepath.Join(cur, "go.mod")
		if fi, err := os.Stat(modFile); err == nil && !fi.IsDir() {
			break
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", errors.New("modpath: unable to locate a go.mod file")
		}
		subdirs = path.Join(filepath.Base(cur), subdirs)
		cur = parent
	}

	data, err := os.ReadFile(modFile)
	if err != nil {
		return "", err
	}
	modPath := modfile.ModulePath(data)
	if modPath == "" {
		return "", fmt.Errorf("modpath: no module path in %s", modFile)
	}
	return path.Join(modPath, subdirs), nil
}
