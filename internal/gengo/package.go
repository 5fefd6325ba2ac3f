// Package gengo provides the scaffolding the Go backend uses to assemble
// generated source: a Package of named Files, each collecting its own
// import set and body text, plus the identifier-sanitizing and doc-comment
// helpers every emitted declaration goes through.
package gengo

// Package represents a Go package containing zero or more generated Files.
type Package struct {
	// Path is the Go package path, e.g. "github.com/abi-tools/abi-tools-go/wire".
	Path string

	// Name is the short Go package name, e.g. "wire".
	Name string

	// Files is the set of generated source files in this package, keyed by
	// file name.
	Files map[string]*File

	// Declared tracks package-scoped identifiers already declared across
	// every file, so one type's emission never collides with another's.
	Declared map[string]bool
}

// NewPackage returns a Package for path. The local name may optionally be
// given with a "#name" suffix.
func NewPackage(path string) *Package {
	p := &Package{
		Files:    make(map[string]*File),
		Declared: make(map[string]bool),
	}
	p.Path, p.Name = ParseSelector(path)
	return p
}

// File finds or creates the file named name within pkg.
func (pkg *Package) File(name string) *File {
	if f := pkg.Files[name]; f != nil {
		return f
	}
	f := &File{
		Name:    name,
		Package: pkg,
		Imports: make(map[string]string),
	}
	pkg.Files[name] = f
	return f
}

// UniqueDecl declares name at package scope, suffixing with underscores
// until it no longer collides with a prior declaration or a reserved word.
func (pkg *Package) UniqueDecl(name string) string {
	name = UniqueName(name, HasKey(pkg.Declared), IsReserved)
	pkg.Declared[name] = true
	return name
}
