package gengo

// UniqueName tests name against filters and appends underscores until all
// filters return false. Use [IsReserved] to filter out Go keywords and
// predeclared identifiers.
func UniqueName(name string, filters ...func(string) bool) string {
	filter := func(name string) bool {
		for _, f := range filters {
			if f(name) {
				return true
			}
		}
		return false
	}
	for filter(name) {
		name += "_"
	}
	return name
}

// HasKey returns a function for map m that tests presence of key k.
func HasKey[M ~map[K]V, K comparable, V any](m M) func(k K) bool {
	return func(k K) bool {
		_, ok := m[k]
		return ok
	}
}

// Scope represents a Go name scope: a package, file, or declaration block.
type Scope interface {
	// HasName returns true if this scope or any parent scope contains name.
	HasName(name string) bool

	// UniqueName modifies name if necessary and declares it within this
	// scope, returning the (possibly suffixed) unique name.
	UniqueName(name string) string
}

type scope struct {
	parent Scope
	names  map[string]bool
}

// NewScope returns a [Scope] ready to use. If parent is nil, [Reserved] is
// used as the parent.
func NewScope(parent Scope) Scope {
	if parent == nil {
		parent = Reserved()
	}
	return &scope{parent: parent, names: make(map[string]bool)}
}

func (s *scope) HasName(name string) bool {
	return s.names[name] || s.parent.HasName(name)
}

func (s *scope) UniqueName(name string) string {
	name = UniqueName(name, s.HasName)
	s.names[name] = true
	return name
}

type reservedScope struct{}

// Reserved returns the preset [Scope] of Go keywords and predeclared
// identifiers. Its UniqueName panics; the scope is immutable.
func Reserved() Scope {
	return reservedScope{}
}

func (reservedScope) HasName(name string) bool {
	return IsReserved(name)
}

func (reservedScope) UniqueName(string) string {
	panic("gengo: cannot add a name to the reserved scope")
}

// IsReserved returns true for any Go keyword or predeclared identifier.
func IsReserved(name string) bool {
	return reserved[name]
}

var reserved = mapWords(
	"break", "case", "chan", "const", "continue", "default", "defer", "else",
	"fallthrough", "for", "func", "go", "goto", "if", "import", "interface",
	"map", "package", "range", "return", "select", "struct", "switch", "type", "var",

	"any", "bool", "byte", "comparable", "complex64", "complex128", "error",
	"float32", "float64", "int", "int8", "int16", "int32", "int64", "rune",
	"string", "uint", "uint8", "uint16", "uint32", "uint64", "uintptr",

	"true", "false", "iota", "nil",

	"append", "cap", "clear", "close", "complex", "copy", "delete", "imag",
	"len", "make", "max", "min", "new", "panic", "print", "println", "real", "recover",
)

// Initialisms is a set of common acronyms that Go style writes fully
// upper-cased ("Id" -> "ID"). No name helper in this module consults it;
// generated field and type names only have their first letter upper-cased.
var Initialisms = mapWords(
	"abi", "api", "ascii", "cpu", "crc", "css", "dns", "eof", "fam", "guid",
	"html", "http", "https", "id", "io", "ip", "json", "rpc", "sdu", "sql",
	"ssh", "tcp", "tls", "ttl", "udp", "uid", "uri", "url", "utf8", "xml",
)

func mapWords(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
