package wire

import (
	"fmt"
	"sync"
)

// Registry is a process-wide, insert-only table mapping a generated type's
// name to its footprint/validate pair. Generated files register themselves
// in their init() function; a nested view that only knows a TypeRef's name
// looks the referenced type up here rather than importing it directly,
// avoiding import cycles between mutually referencing packages.
//
// Registry is safe for concurrent registration and lookup: registration
// happens once per type during package init, lookups may happen from any
// number of goroutines building or validating independent views.
type Registry struct {
	entries sync.Map // string -> Entry
}

// global is the default registry every generated init() populates, mirroring
// how the teacher's own generated bindings register into a single
// process-wide table rather than threading an explicit registry handle
// through every constructor.
var global = &Registry{}

// Global returns the process-wide registry generated init() functions
// register into.
func Global() *Registry { return global }

// Register records name's footprint/validate pair. It panics if name is
// already registered: every generated type name is unique within a
// compilation run, so a collision means two packages were compiled for the
// same type, which is a build-time bug, not a runtime condition to recover
// from.
func (r *Registry) Register(name string, entry Entry) {
	if _, dup := r.entries.LoadOrStore(name, entry); dup {
		panic(fmt.Sprintf("wire: type %q already registered", name))
	}
}

// Lookup returns the registered entry for name, or (Entry{}, false) if no
// type by that name has registered itself yet.
func (r *Registry) Lookup(name string) (Entry, bool) {
	v, ok := r.entries.Load(name)
	if !ok {
		return Entry{}, false
	}
	return v.(Entry), true
}
