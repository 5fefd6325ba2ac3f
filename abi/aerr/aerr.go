// Package aerr defines the compile-time error taxonomy shared by the
// resolver and the dependency analyzer, and a [Diagnostics] collector that
// accumulates every error discovered within a phase before the compiler
// aborts, per the propagation rule in the base specification.
package aerr

import (
	"fmt"
	"strings"
)

// DefinitionError covers duplicate names: duplicate type names, duplicate
// field/variant names within a type, duplicate enum tag values, and
// size-discriminated unions with fewer than two variants or with
// non-distinct expected sizes.
type DefinitionError struct {
	Kind  string // "DuplicateTypeName", "DuplicateFieldName", "DuplicateVariantName", "DuplicateTagValue", "InsufficientVariants", "DuplicateExpectedSize"
	Type  string
	Name  string
}

func (e *DefinitionError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: type %q", e.Kind, e.Type)
	}
	return fmt.Sprintf("%s: type %q, name %q", e.Kind, e.Type, e.Name)
}

// CircularDependencyError reports a cycle in the union of type-reference and
// field-reference edges.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Cycle, " -> "))
}

// LayoutConstraintError reports a dependency shape that would require
// knowing a field's size to compute its own offset: a forward reference, or
// a transitive size-dependency cycle.
type LayoutConstraintError struct {
	ViolatingType       string
	ViolatingExpression string
	DependencyChain     []string
	Reason              string
}

func (e *LayoutConstraintError) Error() string {
	return fmt.Sprintf("layout constraint violation in %s (%s): %s [%s]",
		e.ViolatingType, e.ViolatingExpression, e.Reason, strings.Join(e.DependencyChain, " -> "))
}

// ResolutionError covers unresolved type-ref names, division/modulo by
// zero, and sizeof/alignof of a type that never resolves.
type ResolutionError struct {
	Kind string // "UnresolvedName", "DivisionByZero", "SizeofUnresolved"
	Type string
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: in type %q: %q", e.Kind, e.Type, e.Name)
}

// UnsupportedCompositionError covers illegal structural compositions: a
// size-discriminated union nested inside an array/union/enum, an enum with
// heterogeneous variant sizes whose tag depends on a later field, or a
// non-constant element type used as a fixed array element.
type UnsupportedCompositionError struct {
	Type   string
	Reason string
}

func (e *UnsupportedCompositionError) Error() string {
	return fmt.Sprintf("unsupported composition in %q: %s", e.Type, e.Reason)
}

// Diagnostics accumulates every error discovered while running a single
// compiler phase (resolve, analyze, or generate). A phase never aborts on
// its first error; it collects as many as it can and the caller decides
// whether to proceed based on [Diagnostics.OK].
type Diagnostics struct {
	errs []error
}

// Add records err if it is non-nil.
func (d *Diagnostics) Add(err error) {
	if err != nil {
		d.errs = append(d.errs, err)
	}
}

// OK reports whether no errors have been recorded.
func (d *Diagnostics) OK() bool {
	return len(d.errs) == 0
}

// Errors returns every recorded error, in the order they were added.
func (d *Diagnostics) Errors() []error {
	return d.errs
}

// Err returns a single combined error summarizing every recorded error, or
// nil if there are none.
func (d *Diagnostics) Err() error {
	if len(d.errs) == 0 {
		return nil
	}
	lines := make([]string, len(d.errs))
	for i, e := range d.errs {
		lines[i] = e.Error()
	}
	return fmt.Errorf("%d error(s):\n%s", len(d.errs), strings.Join(lines, "\n"))
}
