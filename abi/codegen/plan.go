// Package codegen implements the language-neutral half of the code
// generator core: the builder-plan dispatch ladder, IR parameter
// extraction, and a driver that fans per-type emission out across a
// bounded worker pool. Per-language stringification lives in a sibling
// backend package (see abi/codegen/golang) behind the [EmitBackend]
// contract.
package codegen

import (
	"github.com/abi-tools/abi-tools-go/abi"
)

// PlanKind is the closed set of builder-construction strategies a
// resolved, struct-shaped type can match. Direct (non-struct) top-level
// types -- a bare enum, union, size-discriminated union, array, or
// primitive declared on its own -- always get [Direct] instead, since the
// six-plan ladder describes struct field shapes.
type PlanKind int

const (
	// ConstStruct: every field has constant offset and constant size.
	ConstStruct PlanKind = iota
	// TailTypeRef: a constant-size prefix followed by one or more
	// variable-size TypeRef tail fields.
	TailTypeRef
	// FAM: a constant-size prefix with one or more trailing flexible
	// arrays whose element count is carried in a prior primitive field.
	FAM
	// SingleEnum: a prefix then a single enum-bearing field.
	SingleEnum
	// MultiEnum: a sequence of (tag-field, enum-field) pairs.
	MultiEnum
	// TaggedEnumStruct is the fallback: a struct with one enum-bearing
	// field that matched none of the more specific shapes above, and also
	// any variable-size struct with no enum field that matched no other
	// plan.
	TaggedEnumStruct
	// Direct wraps a non-struct top-level resolved type (enum, union,
	// size-discriminated union, array, typeref, or primitive) declared by
	// itself rather than as a struct field.
	Direct
)

func (k PlanKind) String() string {
	switch k {
	case ConstStruct:
		return "ConstStruct"
	case TailTypeRef:
		return "TailTypeRef"
	case FAM:
		return "FAM"
	case SingleEnum:
		return "SingleEnum"
	case MultiEnum:
		return "MultiEnum"
	case TaggedEnumStruct:
		return "TaggedEnumStruct"
	case Direct:
		return "Direct"
	default:
		return "Unknown"
	}
}

// Plan is the selected construction strategy for one resolved type, plus
// enough of the field shape for an emitter to stringify it without
// re-deriving the dispatch decision.
type Plan struct {
	Kind PlanKind
	Type *abi.ResolvedType

	// Struct is the resolved struct shape this plan was selected from; nil
	// for a Direct plan over a non-struct type.
	Struct *abi.RStruct

	// PrefixFields are the leading constant-offset fields every
	// struct-shaped plan but ConstStruct splits off from its variable
	// tail.
	PrefixFields []abi.RField

	// TailFields are the remaining fields after PrefixFields: TypeRef
	// tails for TailTypeRef, flexible arrays for FAM, enum fields for
	// SingleEnum/MultiEnum/TaggedEnumStruct.
	TailFields []abi.RField
}

// SelectPlan runs the builder-plan dispatch ladder over rt, returning the
// first matching plan. The ladder only discriminates struct field shapes;
// any other resolved kind always gets [Direct].
func SelectPlan(rt *abi.ResolvedType) Plan {
	st, ok := rt.Kind.(abi.RStruct)
	if !ok {
		return Plan{Kind: Direct, Type: rt}
	}

	if rt.Size.IsConst() {
		return Plan{Kind: ConstStruct, Type: rt, Struct: &st, PrefixFields: st.Fields}
	}

	splitAt := firstVariableIndex(st.Fields)
	prefix := st.Fields[:splitAt]
	tail := st.Fields[splitAt:]

	if allMatch(tail, isTypeRef) {
		return Plan{Kind: TailTypeRef, Type: rt, Struct: &st, PrefixFields: prefix, TailFields: tail}
	}
	if allMatch(tail, isArray) {
		return Plan{Kind: FAM, Type: rt, Struct: &st, PrefixFields: prefix, TailFields: tail}
	}

	enumCount := countMatching(st.Fields, isEnum)
	switch {
	case enumCount == 1 && allMatch(tail, isEnum):
		return Plan{Kind: SingleEnum, Type: rt, Struct: &st, PrefixFields: prefix, TailFields: tail}
	case enumCount >= 2:
		return Plan{Kind: MultiEnum, Type: rt, Struct: &st, PrefixFields: prefix, TailFields: enumFields(st.Fields)}
	case enumCount == 1:
		return Plan{Kind: TaggedEnumStruct, Type: rt, Struct: &st, PrefixFields: prefix, TailFields: tail}
	default:
		// No plan's shape matches cleanly (e.g. a variable-size array
		// nested behind a non-primitive binding); fall back to treating
		// the whole field list as an opaque tail so the emitter can still
		// produce a straight-line, declaration-order view/builder.
		return Plan{Kind: TaggedEnumStruct, Type: rt, Struct: &st, PrefixFields: prefix, TailFields: tail}
	}
}

// firstVariableIndex returns the index of the first field whose kind has a
// non-constant size, or len(fields) if every field is constant-size (which
// only happens when the struct's overall Size is nonetheless variable
// because of, e.g., an enum whose variants differ in size embedded
// without its own forward tag -- still classified non-const upstream).
func firstVariableIndex(fields []abi.RField) int {
	for i, f := range fields {
		if f.Kind == nil {
			continue
		}
		if !f.Kind.Size().IsConst() {
			return i
		}
	}
	return len(fields)
}

func allMatch(fields []abi.RField, pred func(abi.RField) bool) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !pred(f) {
			return false
		}
	}
	return true
}

func countMatching(fields []abi.RField, pred func(abi.RField) bool) int {
	n := 0
	for _, f := range fields {
		if pred(f) {
			n++
		}
	}
	return n
}

func enumFields(fields []abi.RField) []abi.RField {
	var out []abi.RField
	for _, f := range fields {
		if isEnum(f) {
			out = append(out, f)
		}
	}
	return out
}

func isTypeRef(f abi.RField) bool {
	_, ok := f.Kind.(abi.RTypeRef)
	return ok
}

func isArray(f abi.RField) bool {
	_, ok := f.Kind.(abi.RArray)
	return ok
}

func isEnum(f abi.RField) bool {
	_, ok := f.Kind.(abi.REnum)
	return ok
}
