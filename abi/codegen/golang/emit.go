// Package golang is the Go [codegen.EmitBackend]: it stringifies a
// planner-selected [codegen.Plan] into view, builder, validator, and
// parameter-namespace source text, using [gengo] for identifier
// sanitization and doc-comment wrapping the way the rest of this module's
// generated-code conventions expect.
package golang

import (
	"fmt"
	"strings"

	"github.com/abi-tools/abi-tools-go/abi"
	"github.com/abi-tools/abi-tools-go/abi/codegen"
	"github.com/abi-tools/abi-tools-go/abi/ir"
	"github.com/abi-tools/abi-tools-go/internal/gengo"
)

// Backend is the stateless Go emitter. It holds no per-run state; every
// method is a pure function of its [codegen.Unit] argument, matching the
// single-threaded, non-suspending phase contract the rest of the core
// follows.
type Backend struct{}

var _ codegen.EmitBackend = Backend{}

func exportedName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func fieldIdent(name string) string {
	return gengo.UniqueName(exportedName(name), gengo.IsReserved)
}

func viewName(typeName string) string    { return typeName + "View" }
func builderName(typeName string) string { return typeName + "Builder" }
func paramsName(typeName string) string  { return typeName + "Params" }

// EmitParams stringifies u's dynamic-parameter namespace: a struct with one
// field per non-derived parameter the caller must supply to footprint,
// validate, or build.
func (Backend) EmitParams(u codegen.Unit) (string, error) {
	if u.Params.Len() == 0 {
		return "", nil
	}
	typeName := typeNameOf(u.Plan)
	nonDerived := u.Params.NonDerived()
	if len(nonDerived) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// %s holds the dynamic parameters %s needs at validate,\n", paramsName(typeName), typeName)
	fmt.Fprintf(&b, "// footprint, or build time that cannot be recovered from a prior field.\n")
	fmt.Fprintf(&b, "// ToWire packs it into the untyped bag Footprint%s/Validate%s expect.\n", typeName, typeName)
	fmt.Fprintf(&b, "type %s struct {\n", paramsName(typeName))
	for _, p := range nonDerived {
		fmt.Fprintf(&b, "\t%s %s\n", fieldIdent(paramNameToGo(p.Name)), goPrimitiveType(p.Type))
	}
	b.WriteString("}\n\n")

	fmt.Fprintf(&b, "func (p %s) ToWire() wire.Params {\n", paramsName(typeName))
	b.WriteString("\twp := wire.Params{}\n")
	for _, p := range nonDerived {
		fmt.Fprintf(&b, "\twp[%q] = uint64(p.%s)\n", p.Name, fieldIdent(paramNameToGo(p.Name)))
	}
	b.WriteString("\treturn wp\n}\n\n")
	return b.String(), nil
}

func paramNameToGo(name string) string {
	return strings.NewReplacer(".", "_").Replace(name)
}

func goPrimitiveType(p ir.Primitive) string {
	switch p {
	case ir.U8:
		return "uint8"
	case ir.U16:
		return "uint16"
	case ir.U32:
		return "uint32"
	default:
		return "uint64"
	}
}

func typeNameOf(p codegen.Plan) string {
	if p.Type != nil {
		return p.Type.Name
	}
	return "Anonymous"
}

// EmitView stringifies u's read-only view type: a constructor validating
// buffer length, and per-field getters honoring each field's resolved
// offset (computed at construction time by a sequential-layout pass over
// every field).
func (b Backend) EmitView(u codegen.Unit) (string, error) {
	typeName := typeNameOf(u.Plan)
	view := viewName(typeName)

	var out strings.Builder
	fmt.Fprintf(&out, "// %s is a zero-copy, read-only accessor over a %s buffer.\n", view, typeName)
	fmt.Fprintf(&out, "//\n// Selected plan: %s.\n", planDescription(u.Plan))
	fmt.Fprintf(&out, "type %s struct {\n\tbuf      []byte\n\toffsets  map[string]uint64\n\tlengths  map[string]uint64\n\ttags     map[string]int64\n\tvariants map[string]string\n\tjagged   map[string][]wire.Span\n}\n\n", view)

	fmt.Fprintf(&out, "// New%s constructs a %s over buf, validating its length against\n", view, view)
	fmt.Fprintf(&out, "// %s's footprint before exposing any accessor.\n", typeName)
	fmt.Fprintf(&out, "func New%s(buf []byte, params %s) (*%s, error) {\n", view, paramsArgType, view)
	fmt.Fprintf(&out, "\tres := Validate%s(buf, params)\n", typeName)
	out.WriteString("\tif !res.OK {\n\t\treturn nil, res.Err\n\t}\n")
	fmt.Fprintf(&out, "\tv := &%s{\n", view)
	out.WriteString("\t\tbuf:      buf[:res.Consumed],\n")
	fmt.Fprintf(&out, "\t\toffsets:  sequentialOffsets%s(buf, params),\n", typeName)
	out.WriteString("\t\tlengths:  map[string]uint64{},\n")
	out.WriteString("\t\ttags:     map[string]int64{},\n")
	out.WriteString("\t\tvariants: map[string]string{},\n")
	out.WriteString("\t\tjagged:   map[string][]wire.Span{},\n")
	out.WriteString("\t}\n")
	if u.Plan.Struct != nil {
		emitDynamicDerivation(&out, u.Plan.Struct.Fields, u.Params)
	}
	out.WriteString("\treturn v, nil\n}\n\n")

	if u.Plan.Struct != nil {
		emitStructGetters(&out, view, u.Plan.Struct.Fields)
	} else {
		emitDirectGetters(&out, view, typeNameOf(u.Plan), u.Plan.Type)
	}

	return out.String(), nil
}

// emitDynamicDerivation populates the freshly constructed view's
// lengths/tags maps from the bindings ExtractParams recorded: a derived
// array length reads its already-decoded sibling field directly; an
// external array length and every enum tag come from wp, since tag
// parameters are never treated as derivable from a sibling field (see
// abi/codegen.walkParamSources).
func emitDynamicDerivation(out *strings.Builder, fields []abi.RField, params *ir.ParamList) {
	derived := map[string]bool{}
	for _, p := range params.Params() {
		if p.Derived {
			derived[string(p.Path)] = true
		}
	}
	for _, f := range fields {
		switch k := f.Kind.(type) {
		case abi.RArray:
			bindings := sortedBindingNames(k.SizeExpr)
			if len(bindings) != 1 {
				continue
			}
			b := bindings[0]
			if derived[b] {
				fmt.Fprintf(out, "\tv.lengths[%q] = uint64(v.Get%s())\n", f.Name, fieldIdent(b))
			} else {
				fmt.Fprintf(out, "\tv.lengths[%q] = params[%q]\n", f.Name, b)
			}
		case abi.REnum:
			if !k.TagExpr.Status.Constant {
				fmt.Fprintf(out, "\tv.tags[%q] = int64(params[%q])\n", f.Name, f.Name+".tag")
			}
		case abi.RSizeDiscriminatedUnion:
			emitSDUVariantDerivation(out, f.Name, k)
		}
	}
}

// derivedArrayLength pairs a Derived primitive field with the array field
// whose length it records, e.g. {param: "len", array: payload's RField}.
type derivedArrayLength struct {
	param string
	array abi.RField
}

// derivedArrayLengths returns, in fields' declaration order, every Derived
// primitive field that a sibling array field's size expression binds to.
// The builder computes these from the array's length at build time instead
// of asking the caller to supply them, mirroring emitDynamicDerivation's
// view-side derivation.
func derivedArrayLengths(fields []abi.RField, params *ir.ParamList) []derivedArrayLength {
	derived := map[string]bool{}
	for _, p := range params.Params() {
		if p.Derived {
			derived[string(p.Path)] = true
		}
	}
	var out []derivedArrayLength
	for _, f := range fields {
		arr, ok := f.Kind.(abi.RArray)
		if !ok {
			continue
		}
		bindings := sortedBindingNames(arr.SizeExpr)
		if len(bindings) != 1 {
			continue
		}
		if derived[bindings[0]] {
			out = append(out, derivedArrayLength{param: bindings[0], array: f})
		}
	}
	return out
}

// derivedArrayLengthsByParam indexes [derivedArrayLengths] by the derived
// primitive field's name for setter/writer lookups.
func derivedArrayLengthsByParam(fields []abi.RField, params *ir.ParamList) map[string]abi.RField {
	m := map[string]abi.RField{}
	for _, d := range derivedArrayLengths(fields, params) {
		m[d.param] = d.array
	}
	return m
}

// emitSDUVariantDerivation matches the field's remaining buffer length
// against each variant's expected size to recover which variant is
// present.
func emitSDUVariantDerivation(out *strings.Builder, fieldName string, k abi.RSizeDiscriminatedUnion) {
	fmt.Fprintf(out, "\tswitch uint64(len(v.buf)) - v.offsets[%q] {\n", fieldName)
	for _, variant := range k.Variants {
		fmt.Fprintf(out, "\tcase %d:\n\t\tv.variants[%q] = %q\n", variant.ExpectedSize, fieldName, variant.Name)
	}
	out.WriteString("\t}\n")
}

// paramsArgType is the parameter type every Footprint/Validate/New<View>
// signature shares: the untyped wire.Params bag, never the generated
// <Type>Params convenience struct. A caller holding one of those calls its
// ToWire method first. One signature across every entry point is what lets
// a wire.Registry entry forward a caller's wire.Params straight through
// without a reverse, per-type conversion.
const paramsArgType = "wire.Params"

func planDescription(p codegen.Plan) string {
	return fmt.Sprintf("%s(%s)", p.Kind, typeNameOf(p))
}

func emitStructGetters(out *strings.Builder, view string, fields []abi.RField) {
	for _, f := range fields {
		if f.Kind == nil {
			continue
		}
		emitFieldGetter(out, view, f)
	}
}

func emitFieldGetter(out *strings.Builder, view string, f abi.RField) {
	getter := "Get" + fieldIdent(f.Name)
	offExpr := fmt.Sprintf("v.offsets[%q]", f.Name)

	switch k := f.Kind.(type) {
	case abi.RPrimitive:
		fmt.Fprintf(out, "// %s returns the %s field.\n", getter, f.Name)
		fmt.Fprintf(out, "func (v *%s) %s() %s {\n", view, getter, goNativeType(k))
		fmt.Fprintf(out, "\treturn %s(v.buf, %s)\n", wireGetterFor(k), offExpr)
		out.WriteString("}\n\n")

	case abi.RTypeRef:
		fmt.Fprintf(out, "// %s returns a nested view over the %s field.\n", getter, f.Name)
		fmt.Fprintf(out, "func (v *%s) %s() (*%sView, error) {\n", view, getter, k.Name)
		fmt.Fprintf(out, "\toff := %s\n", offExpr)
		fmt.Fprintf(out, "\treturn New%sView(v.buf[off:], nil)\n", k.Name)
		out.WriteString("}\n\n")

	case abi.RArray:
		emitArrayGetters(out, view, f.Name, getter, k)

	case abi.REnum:
		emitEnumGetters(out, view, f.Name, getter, k)

	case abi.RUnion:
		fmt.Fprintf(out, "// %s returns the raw overlay bytes for the %s union; callers\n", getter, f.Name)
		fmt.Fprintf(out, "// reinterpret them via whichever variant accessor applies out of band.\n")
		fmt.Fprintf(out, "func (v *%s) %s() []byte {\n", view, getter)
		fmt.Fprintf(out, "\toff := %s\n\treturn v.buf[off : off+%d]\n", offExpr, mustConstSize(k))
		out.WriteString("}\n\n")

	case abi.RSizeDiscriminatedUnion:
		emitSDUGetter(out, view, f.Name, getter)
	}
}

// alignOf returns k's resolved alignment. ResolvedTypeKind only guarantees
// Size(); every concrete kind also defines Align(), so this type switch is
// the one place that assumption is made explicit.
func alignOf(k abi.ResolvedTypeKind) uint64 {
	switch t := k.(type) {
	case abi.RPrimitive:
		return t.Align()
	case abi.RTypeRef:
		return t.Align()
	case abi.RStruct:
		return t.Align()
	case abi.RUnion:
		return t.Align()
	case abi.REnum:
		return t.Align()
	case abi.RArray:
		return t.Align()
	case abi.RSizeDiscriminatedUnion:
		return t.Align()
	default:
		return 1
	}
}

func mustConstSize(s abi.Sized) uint64 {
	sz := s.Size()
	if sz.IsConst() {
		return sz.Bytes()
	}
	return 0
}

func emitArrayGetters(out *strings.Builder, view, fieldName, getter string, k abi.RArray) {
	if k.Jagged {
		emitJaggedArrayGetter(out, view, fieldName, getter, k)
		return
	}
	elemSize := mustConstSize(k.Element)
	fmt.Fprintf(out, "// %sLength returns the element count of %s.\n", getter, fieldName)
	fmt.Fprintf(out, "func (v *%s) %sLength() uint64 {\n", view, getter)
	fmt.Fprintf(out, "\treturn v.arrayLength(%q)\n", fieldName)
	out.WriteString("}\n\n")

	fmt.Fprintf(out, "// %sAt returns the element of %s at index i.\n", getter, fieldName)
	fmt.Fprintf(out, "func (v *%s) %sAt(i uint64) %s {\n", view, getter, goNativeTypeFor(k.Element))
	fmt.Fprintf(out, "\toff := %s + i*%d\n", fmt.Sprintf("v.offsets[%q]", fieldName), elemSize)
	fmt.Fprintf(out, "\treturn %s(v.buf, off)\n", wireGetterForKind(k.Element))
	out.WriteString("}\n\n")

	fmt.Fprintf(out, "// %s returns every element of %s as a slice.\n", getter, fieldName)
	fmt.Fprintf(out, "func (v *%s) %s() []%s {\n", view, getter, goNativeTypeFor(k.Element))
	fmt.Fprintf(out, "\tn := v.%sLength()\n", getter)
	fmt.Fprintf(out, "\tout := make([]%s, n)\n", goNativeTypeFor(k.Element))
	out.WriteString("\tfor i := range out {\n")
	fmt.Fprintf(out, "\t\tout[i] = v.%sAt(uint64(i))\n", getter)
	out.WriteString("\t}\n\treturn out\n}\n\n")
}

// emitJaggedArrayGetter emits a single Get<Field>Iter accessor for a jagged
// array: one whose elements are not individually constant-size, so their
// boundaries can only be found by walking the buffer element by element.
// Scoped to RTypeRef elements, the only element kind that both varies in
// size and carries a name the wire.Registry can look a footprint up by; any
// other element kind has no named entry to resolve a per-element length
// from, so it falls back to exposing the whole span as one opaque block.
func emitJaggedArrayGetter(out *strings.Builder, view, fieldName, getter string, k abi.RArray) {
	ref, ok := k.Element.(abi.RTypeRef)
	if !ok {
		fmt.Fprintf(out, "// %s returns the raw overlay bytes for the jagged %s array;\n", getter, fieldName)
		fmt.Fprintf(out, "// its element kind carries no registry name to resolve individual\n")
		fmt.Fprintf(out, "// element boundaries from.\n")
		fmt.Fprintf(out, "func (v *%s) %s() []byte {\n", view, getter)
		fmt.Fprintf(out, "\toff := v.offsets[%q]\n\treturn v.buf[off:]\n", fieldName)
		out.WriteString("}\n\n")
		return
	}

	fmt.Fprintf(out, "// %sIter yields each element of the jagged %s array as (index, raw\n", getter, fieldName)
	fmt.Fprintf(out, "// bytes), resolving each element's length from %s's own registered\n", ref.Name)
	fmt.Fprintf(out, "// footprint and caching the discovered offsets after the first full\n")
	fmt.Fprintf(out, "// traversal.\n")
	fmt.Fprintf(out, "func (v *%s) %sIter(yield func(i int, raw []byte) bool) {\n", view, getter)
	fmt.Fprintf(out, "\tfor i, span := range v.jaggedOffsets(%q, %q) {\n", fieldName, ref.Name)
	out.WriteString("\t\tif !yield(i, v.buf[span.Start:span.End]) {\n\t\t\treturn\n\t\t}\n\t}\n")
	out.WriteString("}\n\n")
}

func emitEnumGetters(out *strings.Builder, view, fieldName, getter string, k abi.REnum) {
	fmt.Fprintf(out, "// %sVariant returns the tag value selecting %s's active variant.\n", getter, fieldName)
	fmt.Fprintf(out, "func (v *%s) %sVariant() int64 {\n", view, getter)
	fmt.Fprintf(out, "\treturn v.enumTag(%q)\n", fieldName)
	out.WriteString("}\n\n")

	for _, variant := range k.Variants {
		asName := "As" + fieldIdent(fieldName) + exportedName(variant.Name)
		fmt.Fprintf(out, "// %s returns the %s payload if %s's tag selects it, or (zero, false).\n", asName, variant.Name, fieldName)
		fmt.Fprintf(out, "func (v *%s) %s() (%s, bool) {\n", view, asName, goNativeTypeFor(variant.Kind))
		fmt.Fprintf(out, "\tif v.%sVariant() != %d {\n\t\tvar zero %s\n\t\treturn zero, false\n\t}\n", getter, variant.TagValue, goNativeTypeFor(variant.Kind))
		fmt.Fprintf(out, "\toff := v.offsets[%q]\n", fieldName)
		fmt.Fprintf(out, "\treturn %s(v.buf, off), true\n", wireGetterForKind(variant.Kind))
		out.WriteString("}\n\n")
	}
}

func emitSDUGetter(out *strings.Builder, view, fieldName, getter string) {
	fmt.Fprintf(out, "// %sVariant returns the name of the variant %s's observed payload\n", getter, fieldName)
	fmt.Fprintf(out, "// length selects.\n")
	fmt.Fprintf(out, "func (v *%s) %sVariant() string {\n", view, getter)
	fmt.Fprintf(out, "\treturn v.sduVariant(%q)\n", fieldName)
	out.WriteString("}\n\n")
}

func emitDirectGetters(out *strings.Builder, view, typeName string, rt *abi.ResolvedType) {
	if rt == nil {
		return
	}
	switch k := rt.Kind.(type) {
	case abi.RPrimitive:
		fmt.Fprintf(out, "// GetValue returns %s's single primitive value.\n", typeName)
		fmt.Fprintf(out, "func (v *%s) GetValue() %s {\n\treturn %s(v.buf, 0)\n}\n\n", view, goNativeType(k), wireGetterFor(k))
	case abi.REnum:
		emitEnumGetters(out, view, "value", "GetValue", k)
	case abi.RSizeDiscriminatedUnion:
		emitSDUGetter(out, view, "value", "GetValue")
	case abi.RArray:
		emitArrayGetters(out, view, "value", "GetValue", k)
	default:
		fmt.Fprintf(out, "// Bytes returns %s's raw payload bytes.\n", typeName)
		fmt.Fprintf(out, "func (v *%s) Bytes() []byte {\n\treturn v.buf\n}\n\n", view)
	}
}

func goNativeType(p abi.RPrimitive) string {
	switch {
	case p.Type.IsFloat():
		if p.Type.Size() == 2 || p.Type.Size() == 4 {
			return "float32"
		}
		return "float64"
	case p.Type.Size() == 1 && !p.Type.IsSigned():
		return "uint8"
	case p.Type.IsSigned():
		switch p.Type.Size() {
		case 1:
			return "int8"
		case 2:
			return "int16"
		case 4:
			return "int32"
		default:
			return "int64"
		}
	default:
		switch p.Type.Size() {
		case 2:
			return "uint16"
		case 4:
			return "uint32"
		default:
			return "uint64"
		}
	}
}

func goNativeTypeFor(k abi.ResolvedTypeKind) string {
	switch n := k.(type) {
	case abi.RPrimitive:
		return goNativeType(n)
	default:
		return "[]byte"
	}
}

func wireGetterFor(p abi.RPrimitive) string {
	switch {
	case p.Type.IsFloat():
		switch p.Type.Size() {
		case 2:
			return "wire.GetFloat16"
		case 4:
			return "wire.GetFloat32"
		default:
			return "wire.GetFloat64"
		}
	case p.Type.Size() == 1:
		return "wire.GetUint8"
	case p.Type.IsSigned():
		return fmt.Sprintf("wire.GetInt%d", p.Type.Size()*8)
	default:
		return fmt.Sprintf("wire.GetUint%d", p.Type.Size()*8)
	}
}

// wireGetterForKind picks the wire package accessor for any resolved kind
// that reduces to a primitive read (used by array element and enum variant
// accessors, where the element/payload kind is usually, but not always, a
// bare primitive).
func wireGetterForKind(k abi.ResolvedTypeKind) string {
	p, ok := k.(abi.RPrimitive)
	if !ok {
		return "wire.GetUint64"
	}
	return wireGetterFor(p)
}
