package golang

import (
	"fmt"
	"strings"

	"github.com/abi-tools/abi-tools-go/abi"
	"github.com/abi-tools/abi-tools-go/abi/codegen"
	"github.com/abi-tools/abi-tools-go/abi/ir"
)

// EmitValidator stringifies u's layout walker (shared by Footprint,
// Validate, and the view's own offset cache), the view's
// arrayLength/enumTag/sduVariant/jaggedOffsets helpers, the builder's
// field-writing helper, and the init() registration into wire.Global().
func (Backend) EmitValidator(u codegen.Unit) (string, error) {
	typeName := typeNameOf(u.Plan)
	view := viewName(typeName)
	argType := paramsArgType

	var out strings.Builder

	fmt.Fprintf(&out, "// layout%s walks %s's fields in declaration order, honoring\n", typeName, typeName)
	fmt.Fprintf(&out, "// alignment, and returns each field's offset alongside the total byte\n")
	fmt.Fprintf(&out, "// length consumed. buf may be nil when only the footprint (not a\n")
	fmt.Fprintf(&out, "// concrete buffer) is being computed; a variable-size field that needs\n")
	fmt.Fprintf(&out, "// to read ahead of the cursor in that case falls back to params.\n")
	fmt.Fprintf(&out, "func layout%s(buf []byte, params wire.Params) (offsets map[string]uint64, total uint64, verr *wire.Error) {\n", typeName)
	out.WriteString("\toffsets = map[string]uint64{}\n\tcursor := uint64(0)\n")
	if u.Plan.Struct != nil {
		emitLayoutWalk(&out, typeName, u.Plan.Struct.Fields, u.Plan.Struct.Attrs.Packed)
	}
	out.WriteString("\treturn offsets, cursor, nil\n}\n\n")

	fmt.Fprintf(&out, "// Footprint%s returns the exact byte length a valid %s occupies\n", typeName, typeName)
	fmt.Fprintf(&out, "// given params.\n")
	fmt.Fprintf(&out, "func Footprint%s(params %s) (uint64, error) {\n", typeName, argType)
	fmt.Fprintf(&out, "\t_, total, verr := layout%s(nil, params)\n", typeName)
	out.WriteString("\tif verr != nil {\n\t\treturn 0, verr\n\t}\n\treturn total, nil\n}\n\n")

	fmt.Fprintf(&out, "// Validate%s walks buf's layout deterministically and reports the\n", typeName)
	fmt.Fprintf(&out, "// total bytes consumed, or a structured error on the first field that\n")
	fmt.Fprintf(&out, "// does not fit within buf.\n")
	fmt.Fprintf(&out, "func Validate%s(buf []byte, params %s) wire.Result {\n", typeName, argType)
	fmt.Fprintf(&out, "\t_, total, verr := layout%s(buf, params)\n", typeName)
	out.WriteString("\tif verr != nil {\n\t\treturn wire.Result{OK: false, Err: verr}\n\t}\n")
	out.WriteString("\tif total > uint64(len(buf)) {\n")
	fmt.Fprintf(&out, "\t\treturn wire.Result{OK: false, Err: &wire.Error{Code: wire.BufferTooShort, Type: %q}}\n", typeName)
	out.WriteString("\t}\n\treturn wire.Result{OK: true, Consumed: total}\n}\n\n")

	fmt.Fprintf(&out, "func sequentialOffsets%s(buf []byte, params wire.Params) map[string]uint64 {\n", typeName)
	fmt.Fprintf(&out, "\toffsets, _, _ := layout%s(buf, params)\n\treturn offsets\n}\n\n", typeName)

	emitViewHelpers(&out, view)
	emitBuilderHelpers(&out, typeName, u.Plan, u.Params)

	fmt.Fprintf(&out, "func init() {\n")
	fmt.Fprintf(&out, "\twire.Global().Register(%q, wire.Entry{\n", typeName)
	fmt.Fprintf(&out, "\t\tFootprint: func(p wire.Params) (uint64, error) { return Footprint%s(p) },\n", typeName)
	fmt.Fprintf(&out, "\t\tValidate: func(b []byte, p wire.Params) wire.Result { return Validate%s(b, p) },\n", typeName)
	out.WriteString("\t})\n}\n\n")

	return out.String(), nil
}

func emitLayoutWalk(out *strings.Builder, typeName string, fields []abi.RField, packed bool) {
	for _, f := range fields {
		if f.Kind == nil {
			continue
		}
		align := alignOf(f.Kind)
		if packed {
			align = 1
		}
		fmt.Fprintf(out, "\tcursor = wire.Align(cursor, %d)\n", align)
		fmt.Fprintf(out, "\toffsets[%q] = cursor\n", f.Name)
		sizeExpr, note := fieldByteLengthExpr(f, fields)
		if note != "" {
			fmt.Fprintf(out, "\t// %s\n", note)
		}
		fmt.Fprintf(out, "\tif buf != nil && cursor+(%s) > uint64(len(buf)) {\n", sizeExpr)
		fmt.Fprintf(out, "\t\treturn offsets, cursor, &wire.Error{Code: wire.BufferTooShort, Type: %q, Field: %q}\n", typeName, f.Name)
		out.WriteString("\t}\n")
		fmt.Fprintf(out, "\tcursor += %s\n", sizeExpr)
	}
}

// fieldByteLengthExpr returns a Go expression computing f's byte length,
// plus an optional one-line note to surface a scope simplification in the
// generated comment (see DESIGN.md: a variable-size array's byte length is
// resolved here only when its size expression has a single binding, and a
// jagged array of variable-size elements contributes 0).
func fieldByteLengthExpr(f abi.RField, fields []abi.RField) (expr string, note string) {
	sz := f.Kind.Size()
	if sz.IsConst() {
		return fmt.Sprintf("uint64(%d)", sz.Bytes()), ""
	}
	switch k := f.Kind.(type) {
	case abi.RArray:
		elemSize := k.Element.Size()
		if !elemSize.IsConst() {
			return "uint64(0)", "jagged array of variable-size elements: length resolved per-element by the view, not by the footprint walk"
		}
		bindings := sortedBindingNames(k.SizeExpr)
		if len(bindings) == 1 {
			count := fmt.Sprintf("params[%q]", bindings[0])
			for _, s := range fields {
				if p, ok := s.Kind.(abi.RPrimitive); ok && s.Name == bindings[0] {
					// A sibling length field is read back out of a concrete buffer.
					count = fmt.Sprintf("func() uint64 {\n\t\tif buf != nil {\n\t\t\treturn uint64(%s(buf, offsets[%q]))\n\t\t}\n\t\treturn params[%q]\n\t}()", wireGetterFor(p), s.Name, s.Name)
				}
			}
			return fmt.Sprintf("%s*uint64(%d)", count, elemSize.Bytes()), ""
		}
		return "uint64(0)", "array length does not resolve to a single external binding"
	case abi.REnum:
		return enumVariantSizeSwitch(f.Name, k), ""
	case abi.RSizeDiscriminatedUnion:
		return fmt.Sprintf("params[%q]", f.Name+".payload_size"), ""
	default:
		return "uint64(0)", "unresolved variable-size field shape"
	}
}

// enumVariantSizeSwitch returns an inline expression selecting a
// heterogeneous-size enum field's byte length by its already-validated tag
// parameter: variants necessarily have distinct constant sizes here (an
// equal-size enum resolves to a constant overall size and never reaches
// this path).
func enumVariantSizeSwitch(fieldName string, k abi.REnum) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func() uint64 {\n\t\tswitch params[%q] {\n", fieldName+".tag")
	for _, variant := range k.Variants {
		fmt.Fprintf(&b, "\t\tcase %d:\n\t\t\treturn %d\n", variant.TagValue, mustConstSize(variant.Kind))
	}
	b.WriteString("\t\tdefault:\n\t\t\treturn 0\n\t\t}\n\t}()")
	return b.String()
}

func sortedBindingNames(re abi.ResolvedExpr) []string {
	names := make([]string, 0, len(re.Status.Bindings))
	for _, p := range re.Status.Bindings {
		names = append(names, string(p))
	}
	return names
}

func emitViewHelpers(out *strings.Builder, view string) {
	fmt.Fprintf(out, "func (v *%s) arrayLength(field string) uint64 {\n", view)
	out.WriteString("\treturn v.lengths[field]\n}\n\n")

	fmt.Fprintf(out, "func (v *%s) enumTag(field string) int64 {\n", view)
	out.WriteString("\treturn v.tags[field]\n}\n\n")

	fmt.Fprintf(out, "func (v *%s) sduVariant(field string) string {\n", view)
	out.WriteString("\treturn v.variants[field]\n}\n\n")

	fmt.Fprintf(out, "// jaggedOffsets walks field's jagged array element by element, looking\n")
	fmt.Fprintf(out, "// up elemType's registered footprint to find each element's length,\n")
	fmt.Fprintf(out, "// and caches the discovered spans so a second traversal is free.\n")
	fmt.Fprintf(out, "func (v *%s) jaggedOffsets(field, elemType string) []wire.Span {\n", view)
	out.WriteString("\tif cached, ok := v.jagged[field]; ok {\n\t\treturn cached\n\t}\n")
	out.WriteString("\tentry, ok := wire.Global().Lookup(elemType)\n")
	out.WriteString("\tif !ok {\n\t\treturn nil\n\t}\n")
	out.WriteString("\tvar spans []wire.Span\n")
	out.WriteString("\tstart := v.offsets[field]\n")
	out.WriteString("\tend := uint64(len(v.buf))\n")
	out.WriteString("\tfor start < end {\n")
	out.WriteString("\t\tn, err := entry.Footprint(nil)\n")
	out.WriteString("\t\tif err != nil || n == 0 {\n\t\t\tbreak\n\t\t}\n")
	out.WriteString("\t\tspans = append(spans, wire.Span{Start: start, End: start + n})\n")
	out.WriteString("\t\tstart += n\n")
	out.WriteString("\t}\n")
	out.WriteString("\tv.jagged[field] = spans\n")
	out.WriteString("\treturn spans\n}\n\n")
}

func emitBuilderHelpers(out *strings.Builder, typeName string, plan codegen.Plan, params *ir.ParamList) {
	builder := builderName(typeName)
	var fields []abi.RField
	if plan.Struct != nil {
		fields = plan.Struct.Fields
	}
	derivedSources := derivedArrayLengthsByParam(fields, params)

	fmt.Fprintf(out, "// writeFields%s lays out every recorded field into a freshly\n", typeName)
	fmt.Fprintf(out, "// allocated buffer sized by Footprint%s.\n", typeName)
	fmt.Fprintf(out, "func (b *%s) writeFields%s() []byte {\n", builder, typeName)
	out.WriteString("\tn, _ := Footprint" + typeName + "(b.derivedParams" + typeName + "())\n")
	out.WriteString("\tbuf := make([]byte, n)\n")
	emitFieldWrites(out, fields, derivedSources, plan.Struct != nil && plan.Struct.Attrs.Packed)
	out.WriteString("\treturn buf\n}\n\n")

	fmt.Fprintf(out, "// derivedParams%s reconstructs the wire.Params a Footprint/Validate\n", typeName)
	fmt.Fprintf(out, "// call needs from whatever the setters recorded: numeric sibling\n")
	fmt.Fprintf(out, "// fields, explicit enum tag selections, the observed length of any\n")
	fmt.Fprintf(out, "// size-discriminated-union payload, and any array-length field the\n")
	fmt.Fprintf(out, "// caller never set directly, recomputed from len() of its array.\n")
	fmt.Fprintf(out, "func (b *%s) derivedParams%s() wire.Params {\n", builder, typeName)
	out.WriteString("\tp := wire.Params{}\n")
	out.WriteString("\tfor k, v := range b.fields {\n")
	out.WriteString("\t\tswitch n := v.(type) {\n")
	out.WriteString("\t\tcase uint8:\n\t\t\tp[k] = uint64(n)\n")
	out.WriteString("\t\tcase uint16:\n\t\t\tp[k] = uint64(n)\n")
	out.WriteString("\t\tcase uint32:\n\t\t\tp[k] = uint64(n)\n")
	out.WriteString("\t\tcase uint64:\n\t\t\tp[k] = n\n")
	out.WriteString("\t\tcase int64:\n\t\t\tp[k] = uint64(n)\n")
	out.WriteString("\t\tcase []byte:\n\t\t\tp[k+\".payload_size\"] = uint64(len(n))\n")
	out.WriteString("\t\t}\n\t}\n")
	for _, d := range derivedArrayLengths(fields, params) {
		arr := d.array.Kind.(abi.RArray)
		fmt.Fprintf(out, "\tif vs, ok := b.fields[%q].([]%s); ok {\n", d.array.Name, goNativeTypeFor(arr.Element))
		fmt.Fprintf(out, "\t\tp[%q] = uint64(len(vs))\n", d.param)
		out.WriteString("\t}\n")
	}
	out.WriteString("\treturn p\n}\n\n")
}

func emitFieldWrites(out *strings.Builder, fields []abi.RField, derivedSources map[string]abi.RField, packed bool) {
	out.WriteString("\tcursor := uint64(0)\n")
	for _, f := range fields {
		if f.Kind == nil {
			continue
		}
		align := alignOf(f.Kind)
		if packed {
			align = 1
		}
		fmt.Fprintf(out, "\tcursor = wire.Align(cursor, %d)\n", align)
		emitFieldWrite(out, f, derivedSources)
	}
}

func emitFieldWrite(out *strings.Builder, f abi.RField, derivedSources map[string]abi.RField) {
	if p, ok := f.Kind.(abi.RPrimitive); ok {
		if arrField, derived := derivedSources[f.Name]; derived {
			arr := arrField.Kind.(abi.RArray)
			fmt.Fprintf(out, "\tif vs, ok := b.fields[%q].([]%s); ok {\n", arrField.Name, goNativeTypeFor(arr.Element))
			fmt.Fprintf(out, "\t\t%s(buf, cursor, %s(len(vs)))\n", wireSetterFor(p), goNativeType(p))
			out.WriteString("\t}\n")
			fmt.Fprintf(out, "\tcursor += %d\n", p.Type.Size())
			return
		}
	}
	switch k := f.Kind.(type) {
	case abi.RPrimitive:
		fmt.Fprintf(out, "\tif v, ok := b.fields[%q].(%s); ok {\n", f.Name, goNativeType(k))
		fmt.Fprintf(out, "\t\t%s(buf, cursor, v)\n", wireSetterFor(k))
		out.WriteString("\t}\n")
		fmt.Fprintf(out, "\tcursor += %d\n", k.Type.Size())

	case abi.RArray:
		elemSize := k.Element.Size()
		fmt.Fprintf(out, "\tif vs, ok := b.fields[%q].([]%s); ok {\n", f.Name, goNativeTypeFor(k.Element))
		out.WriteString("\t\tfor i, e := range vs {\n")
		if p, ok := k.Element.(abi.RPrimitive); ok {
			fmt.Fprintf(out, "\t\t\t%s(buf, cursor+uint64(i)*%d, e)\n", wireSetterFor(p), elemSize.Bytes())
		}
		out.WriteString("\t\t}\n")
		if elemSize.IsConst() {
			fmt.Fprintf(out, "\t\tcursor += uint64(len(vs))*%d\n", elemSize.Bytes())
		}
		out.WriteString("\t}\n")

	case abi.RTypeRef:
		fmt.Fprintf(out, "\tif raw, ok := b.fields[%q].([]byte); ok {\n", f.Name)
		out.WriteString("\t\tcopy(buf[cursor:], raw)\n\t\tcursor += uint64(len(raw))\n\t}\n")

	case abi.REnum:
		fmt.Fprintf(out, "\tswitch v := b.fields[%q].(type) {\n", f.Name)
		seen := map[string]bool{}
		for _, variant := range k.Variants {
			typ := goNativeTypeFor(variant.Kind)
			if seen[typ] {
				continue
			}
			seen[typ] = true
			if p, ok := variant.Kind.(abi.RPrimitive); ok {
				fmt.Fprintf(out, "\tcase %s:\n\t\t%s(buf, cursor, v)\n", typ, wireSetterFor(p))
			}
		}
		out.WriteString("\t}\n")
		if k.Size().IsConst() {
			fmt.Fprintf(out, "\tcursor += %d\n", k.Size().Bytes())
		}

	case abi.RSizeDiscriminatedUnion:
		fmt.Fprintf(out, "\tif raw, ok := b.fields[%q].([]byte); ok {\n", f.Name)
		out.WriteString("\t\tcopy(buf[cursor:], raw)\n\t\tcursor += uint64(len(raw))\n\t}\n")

	case abi.RUnion:
		fmt.Fprintf(out, "\tif raw, ok := b.fields[%q].([]byte); ok {\n", f.Name)
		out.WriteString("\t\tcopy(buf[cursor:], raw)\n")
		if k.Size().IsConst() {
			fmt.Fprintf(out, "\t\tcursor += %d\n", k.Size().Bytes())
		}
		out.WriteString("\t}\n")
	}
}

func wireSetterFor(p abi.RPrimitive) string {
	switch {
	case p.Type.IsFloat():
		switch p.Type.Size() {
		case 2:
			return "wire.PutFloat16"
		case 4:
			return "wire.PutFloat32"
		default:
			return "wire.PutFloat64"
		}
	case p.Type.Size() == 1:
		return "wire.PutUint8"
	case p.Type.IsSigned():
		return fmt.Sprintf("wire.PutInt%d", p.Type.Size()*8)
	default:
		return fmt.Sprintf("wire.PutUint%d", p.Type.Size()*8)
	}
}
