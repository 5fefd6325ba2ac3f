package golang

import (
	"fmt"
	"strings"

	"github.com/abi-tools/abi-tools-go/abi"
	"github.com/abi-tools/abi-tools-go/abi/codegen"
)

// EmitBuilder stringifies u's builder type. Every plan shares the same
// overall shape -- typed setters mirroring the view's getters, a variant
// selector per enum-bearing field, and a build() that writes prefix and
// tail fields in declaration order before invoking the validator. The plan
// kind only appears in the emitted doc comment; every plan's fields are
// written by the same declaration-order walk.
func (Backend) EmitBuilder(u codegen.Unit) (string, error) {
	typeName := typeNameOf(u.Plan)
	builder := builderName(typeName)

	var out strings.Builder
	fmt.Fprintf(&out, "// %s accumulates field values for a %s and writes them\n", builder, typeName)
	fmt.Fprintf(&out, "// into an owned buffer. Build always validates the result before\n")
	fmt.Fprintf(&out, "// returning it.\n")
	fmt.Fprintf(&out, "//\n// Selected plan: %s.\n", planDescription(u.Plan))
	fmt.Fprintf(&out, "type %s struct {\n\tfields map[string]any\n}\n\n", builder)

	fmt.Fprintf(&out, "// New%s returns an empty builder for %s.\n", builder, typeName)
	fmt.Fprintf(&out, "func New%s() *%s {\n\treturn &%s{fields: make(map[string]any)}\n}\n\n", builder, builder, builder)

	fields := builderFields(u.Plan)
	derivedSources := derivedArrayLengthsByParam(fields, u.Params)
	for _, f := range fields {
		if f.Kind == nil {
			continue
		}
		emitSetter(&out, builder, f, derivedSources)
	}

	emitBuildMethod(&out, builder, typeName, u.Plan)

	return out.String(), nil
}

func builderFields(p codegen.Plan) []abi.RField {
	if p.Struct != nil {
		return p.Struct.Fields
	}
	return nil
}

func emitSetter(out *strings.Builder, builder string, f abi.RField, derivedSources map[string]abi.RField) {
	setter := "Set" + fieldIdent(f.Name)
	switch k := f.Kind.(type) {
	case abi.RPrimitive:
		if arrField, ok := derivedSources[f.Name]; ok {
			fmt.Fprintf(out, "// %s is not settable: %s is derived from len(%s) at build time.\n", setter, f.Name, arrField.Name)
			break
		}
		fmt.Fprintf(out, "// %s records the %s field's value.\n", setter, f.Name)
		fmt.Fprintf(out, "func (b *%s) %s(v %s) *%s {\n", builder, setter, goNativeType(k), builder)
		fmt.Fprintf(out, "\tb.fields[%q] = v\n\treturn b\n}\n\n", f.Name)

	case abi.RArray:
		fmt.Fprintf(out, "// %s records the elements of the %s array. The builder\n", setter, f.Name)
		fmt.Fprintf(out, "// recomputes any length parameter derived from len(v) at build time.\n")
		fmt.Fprintf(out, "func (b *%s) %s(v []%s) *%s {\n", builder, setter, goNativeTypeFor(k.Element), builder)
		fmt.Fprintf(out, "\tb.fields[%q] = v\n\treturn b\n}\n\n", f.Name)

	case abi.RTypeRef:
		fmt.Fprintf(out, "// %s records the raw bytes of the nested %s field.\n", setter, f.Name)
		fmt.Fprintf(out, "func (b *%s) %s(v []byte) *%s {\n\tb.fields[%q] = v\n\treturn b\n}\n\n", builder, setter, builder, f.Name)

	case abi.REnum:
		for _, variant := range k.Variants {
			selName := "Select" + fieldIdent(f.Name) + exportedName(variant.Name)
			fmt.Fprintf(out, "// %s chooses the %s variant for %s and records its payload.\n", selName, variant.Name, f.Name)
			fmt.Fprintf(out, "func (b *%s) %s(v %s) *%s {\n", builder, selName, goNativeTypeFor(variant.Kind), builder)
			fmt.Fprintf(out, "\tb.fields[%q] = v\n\tb.fields[%q] = int64(%d)\n\treturn b\n}\n\n", f.Name, f.Name+".tag", variant.TagValue)
		}

	case abi.RSizeDiscriminatedUnion:
		for _, variant := range k.Variants {
			selName := "Select" + fieldIdent(f.Name) + exportedName(variant.Name)
			fmt.Fprintf(out, "// %s chooses the %s variant (expected size %d bytes) for %s.\n", selName, variant.Name, variant.ExpectedSize, f.Name)
			fmt.Fprintf(out, "func (b *%s) %s(v []byte) *%s {\n\tb.fields[%q] = v\n\treturn b\n}\n\n", builder, selName, builder, f.Name)
		}

	case abi.RUnion:
		fmt.Fprintf(out, "// %s records the raw overlay bytes for the %s union.\n", setter, f.Name)
		fmt.Fprintf(out, "func (b *%s) %s(v []byte) *%s {\n\tb.fields[%q] = v\n\treturn b\n}\n\n", builder, setter, builder, f.Name)
	}
}

func emitBuildMethod(out *strings.Builder, builder, typeName string, plan codegen.Plan) {
	fmt.Fprintf(out, "// Build writes every recorded field into a new buffer in\n")
	fmt.Fprintf(out, "// declaration order, honoring each field's alignment, then validates\n")
	fmt.Fprintf(out, "// the result before returning it.\n")
	fmt.Fprintf(out, "func (b *%s) Build() ([]byte, error) {\n", builder)
	fmt.Fprintf(out, "\tbuf := b.writeFields%s()\n", typeName)
	fmt.Fprintf(out, "\tres := Validate%s(buf, b.derivedParams%s())\n", typeName, typeName)
	out.WriteString("\tif !res.OK {\n\t\treturn nil, res.Err\n\t}\n")
	out.WriteString("\treturn buf[:res.Consumed], nil\n}\n\n")
}
