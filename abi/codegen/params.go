package codegen

import (
	"fmt"

	"github.com/abi-tools/abi-tools-go/abi"
	"github.com/abi-tools/abi-tools-go/abi/expr"
	"github.com/abi-tools/abi-tools-go/abi/ir"
	"github.com/abi-tools/abi-tools-go/abi/prim"
)

// ExtractParams computes the dynamic parameters rt's footprint/validate/
// build surface needs: every external field-ref binding surfacing from
// rt's own size analysis, a "<field>.tag" parameter for each enum-bearing
// field whose tag is computed rather than literal, and a
// "<field>.payload_size" parameter for each size-discriminated-union
// field. A binding is flagged Derived when it names a direct sibling
// primitive field of a top-level struct, since the builder can read that field's value
// back out of the buffer/partial write rather than asking the caller.
func ExtractParams(rt *abi.ResolvedType) *ir.ParamList {
	params := ir.NewParamList()

	siblingPrimitives := map[string]bool{}
	if st, ok := rt.Kind.(abi.RStruct); ok {
		for _, f := range st.Fields {
			if _, ok := f.Kind.(abi.RPrimitive); ok {
				siblingPrimitives[f.Name] = true
			}
		}
	}

	addBindings := func(bindings map[expr.Path]prim.Type) {
		for path, t := range bindings {
			params.Add(ir.Param{
				Name:    string(path),
				Path:    path,
				Type:    toIRPrimitive(t),
				Derived: siblingPrimitives[string(path)],
			})
		}
	}

	if !rt.Size.IsConst() {
		addBindings(rt.Size.Bindings())
	}

	walkParamSources(rt.Kind, "", params, addBindings)
	return params
}

// walkParamSources recurses through a resolved kind collecting
// enum-tag and size-discriminated-union payload-size parameters, and the
// external bindings of any nested variable-size field.
func walkParamSources(k abi.ResolvedTypeKind, prefix string, params *ir.ParamList, addBindings func(map[expr.Path]prim.Type)) {
	switch n := k.(type) {
	case abi.RStruct:
		for _, f := range n.Fields {
			if f.Kind == nil {
				continue
			}
			fieldPath := f.Name
			if prefix != "" {
				fieldPath = prefix + "." + f.Name
			}
			if !f.Kind.Size().IsConst() {
				addBindings(f.Kind.Size().Bindings())
			}
			walkParamSources(f.Kind, fieldPath, params, addBindings)
		}
	case abi.REnum:
		if !n.TagExpr.Status.Constant {
			name := prefix + ".tag"
			if prefix == "" {
				name = "tag"
			}
			params.Add(ir.Param{Name: name, Path: expr.Path(name), Type: ir.U64, Derived: false})
		}
	case abi.RSizeDiscriminatedUnion:
		name := prefix + ".payload_size"
		if prefix == "" {
			name = "payload_size"
		}
		params.Add(ir.Param{Name: name, Path: expr.Path(name), Type: ir.U64, Derived: false})
	case abi.RArray:
		walkParamSources(n.Element, prefix, params, addBindings)
	case abi.RUnion:
		for _, v := range n.Variants {
			walkParamSources(v.Kind, prefix, params, addBindings)
		}
	}
}

func toIRPrimitive(t prim.Type) ir.Primitive {
	switch t.Size() {
	case 1:
		return ir.U8
	case 2:
		return ir.U16
	case 4:
		return ir.U32
	default:
		return ir.U64
	}
}

// describePlan returns a short, human-readable label for diagnostics and
// doc comments, e.g. "ConstStruct(Point)".
func describePlan(p Plan) string {
	name := "<anonymous>"
	if p.Type != nil {
		name = p.Type.Name
	}
	return fmt.Sprintf("%s(%s)", p.Kind, name)
}
