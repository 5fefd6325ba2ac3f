package abi

import (
	"fmt"

	"github.com/abi-tools/abi-tools-go/abi/aerr"
	"github.com/abi-tools/abi-tools-go/abi/ast"
	"github.com/abi-tools/abi-tools-go/abi/expr"
	"github.com/abi-tools/abi-tools-go/abi/prim"
)

type color int

const (
	white color = iota
	gray
	black
)

// resolver owns the state of a single compilation run: the AST being
// resolved, the in-progress coloring used to reject type-reference cycles
// before they reach any consumer, and the memoized resolved-type map. None
// of this state outlives [Resolve].
type resolver struct {
	defs  map[string]*ast.TypeDef
	color map[string]color
	graph *Graph
	diags *aerr.Diagnostics
}

// Resolve lowers defs into a [Graph]. It returns the graph built so far
// (which may be partial) alongside a [*aerr.Diagnostics] recording every
// error found; callers should check diags.OK() before trusting the graph,
// since type-reference cycles abort resolution of the types on the cycle.
func Resolve(defs []*ast.TypeDef) (*Graph, *aerr.Diagnostics) {
	r := &resolver{
		defs:  make(map[string]*ast.TypeDef, len(defs)),
		color: make(map[string]color, len(defs)),
		graph: &Graph{byName: make(map[string]*ResolvedType, len(defs))},
		diags: &aerr.Diagnostics{},
	}

	for _, d := range defs {
		if _, dup := r.defs[d.Name]; dup {
			r.diags.Add(&aerr.DefinitionError{Kind: "DuplicateTypeName", Type: d.Name})
			continue
		}
		r.defs[d.Name] = d
	}

	for _, d := range defs {
		if _, ok := r.graph.byName[d.Name]; ok {
			continue // already resolved transitively via a TypeRef
		}
		r.resolveNamed(d.Name)
	}

	return r.graph, r.diags
}

func (r *resolver) resolveNamed(name string) *ResolvedType {
	if rt, ok := r.graph.byName[name]; ok {
		return rt
	}
	switch r.color[name] {
	case gray:
		r.diags.Add(&aerr.CircularDependencyError{Cycle: []string{name, name}})
		return nil
	case black:
		return r.graph.byName[name]
	}
	def, ok := r.defs[name]
	if !ok {
		r.diags.Add(&aerr.ResolutionError{Kind: "UnresolvedName", Type: name, Name: name})
		return nil
	}

	r.color[name] = gray
	kind := r.resolveKind(name, def.Kind, nil)
	r.color[name] = black

	if kind == nil {
		return nil
	}
	rt := &ResolvedType{
		Name:       name,
		Kind:       kind,
		Size:       kind.Size(),
		Alignment:  kind.Align(),
		Comment:    def.Comment,
		Since:      def.Since,
		Deprecated: def.Deprecated,
	}
	r.graph.byName[name] = rt
	r.graph.Types = append(r.graph.Types, rt)
	return rt
}

// scope carries the sibling fields of the innermost enclosing struct, used
// to type field-reference bindings found in a nested Array.SizeExpr or
// Enum.TagExpr. A field-ref that cannot be resolved against scope is typed
// as prim.U64 (treated as an external dynamic parameter bound by path);
// this is the one intentional scoping simplification recorded in DESIGN.md.
type scope struct {
	fields map[string]ResolvedTypeKind
}

func (s *scope) lookup(path expr.Path) (prim.Type, bool) {
	if s == nil {
		return 0, false
	}
	return lookupPath(s.fields, string(path))
}

func lookupPath(fields map[string]ResolvedTypeKind, path string) (prim.Type, bool) {
	head, rest := splitPath(path)
	k, ok := fields[head]
	if !ok {
		return 0, false
	}
	if rest == "" {
		if p, ok := k.(RPrimitive); ok {
			return p.Type, true
		}
		return 0, false
	}
	st, ok := innerStruct(k)
	if !ok {
		return 0, false
	}
	sub := make(map[string]ResolvedTypeKind, len(st.Fields))
	for _, f := range st.Fields {
		sub[f.Name] = f.Kind
	}
	return lookupPath(sub, rest)
}

func innerStruct(k ResolvedTypeKind) (RStruct, bool) {
	st, ok := k.(RStruct)
	return st, ok
}

func splitPath(path string) (head, rest string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
	}
	return path, ""
}

func (r *resolver) resolveExprIn(owner string, e expr.Expr, sc *scope) ResolvedExpr {
	if e == nil {
		return ResolvedExpr{}
	}
	rs := &graphResolvedSize{r: r}
	val, ok, err := expr.Eval(e, rs)
	if err != nil {
		r.diags.Add(fmt.Errorf("%s: %w", owner, err))
	}
	if ok {
		return ResolvedExpr{Expr: e, Status: ConstantStatus{Constant: true, Value: val}}
	}
	paths := expr.FieldRefs(e)
	return ResolvedExpr{Expr: e, Status: ConstantStatus{Constant: false, Bindings: paths}}
}

// bindingsOf converts a ResolvedExpr's raw paths into a typed bindings map
// using sc, falling back to prim.U64 for any path that cannot be typed
// locally (an external dynamic parameter; see [scope]).
func bindingsOf(re ResolvedExpr, sc *scope) map[expr.Path]prim.Type {
	if re.Status.Constant {
		return nil
	}
	out := make(map[expr.Path]prim.Type, len(re.Status.Bindings))
	for _, p := range re.Status.Bindings {
		if t, ok := sc.lookup(p); ok {
			out[p] = t
		} else {
			out[p] = prim.U64
		}
	}
	return out
}

type graphResolvedSize struct{ r *resolver }

func (g *graphResolvedSize) Size(name string) (uint64, bool) {
	if rt := g.r.resolveNamed(name); rt != nil && rt.Size.IsConst() {
		return rt.Size.Bytes(), true
	}
	return 0, false
}

func (g *graphResolvedSize) Align(name string) (uint64, bool) {
	if rt := g.r.resolveNamed(name); rt != nil {
		return rt.Alignment, true
	}
	return 0, false
}

func (r *resolver) resolveKind(owner string, k ast.TypeKind, sc *scope) ResolvedTypeKind {
	switch n := k.(type) {
	case ast.Primitive:
		return RPrimitive{Type: n.Type}

	case ast.TypeRef:
		target := r.resolveNamed(n.Name)
		if target == nil {
			r.diags.Add(&aerr.ResolutionError{Kind: "UnresolvedName", Type: owner, Name: n.Name})
			return nil
		}
		return RTypeRef{Name: n.Name, RefSize: target.Size, RefAlign: target.Alignment}

	case ast.Array:
		elem := r.resolveKind(owner, n.ElementType, sc)
		if elem == nil {
			return nil
		}
		szExpr := r.resolveExprIn(owner, n.SizeExpr, sc)
		attrs := ContainerAttrs{Packed: n.Attrs.Packed, Aligned: n.Attrs.Aligned, Comment: n.Attrs.Comment}
		align := elem.Align()
		if attrs.Aligned > align {
			align = attrs.Aligned
		}
		var size Size
		switch {
		case n.Jagged:
			size = VarSize(bindingsOf(szExpr, sc))
		case szExpr.Status.Constant && elem.Size().IsConst():
			size = ConstSize(uint64(szExpr.Status.Value) * elem.Size().Bytes())
		default:
			merged := bindingsOf(szExpr, sc)
			if !elem.Size().IsConst() {
				merged = mergeBindings(merged, elem.Size().Bindings())
			}
			size = VarSize(merged)
		}
		return RArray{Element: elem, SizeExpr: szExpr, Jagged: n.Jagged, Attrs: attrs, size: size, alignment: align}

	case ast.Struct:
		return r.resolveStruct(owner, n)

	case ast.Union:
		return r.resolveUnion(owner, n, sc)

	case ast.Enum:
		return r.resolveEnum(owner, n, sc)

	case ast.SizeDiscriminatedUnion:
		return r.resolveSDU(owner, n, sc)

	default:
		panic(fmt.Sprintf("abi: unhandled ast.TypeKind %T", k))
	}
}

func mergeBindings(a, b map[expr.Path]prim.Type) map[expr.Path]prim.Type {
	out := make(map[expr.Path]prim.Type, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (r *resolver) resolveStruct(owner string, n ast.Struct) ResolvedTypeKind {
	seen := map[string]bool{}
	fieldKinds := make(map[string]ResolvedTypeKind, len(n.Fields))

	// Pass 1: resolve each field's own kind, without yet knowing sibling
	// types (size/tag expressions nested inside this pass get field-ref
	// paths collected, but typed against sc=nil; they are re-typed in
	// pass 2 against the completed field list, which lets expressions
	// reference fields that appear later in declaration order -- whether
	// such a forward reference is actually *legal* is the dependency
	// analyzer's job, not the resolver's).
	kinds := make([]ResolvedTypeKind, len(n.Fields))
	for i, f := range n.Fields {
		if seen[f.Name] {
			r.diags.Add(&aerr.DefinitionError{Kind: "DuplicateFieldName", Type: owner, Name: f.Name})
			continue
		}
		seen[f.Name] = true
		kinds[i] = r.resolveKind(owner, f.Kind, nil)
		if kinds[i] != nil {
			fieldKinds[f.Name] = kinds[i]
		}
	}

	sc := &scope{fields: fieldKinds}

	// Pass 2: re-resolve any nested size/tag expression against the
	// completed scope so its bindings are typed. Array/Enum fields are
	// the only kinds carrying such expressions.
	for i := range n.Fields {
		kinds[i] = rebindExprs(kinds[i], sc)
	}

	attrs := ContainerAttrs{Packed: n.Attrs.Packed, Aligned: n.Attrs.Aligned, Comment: n.Attrs.Comment}

	var naturalAlign uint64 = 1
	for _, k := range kinds {
		if k == nil {
			continue
		}
		if a := k.Align(); a > naturalAlign {
			naturalAlign = a
		}
	}
	var containerAlign uint64
	if attrs.Packed {
		containerAlign = attrs.Aligned
		if containerAlign < 1 {
			containerAlign = 1
		}
	} else {
		containerAlign = naturalAlign
		if attrs.Aligned > containerAlign {
			containerAlign = attrs.Aligned
		}
	}

	var cursor uint64
	variable := false
	var varBindings map[expr.Path]prim.Type
	fields := make([]RField, 0, len(n.Fields))
	for i, f := range n.Fields {
		k := kinds[i]
		if k == nil {
			fields = append(fields, RField{Name: f.Name})
			continue
		}
		step := k.Align()
		if attrs.Packed {
			step = 1
		}
		if !variable {
			cursor = Align(cursor, step)
		}
		off := cursor
		var offPtr *uint64
		if !variable {
			offPtr = &off
		}
		fields = append(fields, RField{Name: f.Name, Kind: k, Offset: offPtr})

		sz := k.Size()
		if variable {
			if !sz.IsConst() {
				varBindings = mergeBindings(varBindings, sz.Bindings())
			}
			continue
		}
		if sz.IsConst() {
			cursor += sz.Bytes()
		} else {
			variable = true
			varBindings = mergeBindings(varBindings, sz.Bindings())
		}
	}

	var size Size
	if variable {
		size = VarSize(varBindings)
	} else {
		size = ConstSize(Align(cursor, containerAlign))
	}

	return RStruct{Fields: fields, Attrs: attrs, size: size, alignment: containerAlign}
}

// rebindExprs re-types the size/tag expression bindings carried by a
// single field's kind against sc. Only Array and Enum carry such an
// expression directly, and only those two kinds are re-typed (an array's
// merged size bindings include those of a nested array element); any
// other kind, including a nested struct or union, is returned unchanged.
// A nested struct types its own expressions against its own fields at its
// own resolution time; expressions inside a union variant keep the
// prim.U64 typing they received in pass 1.
func rebindExprs(k ResolvedTypeKind, sc *scope) ResolvedTypeKind {
	switch n := k.(type) {
	case RArray:
		n.size = retypeSize(n.size, sc)
		return n
	case REnum:
		n.size = retypeSize(n.size, sc)
		return n
	default:
		return k
	}
}

func retypeSize(s Size, sc *scope) Size {
	if s.IsConst() {
		return s
	}
	out := make(map[expr.Path]prim.Type, len(s.bindings))
	for p := range s.bindings {
		if t, ok := sc.lookup(p); ok {
			out[p] = t
		} else {
			out[p] = prim.U64
		}
	}
	return VarSize(out)
}

func (r *resolver) resolveUnion(owner string, n ast.Union, sc *scope) ResolvedTypeKind {
	seen := map[string]bool{}
	variants := make([]RVariant, 0, len(n.Variants))
	var align uint64 = 1
	allConst := true
	var bindings map[expr.Path]prim.Type
	var maxSize uint64

	for _, v := range n.Variants {
		if seen[v.Name] {
			r.diags.Add(&aerr.DefinitionError{Kind: "DuplicateVariantName", Type: owner, Name: v.Name})
			continue
		}
		seen[v.Name] = true
		k := r.resolveKind(owner, v.Kind, sc)
		if k == nil {
			continue
		}
		variants = append(variants, RVariant{Name: v.Name, Kind: k})
		if a := k.Align(); a > align {
			align = a
		}
		sz := k.Size()
		if sz.IsConst() {
			if sz.Bytes() > maxSize {
				maxSize = sz.Bytes()
			}
		} else {
			allConst = false
			bindings = mergeBindings(bindings, sz.Bindings())
		}
	}

	var size Size
	if allConst {
		size = ConstSize(maxSize)
	} else {
		size = VarSize(bindings)
	}
	return RUnion{Variants: variants, size: size, alignment: align}
}

func (r *resolver) resolveEnum(owner string, n ast.Enum, sc *scope) ResolvedTypeKind {
	seen := map[string]bool{}
	tags := map[int64]bool{}
	variants := make([]REnumVariant, 0, len(n.Variants))
	var align uint64 = 1

	for _, v := range n.Variants {
		if seen[v.Name] {
			r.diags.Add(&aerr.DefinitionError{Kind: "DuplicateVariantName", Type: owner, Name: v.Name})
			continue
		}
		seen[v.Name] = true
		if tags[v.TagValue] {
			r.diags.Add(&aerr.DefinitionError{Kind: "DuplicateTagValue", Type: owner, Name: fmt.Sprintf("%d", v.TagValue)})
			continue
		}
		tags[v.TagValue] = true
		k := r.resolveKind(owner, v.Kind, sc)
		if k == nil {
			continue
		}
		variants = append(variants, REnumVariant{Name: v.Name, TagValue: v.TagValue, Kind: k})
		if a := k.Align(); a > align {
			align = a
		}
	}

	tagExpr := r.resolveExprIn(owner, n.TagExpr, sc)

	equalConst := len(variants) > 0
	var first uint64
	allVariantsConst := true
	for i, v := range variants {
		sz := v.Kind.Size()
		if !sz.IsConst() {
			allVariantsConst = false
			equalConst = false
			break
		}
		if i == 0 {
			first = sz.Bytes()
		} else if sz.Bytes() != first {
			equalConst = false
		}
	}

	var size Size
	if equalConst && tagExpr.Status.Constant {
		size = ConstSize(first)
	} else {
		bindings := bindingsOf(tagExpr, sc)
		if !allVariantsConst {
			for _, v := range variants {
				sz := v.Kind.Size()
				if !sz.IsConst() {
					bindings = mergeBindings(bindings, sz.Bindings())
				}
			}
		}
		size = VarSize(bindings)
	}

	return REnum{TagExpr: tagExpr, Variants: variants, size: size, alignment: align}
}

func (r *resolver) resolveSDU(owner string, n ast.SizeDiscriminatedUnion, sc *scope) ResolvedTypeKind {
	if len(n.Variants) < 2 {
		r.diags.Add(&aerr.DefinitionError{Kind: "InsufficientVariants", Type: owner})
	}
	seen := map[string]bool{}
	sizes := map[uint64]bool{}
	variants := make([]RSDUVariant, 0, len(n.Variants))
	var align uint64 = 1

	for _, v := range n.Variants {
		if seen[v.Name] {
			r.diags.Add(&aerr.DefinitionError{Kind: "DuplicateVariantName", Type: owner, Name: v.Name})
			continue
		}
		seen[v.Name] = true
		if sizes[v.ExpectedSize] {
			r.diags.Add(&aerr.DefinitionError{Kind: "DuplicateExpectedSize", Type: owner, Name: fmt.Sprintf("%d", v.ExpectedSize)})
			continue
		}
		sizes[v.ExpectedSize] = true
		k := r.resolveKind(owner, v.Kind, sc)
		if k == nil {
			continue
		}
		variants = append(variants, RSDUVariant{Name: v.Name, ExpectedSize: v.ExpectedSize, Kind: k})
		if a := k.Align(); a > align {
			align = a
		}
	}
	return RSizeDiscriminatedUnion{Variants: variants, alignment: align}
}
