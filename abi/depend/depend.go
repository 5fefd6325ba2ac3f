// Package depend implements the dependency analyzer: it builds a typed
// dependency graph over an [ast.TypeDef] set (type-reference, field-reference,
// size-expression, and tag-expression edges), detects cycles, computes a
// topological order, and validates layout constraints against the already
// resolved [abi.Graph] -- the hardest part of the analyzer, since a forward
// field reference can make a field's own offset undecidable.
//
// Grounded on the dependency graph and layout-constraint design of the
// original Rust abi_gen compiler this package's Go counterpart replaces.
package depend

import (
	"fmt"

	"github.com/abi-tools/abi-tools-go/abi"
	"github.com/abi-tools/abi-tools-go/abi/aerr"
	"github.com/abi-tools/abi-tools-go/abi/ast"
	"github.com/abi-tools/abi-tools-go/abi/expr"
)

// EdgeKind is the closed set of dependency edge kinds the analyzer tracks.
type EdgeKind int

const (
	TypeReference EdgeKind = iota
	FieldReference
	SizeExpression
	TagExpression
)

func (k EdgeKind) String() string {
	switch k {
	case TypeReference:
		return "TypeReference"
	case FieldReference:
		return "FieldReference"
	case SizeExpression:
		return "SizeExpression"
	case TagExpression:
		return "TagExpression"
	default:
		return "Unknown"
	}
}

// Edge is a single dependency, annotated with a human-readable context.
type Edge struct {
	From, To string
	Kind     EdgeKind
	Context  string
}

// Graph is the accumulated dependency graph for one compilation run.
type Graph struct {
	Nodes     []string
	TypeEdges []Edge // TypeReference edges only; these feed cycle detection and topo sort
	AllEdges  []Edge // every edge, including field/size/tag references, for diagnostics

	adjacency map[string][]string
	seen      map[string]bool
}

func newGraph() *Graph {
	return &Graph{adjacency: make(map[string][]string), seen: make(map[string]bool)}
}

func (g *Graph) addNode(name string) {
	if !g.seen[name] {
		g.seen[name] = true
		g.Nodes = append(g.Nodes, name)
		g.adjacency[name] = nil
	}
}

func (g *Graph) addTypeEdge(from, to, context string) {
	g.addNode(from)
	g.addNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
	e := Edge{From: from, To: to, Kind: TypeReference, Context: context}
	g.TypeEdges = append(g.TypeEdges, e)
	g.AllEdges = append(g.AllEdges, e)
}

func (g *Graph) addFieldEdge(kind EdgeKind, from, to, context string) {
	g.AllEdges = append(g.AllEdges, Edge{From: from, To: to, Kind: kind, Context: context})
}

// Cycle is one discovered cycle in the type-reference edge set.
type Cycle struct {
	Path []string
}

// Analysis is the complete result of analyzing a set of type definitions
// against their resolved graph.
type Analysis struct {
	Graph            *Graph
	Cycles           []Cycle
	TopoOrder        []string // nil if any cycle exists
	LayoutViolations []*aerr.LayoutConstraintError
	ValidationErrors []error
}

// Analyze builds the dependency graph for defs, detects cycles, computes a
// topological order, and runs layout-constraint and structural-uniqueness
// validation using res (the already-resolved graph, needed to evaluate the
// equal-size-enum exception and to look up resolved field types).
func Analyze(defs []*ast.TypeDef, res *abi.Graph) *Analysis {
	byName := make(map[string]*ast.TypeDef, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	g := newGraph()
	a := &Analysis{Graph: g}

	for _, d := range defs {
		g.addNode(d.Name)
		walkTypeEdges(g, d.Name, d.Kind)
	}

	a.Cycles = g.detectCycles()
	if len(a.Cycles) == 0 {
		a.TopoOrder = g.topoSort()
	}

	for _, d := range defs {
		validateDuplicates(d.Name, d.Kind, a)
		validateSDUPlacement(byName, d.Name, d.Kind, res, a, true)
	}

	if res != nil {
		for _, d := range defs {
			checkLayoutConstraints(d.Name, d.Kind, res, a)
		}
	}

	return a
}

// walkTypeEdges records a TypeReference edge for every TypeRef reachable
// from k (without crossing into the referenced type's own definition; that
// happens when the outer loop visits that type directly).
func walkTypeEdges(g *Graph, owner string, k ast.TypeKind) {
	switch n := k.(type) {
	case ast.Primitive:
	case ast.TypeRef:
		g.addTypeEdge(owner, n.Name, fmt.Sprintf("type reference in %s", owner))
	case ast.Array:
		walkTypeEdges(g, owner, n.ElementType)
	case ast.Struct:
		for _, f := range n.Fields {
			walkTypeEdges(g, owner, f.Kind)
		}
	case ast.Union:
		for _, v := range n.Variants {
			walkTypeEdges(g, owner, v.Kind)
		}
	case ast.Enum:
		for _, v := range n.Variants {
			walkTypeEdges(g, owner, v.Kind)
		}
	case ast.SizeDiscriminatedUnion:
		for _, v := range n.Variants {
			walkTypeEdges(g, owner, v.Kind)
		}
	default:
		panic(fmt.Sprintf("depend: unhandled ast.TypeKind %T", k))
	}
}

// detectCycles runs DFS with a recursion-stack set over TypeReference
// edges only, as required by the base spec (field-reference edges never
// cross a type boundary in this AST, since dotted paths only resolve
// within a single enclosing struct's own fields).
func (g *Graph) detectCycles() []Cycle {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Nodes))
	var cycles []Cycle
	var path []string

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		path = append(path, node)
		for _, next := range g.adjacency[node] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Found a back edge; extract the cycle from path.
				start := indexOf(path, next)
				cyc := append(append([]string{}, path[start:]...), next)
				cycles = append(cycles, Cycle{Path: cyc})
			case black:
				// already fully explored, no cycle through here
			}
		}
		path = path[:len(path)-1]
		color[node] = black
	}

	for _, node := range g.Nodes {
		if color[node] == white {
			visit(node)
		}
	}
	return cycles
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return 0
}

// topoSort computes a topological order over TypeReference edges using
// Kahn's algorithm, returned dependencies first: every type comes after
// the types it references. The caller must not call this when any cycle
// exists; the result is otherwise undefined.
func (g *Graph) topoSort() []string {
	indegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n] = 0
	}
	for _, n := range g.Nodes {
		for _, next := range g.adjacency[n] {
			indegree[next]++
		}
	}
	var queue []string
	for _, n := range g.Nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	var order []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, next := range g.adjacency[n] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	// Edges point from a type to what it references, so Kahn's order lists
	// referencing types first; reverse it to put dependencies first.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func validateDuplicates(owner string, k ast.TypeKind, a *Analysis) {
	switch n := k.(type) {
	case ast.Struct:
		seen := map[string]bool{}
		for _, f := range n.Fields {
			if seen[f.Name] {
				a.ValidationErrors = append(a.ValidationErrors, &aerr.DefinitionError{Kind: "DuplicateFieldName", Type: owner, Name: f.Name})
			}
			seen[f.Name] = true
			validateDuplicates(owner, f.Kind, a)
		}
	case ast.Union:
		seen := map[string]bool{}
		for _, v := range n.Variants {
			if seen[v.Name] {
				a.ValidationErrors = append(a.ValidationErrors, &aerr.DefinitionError{Kind: "DuplicateVariantName", Type: owner, Name: v.Name})
			}
			seen[v.Name] = true
			validateDuplicates(owner, v.Kind, a)
		}
	case ast.Enum:
		seen := map[string]bool{}
		tags := map[int64]bool{}
		for _, v := range n.Variants {
			if seen[v.Name] {
				a.ValidationErrors = append(a.ValidationErrors, &aerr.DefinitionError{Kind: "DuplicateVariantName", Type: owner, Name: v.Name})
			}
			seen[v.Name] = true
			if tags[v.TagValue] {
				a.ValidationErrors = append(a.ValidationErrors, &aerr.DefinitionError{Kind: "DuplicateTagValue", Type: owner, Name: fmt.Sprintf("%d", v.TagValue)})
			}
			tags[v.TagValue] = true
			validateDuplicates(owner, v.Kind, a)
		}
	case ast.SizeDiscriminatedUnion:
		if len(n.Variants) < 2 {
			a.ValidationErrors = append(a.ValidationErrors, &aerr.DefinitionError{Kind: "InsufficientVariants", Type: owner})
		}
		seen := map[string]bool{}
		sizes := map[uint64]bool{}
		for _, v := range n.Variants {
			if seen[v.Name] {
				a.ValidationErrors = append(a.ValidationErrors, &aerr.DefinitionError{Kind: "DuplicateVariantName", Type: owner, Name: v.Name})
			}
			seen[v.Name] = true
			if sizes[v.ExpectedSize] {
				a.ValidationErrors = append(a.ValidationErrors, &aerr.DefinitionError{Kind: "DuplicateExpectedSize", Type: owner, Name: fmt.Sprintf("%d", v.ExpectedSize)})
			}
			sizes[v.ExpectedSize] = true
			validateDuplicates(owner, v.Kind, a)
		}
	case ast.Array:
		validateDuplicates(owner, n.ElementType, a)
	}
}

// isSDU reports whether k is (possibly via a chain of TypeRefs) a
// [ast.SizeDiscriminatedUnion].
func isSDU(defs map[string]*ast.TypeDef, k ast.TypeKind, depth int) bool {
	if depth > 64 {
		return false // guard against a TypeRef cycle; CircularDependency is reported separately
	}
	switch n := k.(type) {
	case ast.SizeDiscriminatedUnion:
		return true
	case ast.TypeRef:
		if d, ok := defs[n.Name]; ok {
			return isSDU(defs, d.Kind, depth+1)
		}
		return false
	default:
		return false
	}
}

// validateSDUPlacement enforces: a size-discriminated union may only appear
// as the sole variable-size direct field of a struct; it may not appear as
// an array element; it may not appear inside a union or enum variant.
func validateSDUPlacement(defs map[string]*ast.TypeDef, owner string, k ast.TypeKind, res *abi.Graph, a *Analysis, topLevel bool) {
	switch n := k.(type) {
	case ast.Struct:
		sduCount := 0
		for _, f := range n.Fields {
			if isSDU(defs, f.Kind, 0) {
				sduCount++
			}
			validateSDUPlacement(defs, owner, f.Kind, res, a, false)
		}
		if sduCount > 1 {
			a.ValidationErrors = append(a.ValidationErrors, &aerr.UnsupportedCompositionError{
				Type: owner, Reason: "a struct may contain at most one size-discriminated union field",
			})
		}
		if sduCount == 1 && res != nil {
			if variableCount := countVariableSizeFields(res, owner); variableCount > 1 {
				a.ValidationErrors = append(a.ValidationErrors, &aerr.UnsupportedCompositionError{
					Type: owner, Reason: "a size-discriminated union must be the sole variable-size field of its enclosing struct",
				})
			}
		}
	case ast.Array:
		if isSDU(defs, n.ElementType, 0) {
			a.ValidationErrors = append(a.ValidationErrors, &aerr.UnsupportedCompositionError{
				Type: owner, Reason: "a size-discriminated union may not appear as an array element",
			})
		}
		validateSDUPlacement(defs, owner, n.ElementType, res, a, false)
	case ast.Union:
		for _, v := range n.Variants {
			if isSDU(defs, v.Kind, 0) {
				a.ValidationErrors = append(a.ValidationErrors, &aerr.UnsupportedCompositionError{
					Type: owner, Reason: fmt.Sprintf("a size-discriminated union may not appear as union variant %q", v.Name),
				})
			}
			validateSDUPlacement(defs, owner, v.Kind, res, a, false)
		}
	case ast.Enum:
		for _, v := range n.Variants {
			if isSDU(defs, v.Kind, 0) {
				a.ValidationErrors = append(a.ValidationErrors, &aerr.UnsupportedCompositionError{
					Type: owner, Reason: fmt.Sprintf("a size-discriminated union may not appear as enum variant %q", v.Name),
				})
			}
			validateSDUPlacement(defs, owner, v.Kind, res, a, false)
		}
	case ast.SizeDiscriminatedUnion:
		for _, v := range n.Variants {
			validateSDUPlacement(defs, owner, v.Kind, res, a, false)
		}
	}
}

// countVariableSizeFields returns the number of owner's resolved top-level
// fields whose size is not compile-time-constant. It returns 0 if owner was
// not resolved to a struct (e.g. a cyclic or otherwise unresolved type).
func countVariableSizeFields(res *abi.Graph, owner string) int {
	rt := res.Lookup(owner)
	if rt == nil {
		return 0
	}
	st, ok := rt.Kind.(abi.RStruct)
	if !ok {
		return 0
	}
	count := 0
	for _, f := range st.Fields {
		if f.Kind != nil && !f.Kind.Size().IsConst() {
			count++
		}
	}
	return count
}

// checkLayoutConstraints walks every struct in k and, for each field whose
// size or tag expression references a sibling field, rejects the case where
// that sibling field appears later in declaration order -- the field's own
// offset cannot be computed without first knowing the dependent field's
// size, which in turn cannot be known without knowing the sibling's value.
// The one exception: an enum whose variants all share one constant size has
// a constant footprint regardless of its tag, so a forward-referencing tag
// expression is harmless and permitted.
func checkLayoutConstraints(owner string, k ast.TypeKind, res *abi.Graph, a *Analysis) {
	switch n := k.(type) {
	case ast.Struct:
		index := make(map[string]int, len(n.Fields))
		for i, f := range n.Fields {
			index[f.Name] = i
		}
		for i, f := range n.Fields {
			checkField(owner, f.Name, i, f.Kind, index, res, a)
			checkLayoutConstraints(owner, f.Kind, res, a)
		}
	case ast.Union:
		for _, v := range n.Variants {
			checkLayoutConstraints(owner, v.Kind, res, a)
		}
	case ast.Enum:
		for _, v := range n.Variants {
			checkLayoutConstraints(owner, v.Kind, res, a)
		}
	case ast.SizeDiscriminatedUnion:
		for _, v := range n.Variants {
			checkLayoutConstraints(owner, v.Kind, res, a)
		}
	case ast.Array:
		checkLayoutConstraints(owner, n.ElementType, res, a)
	}
}

func checkField(owner, fieldName string, fieldIndex int, k ast.TypeKind, index map[string]int, res *abi.Graph, a *Analysis) {
	switch n := k.(type) {
	case ast.Array:
		checkExprForward(owner, fieldName, fieldIndex, "array size", n.SizeExpr, index, false, a)
	case ast.Enum:
		exempt := enumHasEqualSizeVariants(owner, fieldName, res)
		checkExprForward(owner, fieldName, fieldIndex, "enum tag", n.TagExpr, index, exempt, a)
	}
}

func enumHasEqualSizeVariants(owner, fieldName string, res *abi.Graph) bool {
	if res == nil {
		return false
	}
	rt := res.Lookup(owner)
	if rt == nil {
		return false
	}
	st, ok := rt.Kind.(abi.RStruct)
	if !ok {
		return false
	}
	for _, f := range st.Fields {
		if f.Name != fieldName {
			continue
		}
		if en, ok := f.Kind.(abi.REnum); ok {
			return en.EqualSizeVariants()
		}
	}
	return false
}

func checkExprForward(owner, fieldName string, fieldIndex int, kindLabel string, e expr.Expr, index map[string]int, exempt bool, a *Analysis) {
	if e == nil {
		return
	}
	for _, p := range expr.FieldRefs(e) {
		refIdx, ok := index[string(p)]
		if !ok {
			continue // external binding, not a sibling field
		}
		if refIdx > fieldIndex && !exempt {
			a.LayoutViolations = append(a.LayoutViolations, &aerr.LayoutConstraintError{
				ViolatingType:       owner,
				ViolatingExpression: fmt.Sprintf("%s of field %q", kindLabel, fieldName),
				DependencyChain:     []string{fieldName, string(p)},
				Reason:              fmt.Sprintf("field %q's %s depends on field %q, which appears later in %q", fieldName, kindLabel, p, owner),
			})
		}
	}
}
