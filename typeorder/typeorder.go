// Package typeorder orders the selected types so that every type comes
// after the types it references.
package typeorder

import (
	"slices"
	"strconv"
	"strings"

	"github.com/refaktor/vkgen/digraphutils"
	"github.com/refaktor/vkgen/registry"
)

// CycleError is returned if types reference each other by value.
type CycleError struct {
	// Cycle starts and ends with the same type.
	Cycle []string
}

func (e *CycleError) Error() string {
	return "type dependency cycle: " + strings.Join(e.Cycle, " -> ")
}

// Graph has an edge from each type to the types it references.
type Graph struct {
	// Selected types in selection order, followed by the types that were
	// only reached through references.
	Types []string
	// Number of leading entries of Types that were selected directly.
	NumSelected int

	edges map[string][]string
}

// References returns the names a type refers to: its alias target,
// inner <type> references and member types.
func References(ty *registry.Type) []string {
	var refs []string
	if ty.Alias != "" {
		refs = append(refs, ty.Alias)
	}
	refs = append(refs, ty.Refs...)
	for _, m := range ty.Members {
		refs = append(refs, m.Type)
	}
	return refs
}

// Build creates the graph of the named types. Referenced types that
// weren't named are appended to the type list. Edges from a type to
// itself are left out.
func Build(reg *registry.Registry, names []string) (*Graph, error) {
	g := &Graph{edges: map[string][]string{}}
	seen := map[string]bool{}
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			g.Types = append(g.Types, name)
		}
	}
	g.NumSelected = len(g.Types)

	for i := 0; i < len(g.Types); i++ {
		name := g.Types[i]
		ty := reg.Type(name)
		if ty == nil {
			return nil, registry.SchemaErrorf("type", name, "referenced but not defined")
		}
		var out []string
		for _, ref := range References(ty) {
			if ref == name || slices.Contains(out, ref) {
				continue
			}
			out = append(out, ref)
			if !seen[ref] {
				seen[ref] = true
				g.Types = append(g.Types, ref)
			}
		}
		g.edges[name] = out
	}
	return g, nil
}

// Edges returns the types referenced by name.
func (g *Graph) Edges(name string) []string { return g.edges[name] }

// Roots returns the types nothing references, in type list order.
func (g *Graph) Roots() []string {
	used := map[string]bool{}
	for _, out := range g.edges {
		for _, to := range out {
			used[to] = true
		}
	}
	var roots []string
	for _, name := range g.Types {
		if !used[name] {
			roots = append(roots, name)
		}
	}
	return roots
}

// Order returns all types in post-order from the roots, so each type
// comes after everything it references.
func (g *Graph) Order() ([]string, error) {
	order, cycle := digraphutils.PostOrder(g.Roots(), g.Edges)
	if cycle != nil {
		return nil, &CycleError{Cycle: cycle}
	}
	if len(order) == len(g.Types) {
		return order, nil
	}

	// Types that can't be reached from any root lie on cycles.
	reached := digraphutils.Reachable(g.Roots(), g.Edges)
	for _, name := range g.Types {
		if _, ok := reached[name]; ok {
			continue
		}
		if _, cycle := digraphutils.PostOrder([]string{name}, g.Edges); cycle != nil {
			return nil, &CycleError{Cycle: cycle}
		}
	}
	panic("typeorder: unreachable types without a cycle")
}

// DOT returns graphviz DOT code of the graph.
func (g *Graph) DOT() []byte {
	return digraphutils.DOTCode(g.Types, g.Edges, "types", "node [shape=box]", func(name string) string {
		return "[label=" + strconv.Quote(name) + "]"
	})
}
