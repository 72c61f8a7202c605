// Package digraphutils provides utilities for directed graphs, represented as
// a mapping from node keys to edges.
package digraphutils

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/refaktor/vkgen/textutils"
)

func Reachable[K comparable](roots []K, edges func(K) []K) map[K]struct{} {
	reachable := map[K]struct{}{}
	nodes := slices.Clone(roots)
	var newNodes []K
	for len(nodes) > 0 {
		for _, node := range nodes {
			if _, ok := reachable[node]; ok {
				continue
			}
			reachable[node] = struct{}{}
			newNodes = append(newNodes, edges(node)...)
		}
		nodes, newNodes = newNodes, nodes[:0]
	}
	return reachable
}

// PostOrder runs a depth first search from each root in order and
// returns the nodes in post-order, i.e. every node comes after all
// nodes reachable from it.
//
// Roots that were already reached from an earlier root are skipped.
// If a cycle is found, order is nil and cycle holds the path of the
// cycle, starting and ending with the same node.
//
// The traversal uses an explicit stack, so deep graphs don't grow the
// call stack.
func PostOrder[K comparable](roots []K, edges func(K) []K) (order []K, cycle []K) {
	const (
		unvisited = iota
		onStack
		done
	)
	type frame struct {
		node K
		succ []K
		next int
	}

	state := map[K]int{}
	var stack []frame
	for _, root := range roots {
		if state[root] != unvisited {
			continue
		}
		state[root] = onStack
		stack = append(stack, frame{node: root, succ: edges(root)})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.succ) {
				succ := top.succ[top.next]
				top.next++
				switch state[succ] {
				case unvisited:
					state[succ] = onStack
					stack = append(stack, frame{node: succ, succ: edges(succ)})
				case onStack:
					idx := slices.IndexFunc(stack, func(f frame) bool { return f.node == succ })
					for _, f := range stack[idx:] {
						cycle = append(cycle, f.node)
					}
					return nil, append(cycle, succ)
				}
				continue
			}
			state[top.node] = done
			order = append(order, top.node)
			stack = stack[:len(stack)-1]
		}
	}
	return order, nil
}

// DOTCode generates graphviz DOT code to visualize a graph.
// nodes represents all nodes included in the graph.
// name is the name of the digraph, prelude DOT code inserted
// in the beginning, and nodeAttrs should return a string representing
// a node's attributes (in []).
func DOTCode[K comparable](nodes []K, edges func(K) []K, name, prelude string, nodeAttrs func(K) string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "digraph %v {\n", name)
	if prelude = strings.TrimSpace(prelude); prelude != "" {
		b.WriteString(textutils.IndentString(prelude, "  ", 1))
		b.WriteByte('\n')
	}
	nodeIDs := map[K]int{}
	for id, key := range nodes {
		fmt.Fprintf(&b, "  %v", id)
		if attrs := nodeAttrs(key); attrs != "" {
			b.WriteByte(' ')
			b.WriteString(attrs)
		}
		b.WriteByte('\n')
		nodeIDs[key] = id
	}
	for id, key := range nodes {
		edgs := slices.DeleteFunc(slices.Clone(edges(key)), func(k K) bool {
			_, ok := nodeIDs[k]
			return !ok
		})
		if len(edgs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %v -> {", id)
		for i, edg := range edgs {
			if i != 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%v", nodeIDs[edg])
		}
		fmt.Fprintf(&b, "}\n")
	}
	fmt.Fprintf(&b, "}\n")
	return b.Bytes()
}
