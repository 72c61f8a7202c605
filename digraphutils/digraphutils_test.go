package digraphutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func edgesOf(g map[string][]string) func(string) []string {
	return func(k string) []string { return g[k] }
}

func TestPostOrder(t *testing.T) {
	require := require.New(t)

	g := map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
		"D": nil,
		"E": {"C"},
	}
	order, cycle := PostOrder([]string{"A", "E"}, edgesOf(g))
	require.Nil(cycle)
	require.Equal([]string{"D", "B", "C", "A", "E"}, order)

	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	for from, tos := range g {
		for _, to := range tos {
			require.Less(pos[to], pos[from], "%v -> %v", from, to)
		}
	}
}

func TestPostOrderCycle(t *testing.T) {
	require := require.New(t)

	g := map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {"A"},
	}
	order, cycle := PostOrder([]string{"A"}, edgesOf(g))
	require.Nil(order)
	require.Equal([]string{"A", "B", "C", "A"}, cycle)
}

func TestReachable(t *testing.T) {
	require := require.New(t)

	g := map[string][]string{
		"A": {"B"},
		"B": {"A", "C"},
		"X": {"A"},
	}
	require.Equal(map[string]struct{}{"A": {}, "B": {}, "C": {}}, Reachable([]string{"A"}, edgesOf(g)))
}

func TestDOTCode(t *testing.T) {
	require := require.New(t)

	g := map[string][]string{
		"A": {"B", "Z"},
		"B": nil,
	}
	code := DOTCode([]string{"A", "B"}, edgesOf(g), "g", "", func(k string) string {
		return "[label=" + k + "]"
	})
	require.Equal("digraph g {\n  0 [label=A]\n  1 [label=B]\n  0 -> {1}\n}\n", string(code))
}
