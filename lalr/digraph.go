// Package lalr computes LALR(1) lookahead sets for a grammar's canonical
// LR(0) automaton using the DeRemer-Pennello digraph algorithm, avoiding the
// state-count blowup of full canonical LR(1) construction while producing
// lookaheads exact enough to catch every LALR(1) conflict (spec §4.3).
package lalr

import "github.com/finrow/marlin/internal/util"

const infinity = int(^uint(0) >> 1)

// digraph implements the traversal from DeRemer & Pennello's "Efficient
// Computation of LALR(1) Look-Ahead Sets" (1982): given a relation over a
// node set and a base value per node, it returns F(x) = base(x) ∪
// ⋃{F(y) : x relation y}, with every node in a cycle assigned the same
// (shared) result set. nodes must list every node that needs a result, even
// ones with no outgoing or incoming edges.
func digraph[N comparable](nodes []N, relation map[N][]N, base map[N]util.StringSet) map[N]util.StringSet {
	result := make(map[N]util.StringSet, len(nodes))
	mark := make(map[N]int, len(nodes))
	var stack []N

	var traverse func(x N)
	traverse = func(x N) {
		stack = append(stack, x)
		d := len(stack)
		mark[x] = d

		set := util.NewStringSet()
		set.AddAll(base[x])
		result[x] = set

		for _, y := range relation[x] {
			if mark[y] == 0 {
				traverse(y)
			}
			if mark[y] < mark[x] {
				mark[x] = mark[y]
			}
			result[x].AddAll(result[y])
		}

		if mark[x] == d {
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				mark[top] = infinity
				if top == x {
					break
				}
				result[top] = result[x]
			}
		}
	}

	for _, x := range nodes {
		if mark[x] == 0 {
			traverse(x)
		}
	}

	return result
}
