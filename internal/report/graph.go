package report

import "github.com/ja7ad/rsstrace/internal/tracer"

// frame is one level of the explicit DFS stack: the pid being visited,
// how many of its children have already been pushed, and the Node
// children already completed and ready to attach once this frame itself
// completes.
type frame struct {
	id       int
	childIdx int
	children []Node
}

// buildGraph renders the process tree rooted at rootID as a Node,
// depth-first. It walks an explicit stack rather than recursing, per the
// spec's own design note that tree depth tracks observed fork depth and
// should not be assumed to stay within any particular recursion budget.
func buildGraph(snapshot map[int]tracer.Record, rootID int) Node {
	stack := []*frame{{id: rootID}}

	for {
		top := stack[len(stack)-1]
		rec := snapshot[top.id]

		if top.childIdx < len(rec.Children) {
			childID := rec.Children[top.childIdx]
			top.childIdx++
			stack = append(stack, &frame{id: childID})
			continue
		}

		node := Node{ID: top.id, RSS: rec.RSSBytes}
		if len(top.children) > 0 {
			node.Children = top.children
		}

		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return node
		}
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, node)
	}
}
