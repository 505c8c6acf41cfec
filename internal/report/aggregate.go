// Package report turns a drained process table into the tool's result
// record: the selected RSS sum, the pid/read counts, the propagated exit
// code, and a tree rendering of the full process graph.
package report

import "github.com/ja7ad/rsstrace/internal/tracer"

// Node is one entry in the rendered tree: its pid, its RSS reading, and
// its children in discovery order. Children is nil (not empty) for a
// leaf, so it marshals to JSON null per the wire format.
type Node struct {
	ID       int    `json:"id"`
	RSS      uint64 `json:"rss"`
	Children []Node `json:"children"`
}

// Result is the tool's complete output: the aggregate counters plus the
// full tree. ExitCode is a pointer so it can be omitted from the wire
// format entirely when propagation was not requested.
type Result struct {
	MaxRSS     uint64 `json:"max_rss"`
	TotalPIDs  uint64 `json:"total_pids"`
	TotalReads uint64 `json:"total_reads"`
	ExitCode   *int32 `json:"exit_code,omitempty"`
	Graph      Node   `json:"graph"`
}

// Build computes the result record from a drained snapshot. The
// selection rule for max_rss (and, equivalently, total_reads) is: a
// record contributes iff it is the root or it has at least one child.
// This approximates "branch points" in the copy-on-write process tree
// rather than summing every process's RSS, which would double-count
// pages children still share with their parent.
func Build(snapshot map[int]tracer.Record, rootID int, exitCode *int32) Result {
	var maxRSS, totalReads uint64
	for id, rec := range snapshot {
		if id == rootID || len(rec.Children) > 0 {
			maxRSS += rec.RSSBytes
			totalReads++
		}
	}

	return Result{
		MaxRSS:     maxRSS,
		TotalPIDs:  uint64(len(snapshot)),
		TotalReads: totalReads,
		ExitCode:   exitCode,
		Graph:      buildGraph(snapshot, rootID),
	}
}
