// Package assembler implements spec 4.6: turning the merge engine's
// encrypted edges into the plaintext DFG, folding in A's private-only
// cases, and restoring the activity-frequency recount invariant.
package assembler

import (
	"github.com/auroradata-ai/federated-dfg/internal/codec"
	"github.com/auroradata-ai/federated-dfg/internal/dfg"
	"github.com/auroradata-ai/federated-dfg/internal/fhe"
	"github.com/auroradata-ai/federated-dfg/internal/merge"
	"github.com/auroradata-ai/federated-dfg/internal/model"
)

// AddSharedEdges decrypts one shared case's encrypted edges (only A,
// the private-key holder, ever calls this) and folds them into g. Edges
// whose decrypted source is the end sentinel are dropped as duplicate
// case-end bookkeeping; edges touching start or end populate the
// corresponding activity set instead of becoming a regular DFG edge;
// the start/end vertices themselves never appear in g.
func AddSharedEdges(eval fhe.Evaluator, table *codec.Table, edges []merge.Edge, g *dfg.DFG) {
	for _, e := range edges {
		fromCode := eval.DecryptU16(e.From)
		toCode := eval.DecryptU16(e.To)

		fromName, fromOK := table.Name(fromCode)
		toName, toOK := table.Name(toCode)
		if !fromOK || !toOK {
			continue
		}

		if fromName == codec.EndName {
			continue
		}
		// Both-sentinel edge: only possible for a case with zero real
		// events, which eventlog's EmptyTrace handling drops before any
		// case ever reaches the merge engine (merge.go's p==0 && q==0
		// branch). Guarded explicitly so a start->end artifact can never
		// be mistaken for "end" being a real start activity.
		if fromName == codec.StartName && toName == codec.EndName {
			continue
		}
		if fromName == codec.StartName {
			g.MarkStart(toName)
			continue
		}
		if toName == codec.EndName {
			g.MarkEnd(fromName)
			continue
		}
		g.AddEdge(fromName, toName)
	}
}

// AddPrivateCase folds one of A's private-only cases (present in A but
// absent from the shared set) directly in plaintext: start -> a_0 ->
// ... -> a_{n-1} -> end, each edge at frequency 1 (spec 4.6: "emit...
// at frequency 1 each"). As in AddSharedEdges, the start -> a_0 and
// a_{n-1} -> end edges are recorded as start/end activity membership
// rather than as DFG edges. c.Events must be non-empty (enforced by
// eventlog's EmptyTrace handling at load time).
func AddPrivateCase(g *dfg.DFG, c model.Case) {
	g.MarkStart(c.Events[0].Activity)
	g.MarkEnd(c.Events[len(c.Events)-1].Activity)
	for i := 0; i < len(c.Events)-1; i++ {
		g.AddEdge(c.Events[i].Activity, c.Events[i+1].Activity)
	}
}

// Finalize restores the vertex-count recount invariant after all edges
// (shared and private) have been folded in.
func Finalize(g *dfg.DFG) {
	g.Recount()
}
