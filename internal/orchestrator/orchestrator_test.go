package orchestrator_test

import (
	"testing"

	"github.com/auroradata-ai/federated-dfg/internal/dfg"
	"github.com/auroradata-ai/federated-dfg/internal/fhe"
	"github.com/auroradata-ai/federated-dfg/internal/model"
	"github.com/auroradata-ai/federated-dfg/internal/orchestrator"
	"github.com/stretchr/testify/require"
)

func ev(activity string, ts uint64) model.Event {
	return model.Event{Activity: activity, TimestampMillis: ts}
}

func TestDisjointCasesWithPSI(t *testing.T) {
	logA := []model.Case{{CaseID: "c1", Events: []model.Event{ev("a", 1), ev("b", 2)}}}
	logB := []model.Case{{CaseID: "c2", Events: []model.Event{ev("x", 1), ev("y", 2)}}}

	res, err := orchestrator.Run(logA, logB, orchestrator.Options{
		Evaluator: fhe.NewTrivial(), WorkerPoolSize: 2, UsePSI: true,
	})
	require.NoError(t, err)

	// start->x and x->end edges are recorded as start/end activity
	// membership; only real-activity edges remain in Edges.
	require.Equal(t, map[string]struct{}{"a": {}, "x": {}}, res.DFG.StartActivities)
	require.Equal(t, uint64(1), res.DFG.Edges[dfg.Edge{From: "a", To: "b"}])
	require.Equal(t, map[string]struct{}{"b": {}, "y": {}}, res.DFG.EndActivities)
	require.NotContains(t, res.DFG.Edges, dfg.Edge{From: "start", To: "x"})
	require.Equal(t, uint64(1), res.DFG.Edges[dfg.Edge{From: "x", To: "y"}])
	require.NotContains(t, res.DFG.Edges, dfg.Edge{From: "y", To: "end"})

	require.Contains(t, res.DFG.StartActivities, "a")
	require.Contains(t, res.DFG.StartActivities, "x")
	require.Contains(t, res.DFG.EndActivities, "b")
	require.Contains(t, res.DFG.EndActivities, "y")
	require.NotContains(t, res.DFG.Activities, "start")
	require.NotContains(t, res.DFG.Activities, "end")
}

func TestAOnlyWithPSIDisabled(t *testing.T) {
	logA := []model.Case{{CaseID: "c", Events: []model.Event{ev("a", 1), ev("b", 2)}}}

	res, err := orchestrator.Run(logA, nil, orchestrator.Options{
		Evaluator: fhe.NewTrivial(), WorkerPoolSize: 1, UsePSI: false,
	})
	require.NoError(t, err)

	require.Equal(t, map[string]struct{}{"a": {}}, res.DFG.StartActivities)
	require.Equal(t, uint64(1), res.DFG.Edges[dfg.Edge{From: "a", To: "b"}])
	require.Equal(t, map[string]struct{}{"b": {}}, res.DFG.EndActivities)
}

func TestRepeatedEdgesAccumulateFrequency(t *testing.T) {
	logA := []model.Case{
		{CaseID: "c1", Events: []model.Event{ev("a", 1), ev("b", 2)}},
		{CaseID: "c2", Events: []model.Event{ev("a", 1), ev("b", 2)}},
	}

	res, err := orchestrator.Run(logA, nil, orchestrator.Options{
		Evaluator: fhe.NewTrivial(), WorkerPoolSize: 4, UsePSI: false,
	})
	require.NoError(t, err)

	require.Equal(t, uint64(2), res.DFG.Edges[dfg.Edge{From: "a", To: "b"}])
}

// TestRelabellingIdempotence is invariant 6: consistently renaming
// activities across both logs must rename the output DFG's vertices and
// edges identically, leaving every frequency unchanged.
func TestRelabellingIdempotence(t *testing.T) {
	logA := []model.Case{
		{CaseID: "c1", Events: []model.Event{ev("a", 1), ev("b", 2), ev("c", 3)}},
		{CaseID: "c2", Events: []model.Event{ev("a", 1), ev("c", 2)}},
	}
	logB := []model.Case{
		{CaseID: "c2", Events: []model.Event{ev("b", 3)}},
		{CaseID: "c3", Events: []model.Event{ev("c", 1), ev("a", 2)}},
	}

	relabel := map[string]string{"a": "x", "b": "y", "c": "z"}
	renameCase := func(c model.Case) model.Case {
		events := make([]model.Event, len(c.Events))
		for i, e := range c.Events {
			events[i] = model.Event{Activity: relabel[e.Activity], TimestampMillis: e.TimestampMillis}
		}
		return model.Case{CaseID: c.CaseID, Events: events}
	}
	renameLog := func(log []model.Case) []model.Case {
		out := make([]model.Case, len(log))
		for i, c := range log {
			out[i] = renameCase(c)
		}
		return out
	}

	base, err := orchestrator.Run(logA, logB, orchestrator.Options{
		Evaluator: fhe.NewTrivial(), WorkerPoolSize: 2, UsePSI: true,
	})
	require.NoError(t, err)

	renamed, err := orchestrator.Run(renameLog(logA), renameLog(logB), orchestrator.Options{
		Evaluator: fhe.NewTrivial(), WorkerPoolSize: 2, UsePSI: true,
	})
	require.NoError(t, err)

	wantActivities := make(map[string]uint64, len(base.DFG.Activities))
	for name, freq := range base.DFG.Activities {
		wantActivities[relabel[name]] = freq
	}
	require.Equal(t, wantActivities, renamed.DFG.Activities)

	wantEdges := make(map[dfg.Edge]uint64, len(base.DFG.Edges))
	for e, freq := range base.DFG.Edges {
		wantEdges[dfg.Edge{From: relabel[e.From], To: relabel[e.To]}] = freq
	}
	require.Equal(t, wantEdges, renamed.DFG.Edges)

	wantStart := make(map[string]struct{}, len(base.DFG.StartActivities))
	for name := range base.DFG.StartActivities {
		wantStart[relabel[name]] = struct{}{}
	}
	require.Equal(t, wantStart, renamed.DFG.StartActivities)

	wantEnd := make(map[string]struct{}, len(base.DFG.EndActivities))
	for name := range base.DFG.EndActivities {
		wantEnd[relabel[name]] = struct{}{}
	}
	require.Equal(t, wantEnd, renamed.DFG.EndActivities)
}

// TestOrderingIndependence is invariant 7: shuffling either log's case
// order must not change the output DFG — the protocol's own case-order
// shuffle (orchestrator.shuffledIndices) already guarantees this, this
// test just pins it against the assembled result rather than internals.
func TestOrderingIndependence(t *testing.T) {
	logA := []model.Case{
		{CaseID: "c1", Events: []model.Event{ev("a", 1), ev("b", 2)}},
		{CaseID: "c2", Events: []model.Event{ev("a", 1), ev("c", 2)}},
		{CaseID: "c3", Events: []model.Event{ev("b", 1), ev("c", 2)}},
	}
	logB := []model.Case{
		{CaseID: "c2", Events: []model.Event{ev("b", 3)}},
		{CaseID: "c4", Events: []model.Event{ev("c", 1), ev("a", 2)}},
	}

	reversed := func(log []model.Case) []model.Case {
		out := make([]model.Case, len(log))
		for i, c := range log {
			out[len(log)-1-i] = c
		}
		return out
	}

	base, err := orchestrator.Run(logA, logB, orchestrator.Options{
		Evaluator: fhe.NewTrivial(), WorkerPoolSize: 3, UsePSI: true,
	})
	require.NoError(t, err)

	shuffled, err := orchestrator.Run(reversed(logA), reversed(logB), orchestrator.Options{
		Evaluator: fhe.NewTrivial(), WorkerPoolSize: 3, UsePSI: true,
	})
	require.NoError(t, err)

	require.Equal(t, base.DFG.Activities, shuffled.DFG.Activities)
	require.Equal(t, base.DFG.Edges, shuffled.DFG.Edges)
	require.Equal(t, base.DFG.StartActivities, shuffled.DFG.StartActivities)
	require.Equal(t, base.DFG.EndActivities, shuffled.DFG.EndActivities)
}

func TestEmptySideSharedCase(t *testing.T) {
	// B-only case: present only in B, never present in A at all.
	logB := []model.Case{{CaseID: "c", Events: []model.Event{ev("a", 1)}}}

	res, err := orchestrator.Run(nil, logB, orchestrator.Options{
		Evaluator: fhe.NewTrivial(), WorkerPoolSize: 1, UsePSI: true,
	})
	require.NoError(t, err)

	require.Equal(t, map[string]struct{}{"a": {}}, res.DFG.StartActivities)
	require.Equal(t, map[string]struct{}{"a": {}}, res.DFG.EndActivities)
}
