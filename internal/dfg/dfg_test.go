package dfg_test

import (
	"testing"

	"github.com/auroradata-ai/federated-dfg/internal/dfg"
	"github.com/stretchr/testify/require"
)

func TestRecountTakesMaxOfInAndOut(t *testing.T) {
	g := dfg.New()
	g.AddEdge("a", "b")
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.MarkStart("a")
	g.MarkEnd("c")
	g.Recount()

	require.Equal(t, uint64(2), g.Activities["a"]) // 2 out, 0 in -> max=2
	require.Equal(t, uint64(2), g.Activities["b"])  // 2 in, 1 out -> max=2
	require.Equal(t, uint64(1), g.Activities["c"])  // 1 in, 0 out -> max=1
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	g := dfg.New()
	g.AddEdge("a", "b")
	g.MarkStart("a")
	g.MarkEnd("b")
	g.Recount()

	data, err := g.MarshalJSON()
	require.NoError(t, err)

	var g2 dfg.DFG
	require.NoError(t, g2.UnmarshalJSON(data))

	require.Equal(t, g.Activities, g2.Activities)
	require.Equal(t, g.Edges, g2.Edges)
	require.Equal(t, g.StartActivities, g2.StartActivities)
	require.Equal(t, g.EndActivities, g2.EndActivities)
}

func TestNoSentinelVerticesAppearAsActivities(t *testing.T) {
	g := dfg.New()
	g.MarkStart("a")
	g.AddEdge("a", "b")
	g.MarkEnd("b")
	g.Recount()

	require.NotContains(t, g.Activities, "start")
	require.NotContains(t, g.Activities, "end")
}
