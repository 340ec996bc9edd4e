package merge_test

import (
	"testing"

	"github.com/auroradata-ai/federated-dfg/internal/codec"
	"github.com/auroradata-ai/federated-dfg/internal/fhe"
	"github.com/auroradata-ai/federated-dfg/internal/merge"
	"github.com/auroradata-ai/federated-dfg/internal/model"
	"github.com/auroradata-ai/federated-dfg/internal/opcount"
	"github.com/auroradata-ai/federated-dfg/internal/tracestore"
	"github.com/stretchr/testify/require"
)

// decodedEdge is a plaintext view of one merge.Edge, for assertions.
type decodedEdge struct{ From, To string }

func decodeEdges(t *testing.T, eval fhe.Evaluator, table *codec.Table, edges []merge.Edge) []decodedEdge {
	t.Helper()
	out := make([]decodedEdge, len(edges))
	for i, e := range edges {
		from, ok := table.Name(eval.DecryptU16(e.From))
		require.True(t, ok)
		to, ok := table.Name(eval.DecryptU16(e.To))
		require.True(t, ok)
		out[i] = decodedEdge{From: from, To: to}
	}
	return out
}

func buildCase(caseID string, events ...model.Event) model.Case {
	return model.Case{CaseID: caseID, Events: events}
}

func TestMergeFullyInterleaved(t *testing.T) {
	// Scenario 2: A = [a@10, c@30], B = [b@20].
	eval := fhe.NewTrivial()
	a := buildCase("c", model.Event{Activity: "a", TimestampMillis: 10}, model.Event{Activity: "c", TimestampMillis: 30})
	b := buildCase("c", model.Event{Activity: "b", TimestampMillis: 20})

	table := codec.Build(codec.ActivitySet([]model.Case{a}), codec.ActivitySet([]model.Case{b}))
	samples := tracestore.BuildSampleEncryptions(eval, table)

	aTrace, err := tracestore.EncryptCase(eval, table, a)
	require.NoError(t, err)
	aTrace = tracestore.Sanitize(eval, table, aTrace)
	bTrace, err := tracestore.EncodeCase(samples, table, b)
	require.NoError(t, err)

	var counters opcount.Counters
	edges := merge.Case(eval, aTrace, bTrace, &counters)
	decoded := decodeEdges(t, eval, table, edges)

	require.ElementsMatch(t, []decodedEdge{
		{codec.StartName, "a"},
		{"a", "b"},
		{"b", "c"},
		{"c", codec.EndName},
	}, decoded)
}

func TestMergeTieBreakFavorsA(t *testing.T) {
	// Scenario 3: A = [a@10], B = [b@10].
	eval := fhe.NewTrivial()
	a := buildCase("c", model.Event{Activity: "a", TimestampMillis: 10})
	b := buildCase("c", model.Event{Activity: "b", TimestampMillis: 10})

	table := codec.Build(codec.ActivitySet([]model.Case{a}), codec.ActivitySet([]model.Case{b}))
	samples := tracestore.BuildSampleEncryptions(eval, table)

	aTrace, err := tracestore.EncryptCase(eval, table, a)
	require.NoError(t, err)
	aTrace = tracestore.Sanitize(eval, table, aTrace)
	bTrace, err := tracestore.EncodeCase(samples, table, b)
	require.NoError(t, err)

	var counters opcount.Counters
	edges := merge.Case(eval, aTrace, bTrace, &counters)
	decoded := decodeEdges(t, eval, table, edges)

	require.ElementsMatch(t, []decodedEdge{
		{codec.StartName, "a"},
		{"a", "b"},
		{"b", codec.EndName},
	}, decoded)
}

func TestMergeEmptySide(t *testing.T) {
	// Scenario 6: A contributes no real events, B = [a@1].
	eval := fhe.NewTrivial()
	a := buildCase("c")
	b := buildCase("c", model.Event{Activity: "a", TimestampMillis: 1})

	table := codec.Build(nil, codec.ActivitySet([]model.Case{b}))
	samples := tracestore.BuildSampleEncryptions(eval, table)

	aTrace, err := tracestore.EncryptCase(eval, table, a)
	require.NoError(t, err)
	aTrace = tracestore.Sanitize(eval, table, aTrace)
	bTrace, err := tracestore.EncodeCase(samples, table, b)
	require.NoError(t, err)

	var counters opcount.Counters
	edges := merge.Case(eval, aTrace, bTrace, &counters)
	decoded := decodeEdges(t, eval, table, edges)

	require.ElementsMatch(t, []decodedEdge{
		{codec.StartName, "a"},
		{"a", codec.EndName},
	}, decoded)
}

func TestMergeBothEmpty(t *testing.T) {
	eval := fhe.NewTrivial()
	a := buildCase("c")
	b := buildCase("c")

	table := codec.Build(nil, nil)
	samples := tracestore.BuildSampleEncryptions(eval, table)

	aTrace, err := tracestore.EncryptCase(eval, table, a)
	require.NoError(t, err)
	bTrace, err := tracestore.EncodeCase(samples, table, b)
	require.NoError(t, err)

	var counters opcount.Counters
	edges := merge.Case(eval, aTrace, bTrace, &counters)
	decoded := decodeEdges(t, eval, table, edges)

	require.Equal(t, []decodedEdge{{codec.StartName, codec.EndName}}, decoded)
}

func TestSanitizeClampsOutOfRangeCodeToEnd(t *testing.T) {
	eval := fhe.NewTrivial()
	table := codec.Build(map[string]struct{}{"a": {}}, nil)

	trace := tracestore.EncryptedTrace{
		Activities: []fhe.CtxtU16{eval.EncryptU16(codec.StartCode), eval.EncryptU16(9999), eval.EncryptU16(codec.EndCode)},
		Timestamps: []fhe.CtxtU64{eval.EncryptU64(0), eval.EncryptU64(1), eval.EncryptU64(tracestore.MaxTimestamp)},
	}
	sanitized := tracestore.Sanitize(eval, table, trace)
	require.Equal(t, codec.EndCode, eval.DecryptU16(sanitized.Activities[1]))
}
