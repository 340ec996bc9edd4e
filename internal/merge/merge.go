// Package merge implements the secure merge protocol of spec 4.5: the
// oblivious two-pointer interleave that produces encrypted
// directly-follows edges for one shared case, without either comparison
// result or selection ever branching on plaintext data. Case runs
// sequentially for one case; the per-case goroutine fan-out lives in
// internal/orchestrator. The fold is grounded on the original
// federated-DFG research prototype's find_following_activity /
// handle_last pointer-advance recurrence.
package merge

import (
	"github.com/auroradata-ai/federated-dfg/internal/fhe"
	"github.com/auroradata-ai/federated-dfg/internal/opcount"
	"github.com/auroradata-ai/federated-dfg/internal/tracestore"
)

// Edge is one encrypted directly-follows edge produced by the merge
// engine, not yet decrypted or attributed to a plaintext activity name.
type Edge struct {
	From fhe.CtxtU16
	To   fhe.CtxtU16
}

// comparisonTables caches le(t^A_i, t^B_j) and its complement so the
// O(p*q) comparisons backing both the interior fold and the
// start/end special cases are each computed exactly once (spec 4.5:
// "computed once and cached").
type comparisonTables struct {
	leAB [][]fhe.CtxtBool // leAB[i][j] = t^A_i <= t^B_j
	leBA [][]fhe.CtxtBool // leBA[j][i] = not(leAB[i][j])
}

func buildTables(eval fhe.Evaluator, ta []fhe.CtxtU64, tb []uint64, counters *opcount.Counters) comparisonTables {
	p, q := len(ta), len(tb)
	leAB := make([][]fhe.CtxtBool, p)
	leBA := make([][]fhe.CtxtBool, q)
	for j := 0; j < q; j++ {
		leBA[j] = make([]fhe.CtxtBool, p)
	}

	// Each B timestamp is encrypted exactly once, outside the i loop: the
	// p*q comparisons reuse these q ciphertexts rather than re-encrypting
	// tb[j] on every i, which would cost p*q encryptions instead of q.
	tbCtxt := make([]fhe.CtxtU64, q)
	for j, t := range tb {
		tbCtxt[j] = eval.EncryptU64(t)
	}

	for i := 0; i < p; i++ {
		leAB[i] = make([]fhe.CtxtBool, q)
		for j := 0; j < q; j++ {
			le := eval.LE64(ta[i], tbCtxt[j])
			counters.TimestampComparisons++
			leAB[i][j] = le
			leBA[j][i] = eval.Not(le)
		}
	}
	return comparisonTables{leAB: leAB, leBA: leBA}
}

// realView strips the sentinel events tracestore prepends/appends, so
// the interior fold only ever sees real activities: the logical merged
// sequence has exactly one start and one end, handled by the dedicated
// rules below, not one per side.
func realView(activities []fhe.CtxtU16, count int) []fhe.CtxtU16 {
	return activities[1 : 1+count]
}

// Case runs the merge engine for one shared case, returning its
// encrypted directly-follows edges, including the start->first and
// last->end edges (spec 4.5 Edge cases). a must already have its
// activities sanitized (tracestore.Sanitize) before being passed here.
func Case(eval fhe.Evaluator, a tracestore.EncryptedTrace, b tracestore.MixedTrace, counters *opcount.Counters) []Edge {
	pFull, qFull := len(a.Activities), len(b.Activities)
	p, q := pFull-2, qFull-2 // real events only, sentinels stripped

	startCtxt := a.Activities[0]
	endCtxt := a.Activities[pFull-1]

	if p == 0 && q == 0 {
		return []Edge{{From: startCtxt, To: endCtxt}}
	}

	realA := realView(a.Activities, p)
	realB := realView(b.Activities, q)
	realTA := a.Timestamps[1 : 1+p]
	realTB := b.Timestamps[1 : 1+q]

	if p == 0 {
		return emptySideEdges(startCtxt, endCtxt, realB)
	}
	if q == 0 {
		return emptySideEdges(startCtxt, endCtxt, realA)
	}

	tables := buildTables(eval, realTA, realTB, counters)

	edges := make([]Edge, 0, p+q+2)

	// Start edge: select(LE_AB[0][0], a_0, b_0) — whichever real event
	// from either side is chronologically first follows start.
	firstNext := eval.SelectU16(tables.leAB[0][0], realA[0], realB[0])
	counters.Selections++
	edges = append(edges, Edge{From: startCtxt, To: firstNext})

	// Interior fold: for every real A event but the last, find the next
	// event in merged order (spec 4.5's next(a_i) recurrence).
	for i := 0; i < p-1; i++ {
		next := realA[i+1]
		for j := q - 1; j >= 0; j-- {
			cand := eval.SelectU16(tables.leBA[j][i+1], realB[j], realA[i+1])
			counters.Selections++
			next = eval.SelectU16(tables.leAB[i][j], cand, next)
			counters.Selections++
		}
		edges = append(edges, Edge{From: realA[i], To: next})
	}

	// Symmetric fold: for every real B event but the last, find the next
	// event in merged order.
	for j := 0; j < q-1; j++ {
		next := realB[j+1]
		for i := p - 1; i >= 0; i-- {
			cand := eval.SelectU16(tables.leAB[i][j+1], realA[i], realB[j+1])
			counters.Selections++
			next = eval.SelectU16(tables.leBA[j][i], cand, next)
			counters.Selections++
		}
		edges = append(edges, Edge{From: realB[j], To: next})
	}

	// End edges: scan the opposite side backwards so that the earliest
	// opposite-side event ordered after this side's last event (ties
	// still favor A) is the one kept; if none exists, that last event's
	// successor is end directly.
	lastA, lastB := realA[p-1], realB[q-1]
	lastAToEnd := endCtxt
	for j := q - 1; j >= 0; j-- {
		lastAToEnd = eval.SelectU16(tables.leAB[p-1][j], realB[j], lastAToEnd)
		counters.Selections++
	}
	edges = append(edges, Edge{From: lastA, To: lastAToEnd})

	lastBToEnd := endCtxt
	for i := p - 1; i >= 0; i-- {
		lastBToEnd = eval.SelectU16(tables.leBA[q-1][i], realA[i], lastBToEnd)
		counters.Selections++
	}
	edges = append(edges, Edge{From: lastB, To: lastBToEnd})

	return edges
}

// emptySideEdges handles spec 4.5's "Empty side" rule: when one side
// contributed no real events, the merged sequence is just the other
// side sandwiched by start/end, emitted with no homomorphic work.
func emptySideEdges(startCtxt, endCtxt fhe.CtxtU16, side []fhe.CtxtU16) []Edge {
	edges := make([]Edge, 0, len(side)+1)
	prev := startCtxt
	for _, act := range side {
		edges = append(edges, Edge{From: prev, To: act})
		prev = act
	}
	edges = append(edges, Edge{From: prev, To: endCtxt})
	return edges
}
