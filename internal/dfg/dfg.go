// Package dfg defines the protocol's output type, the Directly-Follows
// Graph, and its canonical JSON serialization (spec Section 6).
package dfg

import (
	"encoding/json"
	"os"
	"sort"
)

// DFG is a directly-follows graph: vertices are activity names carrying
// an occurrence frequency, edges are ordered activity pairs carrying a
// traversal frequency, and two sets mark which activities ever open or
// close a case.
type DFG struct {
	Activities     map[string]uint64    `json:"activities"`
	Edges          map[Edge]uint64      `json:"-"`
	StartActivities map[string]struct{} `json:"-"`
	EndActivities   map[string]struct{} `json:"-"`
}

// Edge is a directed activity pair (from -> to).
type Edge struct {
	From string
	To   string
}

// New returns an empty DFG ready for accumulation.
func New() *DFG {
	return &DFG{
		Activities:      make(map[string]uint64),
		Edges:           make(map[Edge]uint64),
		StartActivities: make(map[string]struct{}),
		EndActivities:   make(map[string]struct{}),
	}
}

// AddEdge records one observed directly-follows occurrence of from -> to
// by incrementing that edge's frequency. Activity counts are not touched
// here; Recount derives them from the edges once all edges are
// accumulated.
func (g *DFG) AddEdge(from, to string) {
	g.Edges[Edge{from, to}]++
}

// MarkStart records that an activity opens at least one case.
func (g *DFG) MarkStart(activity string) { g.StartActivities[activity] = struct{}{} }

// MarkEnd records that an activity closes at least one case.
func (g *DFG) MarkEnd(activity string) { g.EndActivities[activity] = struct{}{} }

// Recount restores the invariant activities[v] = max(sum of incoming
// edge frequencies, sum of outgoing edge frequencies) for every vertex
// that appears in at least one edge, plus every vertex explicitly marked
// start or end. A vertex's true occurrence count in a directly-follows
// graph is bounded below by whichever direction's edges were observed;
// the two can differ only at trace boundaries, which start/end
// membership already accounts for.
func (g *DFG) Recount() {
	in := make(map[string]uint64)
	out := make(map[string]uint64)
	for e, freq := range g.Edges {
		out[e.From] += freq
		in[e.To] += freq
	}

	counts := make(map[string]uint64)
	for v, c := range in {
		counts[v] = c
	}
	for v, c := range out {
		if c > counts[v] {
			counts[v] = c
		}
	}
	for v := range g.StartActivities {
		if _, ok := counts[v]; !ok {
			counts[v] = 0
		}
	}
	for v := range g.EndActivities {
		if _, ok := counts[v]; !ok {
			counts[v] = 0
		}
	}

	g.Activities = counts
}

// marshalable is the canonical wire shape: edges serialize as an array
// of {from, to, count} objects since Go map keys can't be structs in
// encoding/json, and the two activity sets serialize as sorted string
// arrays for deterministic output.
type marshalable struct {
	Activities      map[string]uint64 `json:"activities"`
	Edges           []edgeJSON        `json:"edges"`
	StartActivities []string          `json:"start_activities"`
	EndActivities   []string          `json:"end_activities"`
}

type edgeJSON struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count uint64 `json:"count"`
}

// MarshalJSON implements the canonical DFG JSON schema (spec Section 6).
func (g *DFG) MarshalJSON() ([]byte, error) {
	m := marshalable{
		Activities:      g.Activities,
		Edges:           make([]edgeJSON, 0, len(g.Edges)),
		StartActivities: sortedKeys(g.StartActivities),
		EndActivities:   sortedKeys(g.EndActivities),
	}
	for e, count := range g.Edges {
		m.Edges = append(m.Edges, edgeJSON{From: e.From, To: e.To, Count: count})
	}
	sortEdges(m.Edges)
	return json.MarshalIndent(m, "", "  ")
}

// UnmarshalJSON restores a DFG from its canonical wire form.
func (g *DFG) UnmarshalJSON(data []byte) error {
	var m marshalable
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	g.Activities = m.Activities
	g.Edges = make(map[Edge]uint64, len(m.Edges))
	for _, e := range m.Edges {
		g.Edges[Edge{e.From, e.To}] = e.Count
	}
	g.StartActivities = toSet(m.StartActivities)
	g.EndActivities = toSet(m.EndActivities)
	return nil
}

// WriteFile serializes the DFG to path as UTF-8 JSON text.
func (g *DFG) WriteFile(path string) error {
	data, err := g.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func sortEdges(edges []edgeJSON) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
}
