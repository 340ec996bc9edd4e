// Package codec implements the activity-encoding agreement (spec 4.1):
// a bijection between activity names and small integer codes, shared by
// both organizations before any trace data is encrypted.
package codec

import (
	"fmt"
	"sort"

	"github.com/auroradata-ai/federated-dfg/internal/apperr"
	"github.com/auroradata-ai/federated-dfg/internal/model"
)

// Reserved sentinel codes (spec Section 3).
const (
	StartCode uint16 = 0
	EndCode   uint16 = 1
	StartName        = "start"
	EndName          = "end"

	// firstRealCode is the first code available to a real activity name.
	firstRealCode uint16 = 2

	// MaxCode is the largest representable code count (spec: |codes| = K <= 2^16).
	MaxCode = 1 << 16
)

// Table is the agreed bijection name <-> code for one protocol run.
// Codes 0 and 1 are always "start" and "end"; codes 2..K-1 cover the
// union of both organizations' real activity names in deterministic
// (lexicographic) order, so that A and B derive an identical table from
// the same two activity sets regardless of iteration order.
type Table struct {
	nameToCode map[string]uint16
	codeToName map[uint16]string
}

// Build constructs the canonical code table from the union of two
// activity-name sets (spec 4.7 step 3: "A builds code table").
func Build(activitiesA, activitiesB map[string]struct{}) *Table {
	union := make(map[string]struct{}, len(activitiesA)+len(activitiesB))
	for a := range activitiesA {
		union[a] = struct{}{}
	}
	for a := range activitiesB {
		union[a] = struct{}{}
	}

	names := make([]string, 0, len(union))
	for name := range union {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &Table{
		nameToCode: make(map[string]uint16, len(names)+2),
		codeToName: make(map[uint16]string, len(names)+2),
	}
	t.nameToCode[StartName] = StartCode
	t.nameToCode[EndName] = EndCode
	t.codeToName[StartCode] = StartName
	t.codeToName[EndCode] = EndName

	for i, name := range names {
		code := firstRealCode + uint16(i)
		t.nameToCode[name] = code
		t.codeToName[code] = name
	}
	return t
}

// Size returns K, the total number of codes (real activities + 2 sentinels).
func (t *Table) Size() int { return len(t.nameToCode) }

// Code looks up the code for an activity name. Returns apperr.ErrUnknownActivity
// if the name was not part of the agreed union (spec 4.1, fatal).
func (t *Table) Code(name string) (uint16, error) {
	code, ok := t.nameToCode[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", apperr.ErrUnknownActivity, name)
	}
	return code, nil
}

// Name looks up the activity name for a code. Codes outside the table
// (e.g. produced by a malformed peer) return ok=false.
func (t *Table) Name(code uint16) (string, bool) {
	name, ok := t.codeToName[code]
	return name, ok
}

// Codes returns every code in the table, including the two sentinels.
func (t *Table) Codes() []uint16 {
	codes := make([]uint16, 0, len(t.codeToName))
	for c := range t.codeToName {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// EncodeTrace maps each event's activity name to its code (spec 4.1's
// encode_trace operation). Timestamps pass through unchanged.
func EncodeTrace(events []model.Event, table *Table) ([]uint16, []uint64, error) {
	codes := make([]uint16, len(events))
	timestamps := make([]uint64, len(events))
	for i, e := range events {
		code, err := table.Code(e.Activity)
		if err != nil {
			return nil, nil, err
		}
		codes[i] = code
		timestamps[i] = e.TimestampMillis
	}
	return codes, timestamps, nil
}

// ActivitySet collects the distinct activity names appearing in a set of
// cases, used to agree on the code table (spec 4.7 step 3).
func ActivitySet(cases []model.Case) map[string]struct{} {
	set := make(map[string]struct{})
	for _, c := range cases {
		for _, e := range c.Events {
			set[e.Activity] = struct{}{}
		}
	}
	return set
}
