// Package eventlog loads an organization's event log from disk (spec
// Section 6: "Input logs... extended structured event format, sorted by
// timestamp key time:timestamp, each trace carrying a concept:name
// attribute as the case ID and each event a concept:name activity
// attribute"). No XES/XML parser exists anywhere in the retrieved
// dependency pack, so this package reads the same log/trace/event
// shape serialized as JSON rather than hand-rolling an XML parser on
// top of the standard library; encoding/json is the narrowest possible
// stdlib surface for this boundary concern and is used nowhere else in
// the protocol's own logic.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/auroradata-ai/federated-dfg/internal/apperr"
	"github.com/auroradata-ai/federated-dfg/internal/model"
)

// rawEvent mirrors one XES <event>: a concept:name activity attribute
// and a time:timestamp attribute, here a millisecond Unix integer
// rather than XES's ISO-8601 string, since the protocol only ever
// operates on monotonic integers (spec Section 3).
type rawEvent struct {
	ConceptName   string `json:"concept:name"`
	TimeTimestamp *int64 `json:"time:timestamp"`
}

// rawTrace mirrors one XES <trace>: a case-level concept:name attribute
// plus its ordered events.
type rawTrace struct {
	ConceptName string     `json:"concept:name"`
	Events      []rawEvent `json:"events"`
}

// rawLog mirrors one XES <log>: a bare list of traces.
type rawLog struct {
	Traces []rawTrace `json:"traces"`
}

// Load reads an event log file and returns its cases, sorted by
// timestamp within each case (spec Section 3: "Events in a case are
// assumed pre-sorted by timestamp", enforced here rather than merely
// assumed, since a malformed or hand-edited log is an expected input to
// guard against). Returns apperr.ErrMalformedInput if a trace is
// missing its case ID, an event is missing its activity name, or a
// timestamp is absent.
func Load(path string) ([]model.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event log %q: %w", path, err)
	}

	var log rawLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrMalformedInput, err)
	}

	cases := make([]model.Case, 0, len(log.Traces))
	for _, t := range log.Traces {
		if t.ConceptName == "" {
			return nil, fmt.Errorf("%w: trace missing concept:name case id", apperr.ErrMalformedInput)
		}

		events := make([]model.Event, 0, len(t.Events))
		for _, e := range t.Events {
			if e.ConceptName == "" {
				return nil, fmt.Errorf("%w: event in case %q missing concept:name activity", apperr.ErrMalformedInput, t.ConceptName)
			}
			if e.TimeTimestamp == nil {
				return nil, fmt.Errorf("%w: event %q in case %q missing time:timestamp", apperr.ErrMalformedInput, e.ConceptName, t.ConceptName)
			}
			if *e.TimeTimestamp < 0 {
				return nil, fmt.Errorf("%w: event %q in case %q has negative timestamp", apperr.ErrMalformedInput, e.ConceptName, t.ConceptName)
			}
			events = append(events, model.Event{
				Activity:        e.ConceptName,
				TimestampMillis: uint64(*e.TimeTimestamp),
			})
		}

		if len(events) == 0 {
			// EmptyTrace (spec Section 7): dropped silently at load time.
			continue
		}

		sort.SliceStable(events, func(i, j int) bool {
			return events[i].TimestampMillis < events[j].TimestampMillis
		})

		cases = append(cases, model.Case{CaseID: t.ConceptName, Events: events})
	}

	return cases, nil
}
