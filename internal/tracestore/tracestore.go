// Package tracestore implements spec 4.4: A's and B's per-case encoded,
// encrypted trace representations, A's sample encryptions, and B's
// sanitization of A's ciphertexts before the merge engine ever sees
// them.
package tracestore

import (
	"fmt"

	"github.com/auroradata-ai/federated-dfg/internal/apperr"
	"github.com/auroradata-ai/federated-dfg/internal/codec"
	"github.com/auroradata-ai/federated-dfg/internal/fhe"
	"github.com/auroradata-ai/federated-dfg/internal/model"
)

// MaxTimestamp is the sentinel "infinity" timestamp appended with the
// end event (spec 4.4: "where infinity is the maximum representable
// timestamp").
const MaxTimestamp uint64 = ^uint64(0)

// SampleEncryptions is A's published encryption of every code in the
// table, code 0..K-1, so B can encode its own events without ever
// holding private-key encryption capability.
type SampleEncryptions map[uint16]fhe.CtxtU16

// BuildSampleEncryptions has A encrypt every code of the agreed table
// (spec 4.7 step 3: "A builds code table and publishes sample
// encryptions").
func BuildSampleEncryptions(eval fhe.Evaluator, table *codec.Table) SampleEncryptions {
	out := make(SampleEncryptions, table.Size())
	for _, code := range table.Codes() {
		out[code] = eval.EncryptU16(code)
	}
	return out
}

// Validate checks that A's published sample encryptions cover exactly
// the codes 0..K-1 (spec 4.4: "A's sample encryptions are checked such
// that every published code is <= K; on failure the protocol aborts").
func Validate(samples SampleEncryptions, table *codec.Table) error {
	for code := 0; code < table.Size(); code++ {
		if _, ok := samples[uint16(code)]; !ok {
			return fmt.Errorf("%w: missing code %d", apperr.ErrMalformedSamples, code)
		}
	}
	for code := range samples {
		if int(code) >= table.Size() {
			return fmt.Errorf("%w: code %d exceeds table size %d", apperr.ErrMalformedSamples, code, table.Size())
		}
	}
	return nil
}

// EncryptedTrace is A's fully private-key-encrypted per-case vector,
// sandwiched by encrypted start/end sentinels.
type EncryptedTrace struct {
	Activities []fhe.CtxtU16
	Timestamps []fhe.CtxtU64
}

// EncryptCase encodes and encrypts one of A's shared-set cases,
// producing the sentinel-sandwiched sequence spec 4.4 describes.
func EncryptCase(eval fhe.Evaluator, table *codec.Table, c model.Case) (EncryptedTrace, error) {
	codes, timestamps, err := codec.EncodeTrace(c.Events, table)
	if err != nil {
		return EncryptedTrace{}, err
	}

	trace := EncryptedTrace{
		Activities: make([]fhe.CtxtU16, 0, len(codes)+2),
		Timestamps: make([]fhe.CtxtU64, 0, len(codes)+2),
	}
	trace.Activities = append(trace.Activities, eval.EncryptU16(codec.StartCode))
	trace.Timestamps = append(trace.Timestamps, eval.EncryptU64(0))
	for i, code := range codes {
		trace.Activities = append(trace.Activities, eval.EncryptU16(code))
		trace.Timestamps = append(trace.Timestamps, eval.EncryptU64(timestamps[i]))
	}
	trace.Activities = append(trace.Activities, eval.EncryptU16(codec.EndCode))
	trace.Timestamps = append(trace.Timestamps, eval.EncryptU64(MaxTimestamp))
	return trace, nil
}

// Sanitize obliviously clamps any activity code at or above the table
// size to the end code (spec 4.4 / error kind OutOfRangeCiphertext:
// "non-fatal; obliviously clamped to end code"), defending against a
// malicious A without ever revealing to B which entries were clamped.
func Sanitize(eval fhe.Evaluator, table *codec.Table, trace EncryptedTrace) EncryptedTrace {
	maxValid := eval.EncryptU16(uint16(table.Size() - 1))
	endCode := eval.EncryptU16(codec.EndCode)

	sanitized := EncryptedTrace{
		Activities: make([]fhe.CtxtU16, len(trace.Activities)),
		Timestamps: trace.Timestamps,
	}
	for i, act := range trace.Activities {
		inRange := eval.LE16(act, maxValid)
		sanitized.Activities[i] = eval.SelectU16(inRange, act, endCode)
	}
	return sanitized
}

// MixedTrace is B's per-case vector: activity ciphertexts copied from
// A's sample encryptions, timestamps held in plaintext since B owns
// the event (spec 4.4: "the façade's le and eq accept mixed
// ciphertext/plaintext").
type MixedTrace struct {
	Activities []fhe.CtxtU16
	Timestamps []uint64
}

// EncodeCase builds B's mixed-representation trace for one of its own
// cases, using A's sample encryptions for the activity ciphertexts and
// sandwiching the sequence with start/end sentinels.
func EncodeCase(samples SampleEncryptions, table *codec.Table, c model.Case) (MixedTrace, error) {
	codes, timestamps, err := codec.EncodeTrace(c.Events, table)
	if err != nil {
		return MixedTrace{}, err
	}

	trace := MixedTrace{
		Activities: make([]fhe.CtxtU16, 0, len(codes)+2),
		Timestamps: make([]uint64, 0, len(codes)+2),
	}
	trace.Activities = append(trace.Activities, samples[codec.StartCode])
	trace.Timestamps = append(trace.Timestamps, 0)
	for i, code := range codes {
		trace.Activities = append(trace.Activities, samples[code])
		trace.Timestamps = append(trace.Timestamps, timestamps[i])
	}
	trace.Activities = append(trace.Activities, samples[codec.EndCode])
	trace.Timestamps = append(trace.Timestamps, MaxTimestamp)
	return trace, nil
}
