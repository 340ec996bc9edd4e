// Package apperr defines the fatal and non-fatal error kinds of the
// protocol (spec Section 7). Callers use errors.Is against these
// sentinels to decide exit codes; there are no retries anywhere.
package apperr

import "errors"

var (
	// ErrMalformedInput marks a log that is missing a required attribute
	// (concept:name) or carries an unparseable timestamp. Fatal, surfaces
	// before the protocol begins.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUnknownActivity marks an activity name absent from the agreed
	// code table during encoding. Fatal: indicates a code-table/log
	// mismatch, never expected in a correctly driven protocol run.
	ErrUnknownActivity = errors.New("unknown activity")

	// ErrMalformedSamples marks a sample-encryption map published by A
	// that contains a code >= K or is missing a code. Fatal at B, aborts
	// the protocol before any trace data is exchanged.
	ErrMalformedSamples = errors.New("malformed sample encryptions")
)
