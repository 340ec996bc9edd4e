// Package model holds the plaintext data types shared by the log-loading
// adapter, the codec, and the two trace stores. Nothing in this package
// ever crosses the wire between organizations A and B.
package model

// Event is a single timestamped activity occurrence within a case.
type Event struct {
	Activity        string
	TimestampMillis uint64
}

// Case is an ordered sequence of events sharing one case ID. Events are
// assumed pre-sorted by timestamp by the caller (the eventlog loader).
type Case struct {
	CaseID string
	Events []Event
}
