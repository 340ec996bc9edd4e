// Package opcount tracks homomorphic-operation counts for cost
// measurement (spec 4.5: "three running counters... not part of the
// protocol output"). Each worker goroutine accumulates into its own
// Counters value and counts are summed once at the join point (spec
// Section 5: "incremented thread-locally and summed at join points to
// avoid contention"), so Counters itself needs no internal locking.
package opcount

// Counters tallies homomorphic operations issued by one worker.
type Counters struct {
	CaseIDComparisons   uint64
	TimestampComparisons uint64
	Selections          uint64
}

// Add accumulates other into c and returns c for chaining.
func (c *Counters) Add(other Counters) *Counters {
	c.CaseIDComparisons += other.CaseIDComparisons
	c.TimestampComparisons += other.TimestampComparisons
	c.Selections += other.Selections
	return c
}
