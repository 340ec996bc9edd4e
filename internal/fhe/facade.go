// Package fhe provides the abstract FHE capability set the rest of the
// protocol is built against (spec 4.2): encrypt/decrypt, homomorphic
// comparison, and oblivious selection over small unsigned integers and
// booleans. Nothing outside this package ever imports a concrete FHE
// library directly — the merge engine, trace stores, and PSI module
// only see the Evaluator interface, so the same code runs unchanged
// against the trivial debug backend (trivial.go) or the CKKS production
// backend (ckksfhe.go).
package fhe

// CtxtU16 is an opaque ciphertext of a uint16 (an activity code).
type CtxtU16 interface{ ctxtU16() }

// CtxtU64 is an opaque ciphertext of a uint64 (a millisecond timestamp
// or a 64-bit case-ID hash).
type CtxtU64 interface{ ctxtU64() }

// CtxtBool is an opaque ciphertext of a boolean.
type CtxtBool interface{ ctxtBool() }

// Evaluator is the capability set of spec 4.2. Every method must be
// data-independent in both time and memory: the sequence and shape of
// operations performed must not depend on any plaintext value.
type Evaluator interface {
	// EncryptU16 encrypts a code under this evaluator's key. Encryption
	// needs no private key: A uses it to encrypt its traces and sample
	// encryptions, B to encrypt the constants of its sanitization clamp.
	EncryptU16(code uint16) CtxtU16
	// EncryptU64 encrypts a timestamp or hash under this evaluator's key.
	EncryptU64(v uint64) CtxtU64
	// EncryptBool encrypts a boolean under this evaluator's key.
	EncryptBool(b bool) CtxtBool

	// DecryptU16 and DecryptBool are only ever called by the private-key
	// holder (A); B never has the capability to decrypt.
	DecryptU16(c CtxtU16) uint16
	DecryptBool(c CtxtBool) bool

	// LE64 computes a <= b (less-than-or-equal), the tie-break used
	// throughout the merge engine favors the left-hand operand (spec's
	// Open Question 1: ties resolve to A when A's timestamp is passed
	// as the left operand).
	LE64(a, b CtxtU64) CtxtBool
	// LE16 is the uint16 specialization of the same comparison concept,
	// used only by the sanitization clamp (spec 4.4), which spec 4.2
	// describes abstractly as "le" without constraining the operand width.
	LE16(a, b CtxtU16) CtxtBool
	// EqU64 computes a == b, used by the PSI module on hashed case IDs.
	EqU64(a, b CtxtU64) CtxtBool
	// EqU16 computes a == b over codes. Sample-encryption validation
	// (tracestore.Validate) checks only which codes are present and does
	// not call it.
	EqU16(a, b CtxtU16) CtxtBool

	// Not negates a boolean ciphertext.
	Not(c CtxtBool) CtxtBool

	// SelectU16 is the oblivious ternary c ? x : y over codes.
	SelectU16(cond CtxtBool, x, y CtxtU16) CtxtU16
	// SelectBool is the oblivious ternary c ? x : y over booleans, used
	// to fold a chain of equality tests into a single match bit without
	// ever branching on a plaintext comparison result (spec 4.3's PSI
	// OR-fold; the merge engine selects only codes, via SelectU16).
	SelectBool(cond, x, y CtxtBool) CtxtBool
}
