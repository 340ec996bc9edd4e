// Package psi implements the private set intersection step of spec 4.3:
// deciding which of A's cases also appear in B's log, without B ever
// learning which of A's cases matched or how many did. Case IDs are
// reduced to 64-bit keyed hashes before any comparison, grounded on the
// teacher's hash-then-compare PSI flow (internal/server/psi.go's
// RunPSIReceiver/RunPSISender), replacing its Diffie-Hellman blinding
// with the homomorphic equality test the FHE façade provides.
package psi

import (
	"encoding/binary"

	"github.com/auroradata-ai/federated-dfg/internal/fhe"
	"github.com/auroradata-ai/federated-dfg/internal/model"
	"github.com/auroradata-ai/federated-dfg/internal/opcount"
	"github.com/zeebo/blake3"
)

// hashMask keeps the low 53 bits of the blake3 digest: the CKKS façade
// encodes a uint64 as float64(v) (ckksfhe.go's encodeEncrypt), and 53
// bits is the largest integer width float64 represents exactly. Masking
// here, once, rather than truncating silently at encode time keeps the
// collision-resistance tradeoff explicit: birthday bound for a 53-bit
// space is ~2^26.5 cases before a collision becomes likely, far past any
// real event log's case count.
const hashMask = (1 << 53) - 1

// HashCaseID reduces a case ID to a 64-bit value under a shared 32-byte
// key, the same construction the teacher's tokenizer uses for
// deterministic blinded identifiers (internal/crypto/tokenizer.go),
// swapped to blake3's keyed mode (github.com/zeebo/blake3) since the
// teacher's HMAC-SHA256 carries no PSI-specific advantage here and
// blake3 is already in the dependency pack via lattigo's own use of it
// for CRS seeding. The result is masked to hashMask bits so it round-trips
// exactly through the CKKS façade's float64 encoding.
func HashCaseID(key [32]byte, caseID string) uint64 {
	h := blake3.NewKeyed(key[:])
	_, _ = h.Write([]byte(caseID))
	digest := h.Sum(nil)
	return binary.BigEndian.Uint64(digest[:8]) & hashMask
}

// HashCases hashes every case's ID, preserving slice order so the
// result can be zipped back up with the originating cases.
func HashCases(key [32]byte, cases []model.Case) []uint64 {
	hashes := make([]uint64, len(cases))
	for i, c := range cases {
		hashes[i] = HashCaseID(key, c.CaseID)
	}
	return hashes
}

// EncryptHashes encrypts a slice of hashed case IDs under the given
// evaluator. Either party can call this: encryption only requires the
// public/evaluation key, never the private key.
func EncryptHashes(eval fhe.Evaluator, hashes []uint64) []fhe.CtxtU64 {
	out := make([]fhe.CtxtU64, len(hashes))
	for i, h := range hashes {
		out[i] = eval.EncryptU64(h)
	}
	return out
}

// MatchMask computes, for each of A's encrypted case-ID hashes, an
// encrypted boolean that is true iff that hash equals one of B's own
// (plaintext-known, freshly encrypted) hashes. It never branches on a
// comparison result and never returns early: the same fixed number of
// equality tests runs for every entry in foreignHashes regardless of
// how many (if any) actually match, mirroring
// organization_struct.rs's has_matching_case_id fold.
func MatchMask(eval fhe.Evaluator, foreignHashes []fhe.CtxtU64, ownHashes []uint64, counters *opcount.Counters) []fhe.CtxtBool {
	ownEncrypted := make([]fhe.CtxtU64, len(ownHashes))
	for i, h := range ownHashes {
		ownEncrypted[i] = eval.EncryptU64(h)
	}

	result := make([]fhe.CtxtBool, len(foreignHashes))
	for i, fh := range foreignHashes {
		acc := eval.EncryptBool(false)
		for _, oh := range ownEncrypted {
			eq := eval.EqU64(fh, oh)
			counters.CaseIDComparisons++
			acc = eval.SelectBool(eq, eval.EncryptBool(true), acc)
			counters.Selections++
		}
		result[i] = acc
	}
	return result
}

// DecryptMask reveals which entries matched. Only A, the private-key
// holder, ever calls this: B computes MatchMask but cannot decrypt its
// own output, which is the entire point (spec 4.3: B never learns the
// intersection, only A does, by design of which party holds the
// decryption capability).
func DecryptMask(eval fhe.Evaluator, mask []fhe.CtxtBool) []bool {
	out := make([]bool, len(mask))
	for i, m := range mask {
		out[i] = eval.DecryptBool(m)
	}
	return out
}
