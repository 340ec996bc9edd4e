package fhe

import (
	"math"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/ckks"
)

// CKKS is the production backend, built on the CKKS approximate scheme
// (github.com/tuneinsight/lattigo/v5). It is deliberately NOT built on
// top of circuits/ckks/comparison or circuits/minimax: both require a
// full bootstrapping evaluator to restore levels across a composite
// polynomial, which is a lot of extra machinery for the shallow,
// fixed-depth circuit this protocol actually needs (one comparison per
// event pair, never chained across more than a handful of
// multiplications). Instead, sign/comparison is approximated here with
// a low-degree, hand-rolled odd polynomial, which stays within the
// parameters' native multiplicative depth and needs no bootstrapping.
//
// Every plaintext value (a code, a timestamp, a boolean) is encoded
// into slot 0 of its own ciphertext; the remaining slots are unused.
// This sacrifices the batching CKKS is built for, but the protocol's
// comparisons are inherently scalar-to-scalar, and keeping one value
// per ciphertext keeps the oblivious-select algebra (spec 4.5) simple
// and auditable.
type CKKS struct {
	params    ckks.Parameters
	encoder   *ckks.Encoder
	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor
	evaluator *ckks.Evaluator

	// signDegree controls the odd-polynomial sign approximation used by
	// LE64/LE16. Higher degree sharpens the approximation near zero at
	// the cost of multiplicative depth; 7 is enough to separate any two
	// distinct int64-scaled inputs at this scheme's default precision.
	signDegree int
}

// NewCKKS builds a production evaluator from an already-generated key
// pair. The evaluation key set carries the relinearization key needed
// after every ciphertext-ciphertext multiplication in the sign
// approximation.
func NewCKKS(params ckks.Parameters, encoder *ckks.Encoder, encryptor *rlwe.Encryptor, decryptor *rlwe.Decryptor, evk rlwe.EvaluationKeySet) *CKKS {
	return &CKKS{
		params:     params,
		encoder:    encoder,
		encryptor:  encryptor,
		decryptor:  decryptor,
		evaluator:  ckks.NewEvaluator(params, evk),
		signDegree: 7,
	}
}

// Rescale budget backing DefaultParamsLiteral's modulus chain. signIterations
// matches signDegree/2 in NewCKKS (each iteration of the Newton sign
// recurrence spends one level on the square, one on the product with cur,
// one on the final halving). leRescales adds the one level that scales the
// raw difference into the polynomial's [-1, 1] convergence interval
// (scaleToUnitInterval) plus the one that turns sign(x) into step(x).
// eqRescales accounts for eq() running le() in both directions and relinearizing
// their product. selectHeadroomRescales budgets for chaining SelectU16 calls
// downstream of one comparison (the per-case fold of spec 4.5, the PSI
// OR-fold of spec 4.3): each chained select spends one more level, so this
// backend is sized for traces/hash batches of roughly that many events, not
// unbounded chains — a deeper circuit would need the pack's bootstrapping
// evaluator, which NewCKKSDefault deliberately does not pull in.
const (
	signIterations         = 7 / 2
	leRescales             = 1 + signIterations*3 + 1
	eqRescales             = 2*leRescales + 1
	selectHeadroomRescales = 20
	circuitDepth           = eqRescales + selectHeadroomRescales
)

// DefaultParamsLiteral is a single-slot-friendly parameter set sized for
// circuitDepth levels at 128-bit-class security. tuneinsight-lattigo's own
// Chebyshev example (examples/ckks/examples_ckks.go) evaluates its
// polynomial over inputs pre-scaled to [-1, 1]; DefaultParamsLiteral and
// le/eq below follow that same normalize-then-approximate discipline rather
// than feeding raw, unbounded differences into the sign polynomial.
func DefaultParamsLiteral() ckks.ParametersLiteral {
	logQ := make([]int, 0, circuitDepth+1)
	logQ = append(logQ, 60) // top modulus: holds the initial scale plus message headroom
	for i := 0; i < circuitDepth; i++ {
		logQ = append(logQ, 40)
	}
	return ckks.ParametersLiteral{
		LogN:            16,
		LogQ:            logQ,
		LogP:            []int{61, 61, 61},
		LogDefaultScale: 40,
	}
}

// NewCKKSDefault generates a fresh key pair and relinearization key
// under DefaultParamsLiteral and returns a ready-to-use production
// evaluator. The returned evaluator holds both the secret and public
// key: within this single-process protocol run it plays both A's role
// (encryption and decryption) and B's role (encryption only, via the
// same Evaluator interface B is handed); cmd/federated-dfg is the only
// caller that ever sees the secret key exists.
func NewCKKSDefault() (*CKKS, error) {
	params, err := ckks.NewParametersFromLiteral(DefaultParamsLiteral())
	if err != nil {
		return nil, err
	}

	kgen := rlwe.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	rlk := kgen.GenRelinearizationKeyNew(sk)
	evk := rlwe.NewMemEvaluationKeySet(rlk)

	encoder := ckks.NewEncoder(params)
	encryptor := rlwe.NewEncryptor(params, pk)
	decryptor := rlwe.NewDecryptor(params, sk)

	return NewCKKS(params, encoder, encryptor, decryptor, evk), nil
}

type ckksCtxt struct{ ct *rlwe.Ciphertext }

func (ckksCtxt) ctxtU16()   {}
func (ckksCtxt) ctxtU64()   {}
func (ckksCtxt) ctxtBool()  {}

func (e *CKKS) encodeEncrypt(v float64) CtxtU16 {
	pt := ckks.NewPlaintext(e.params, e.params.MaxLevel())
	values := make([]float64, 1<<e.params.LogMaxSlots())
	values[0] = v
	if err := e.encoder.Encode(values, pt); err != nil {
		panic(err)
	}
	ct, err := e.encryptor.EncryptNew(pt)
	if err != nil {
		panic(err)
	}
	return ckksCtxt{ct}
}

func (e *CKKS) decode(c *rlwe.Ciphertext) float64 {
	pt := e.decryptor.DecryptNew(c)
	values := make([]float64, 1<<e.params.LogMaxSlots())
	if err := e.encoder.Decode(pt, values); err != nil {
		panic(err)
	}
	return values[0]
}

func (e *CKKS) EncryptU16(code uint16) CtxtU16 { return e.encodeEncrypt(float64(code)) }
func (e *CKKS) EncryptU64(v uint64) CtxtU64    { return e.encodeEncrypt(float64(v)) }
func (e *CKKS) EncryptBool(b bool) CtxtBool {
	if b {
		return e.encodeEncrypt(1)
	}
	return e.encodeEncrypt(0)
}

func (e *CKKS) DecryptU16(c CtxtU16) uint16 {
	return uint16(math.Round(e.decode(c.(ckksCtxt).ct)))
}

// DecryptBool thresholds at 0.5. le's tieBias already resolves an exact
// tie to step ~= 1 rather than the polynomial's natural 0.5, but the
// >= keeps this robust to approximation noise landing a hair under 0.5
// on a genuine tie.
func (e *CKKS) DecryptBool(c CtxtBool) bool {
	return e.decode(c.(ckksCtxt).ct) >= 0.5
}

// domain bounds normalize a raw difference into the sign polynomial's
// [-1, 1] convergence interval: diff/bound must stay within that interval
// for every value this protocol ever compares, or sign diverges instead of
// converging.
const (
	// codeBound covers activity codes (uint16): |b-a| < 2^16.
	codeBound float64 = 1 << 16
	// timestampBound covers real event timestamps in milliseconds. The
	// merge engine's comparison tables (merge.go buildTables) are only ever
	// built from realTA/realTB — the sentinel start/end timestamps (0 and
	// tracestore.MaxTimestamp) are stripped before LE64 is ever called, so
	// this bound only has to cover genuine event timestamps, not the
	// infinite end sentinel.
	timestampBound float64 = 1 << 53
	// hashBound covers blake3-derived case-ID hashes. psi.HashCaseID masks
	// its digest to 53 bits before this backend ever sees it (the largest
	// integer width float64's encodeEncrypt round-trips exactly), so the
	// bound matches that masked range rather than the full uint64 range.
	hashBound float64 = 1 << 53
)

// scaleToUnitInterval divides diff by bound so it falls inside the sign
// polynomial's convergence interval without changing its sign.
func (e *CKKS) scaleToUnitInterval(diff *rlwe.Ciphertext, bound float64) *rlwe.Ciphertext {
	scaled, err := e.evaluator.MulNew(diff, 1.0/bound)
	if err != nil {
		panic(err)
	}
	if err := e.evaluator.Rescale(scaled, scaled); err != nil {
		panic(err)
	}
	return scaled
}

// sign approximates sign(x) in [-1, 1] for x in [-1, 1] with the
// classic odd-polynomial Newton iteration x <- x*(3 - x^2)/2, applied
// signDegree/2 times. Each iteration pushes x closer to +-1 away from
// zero, converging fastest near the boundary this protocol actually
// exercises (x close to zero only when two timestamps are equal, where
// the tie-break favors the left operand per the <= semantics below).
// Callers must pre-scale x into [-1, 1] (see scaleToUnitInterval); this
// function does no normalization of its own.
func (e *CKKS) sign(x *rlwe.Ciphertext) *rlwe.Ciphertext {
	cur := x
	for i := 0; i < e.signDegree/2; i++ {
		x2, err := e.evaluator.MulRelinNew(cur, cur)
		if err != nil {
			panic(err)
		}
		if err := e.evaluator.Rescale(x2, x2); err != nil {
			panic(err)
		}
		three := e.encodeEncrypt(3).(ckksCtxt).ct
		diff, err := e.evaluator.SubNew(three, x2)
		if err != nil {
			panic(err)
		}
		prod, err := e.evaluator.MulRelinNew(cur, diff)
		if err != nil {
			panic(err)
		}
		if err := e.evaluator.Rescale(prod, prod); err != nil {
			panic(err)
		}
		half, err := e.evaluator.MulNew(prod, 0.5)
		if err != nil {
			panic(err)
		}
		if err := e.evaluator.Rescale(half, half); err != nil {
			panic(err)
		}
		cur = half
	}
	return cur
}

// tieBias is half the smallest nonzero gap between any two values this
// backend ever compares (codes, millisecond timestamps, and blake3 hashes
// are all integer-valued, so that gap is 1). Added to the raw difference
// before scaling, it pushes an exact tie (diff == 0) to a small positive
// value without ever being large enough to flip the sign of a genuine
// difference — so sign(b-a) resolves to +1, not 0, when a == b.
const tieBias = 0.5

// le computes a <= b for two scalar-encoded ciphertexts by approximating
// step(b - a) = (sign(b-a) + 1) / 2. tieBias is folded into the
// difference first so an exact tie resolves to step == 1 rather than the
// polynomial's natural sign(0) == 0 — matching the tie-break-favors-left
// convention used throughout the merge engine, and letting eq's
// le(a,b)*le(b,a) product equal 1 (not 0.25) when a == b. The biased
// difference is then normalized by bound into the sign polynomial's
// convergence interval (scaleToUnitInterval); bound must exceed the
// largest |b-a| this call can ever see, or sign diverges instead of
// converging.
func (e *CKKS) le(a, b *rlwe.Ciphertext, bound float64) *rlwe.Ciphertext {
	diff, err := e.evaluator.SubNew(b, a)
	if err != nil {
		panic(err)
	}
	bias := e.encodeEncrypt(tieBias).(ckksCtxt).ct
	biased, err := e.evaluator.AddNew(diff, bias)
	if err != nil {
		panic(err)
	}
	scaled := e.scaleToUnitInterval(biased, bound)
	s := e.sign(scaled)
	one := e.encodeEncrypt(1).(ckksCtxt).ct
	sum, err := e.evaluator.AddNew(s, one)
	if err != nil {
		panic(err)
	}
	half, err := e.evaluator.MulNew(sum, 0.5)
	if err != nil {
		panic(err)
	}
	if err := e.evaluator.Rescale(half, half); err != nil {
		panic(err)
	}
	return half
}

func (e *CKKS) LE64(a, b CtxtU64) CtxtBool {
	return ckksCtxt{e.le(a.(ckksCtxt).ct, b.(ckksCtxt).ct, timestampBound)}
}

func (e *CKKS) LE16(a, b CtxtU16) CtxtBool {
	return ckksCtxt{e.le(a.(ckksCtxt).ct, b.(ckksCtxt).ct, codeBound)}
}

// eq computes a == b as le(a,b) * le(b,a): both directions hold only
// when the values coincide (up to the sign approximation's precision).
func (e *CKKS) eq(a, b *rlwe.Ciphertext, bound float64) *rlwe.Ciphertext {
	leAB := e.le(a, b, bound)
	leBA := e.le(b, a, bound)
	prod, err := e.evaluator.MulRelinNew(leAB, leBA)
	if err != nil {
		panic(err)
	}
	if err := e.evaluator.Rescale(prod, prod); err != nil {
		panic(err)
	}
	return prod
}

func (e *CKKS) EqU64(a, b CtxtU64) CtxtBool {
	return ckksCtxt{e.eq(a.(ckksCtxt).ct, b.(ckksCtxt).ct, hashBound)}
}

func (e *CKKS) EqU16(a, b CtxtU16) CtxtBool {
	return ckksCtxt{e.eq(a.(ckksCtxt).ct, b.(ckksCtxt).ct, codeBound)}
}

func (e *CKKS) Not(c CtxtBool) CtxtBool {
	one := e.encodeEncrypt(1).(ckksCtxt).ct
	diff, err := e.evaluator.SubNew(one, c.(ckksCtxt).ct)
	if err != nil {
		panic(err)
	}
	return ckksCtxt{diff}
}

// SelectU16 implements the oblivious ternary select(cond, x, y) as the
// arithmetic mux cond*x + (1-cond)*y, the same identity the teacher's
// retrieved FHE examples (tuneinsight-lattigo's PSI circuits) use for
// branch-free evaluation: no comparison result, and so no timing or
// memory-access signal, ever depends on plaintext data.
func (e *CKKS) SelectU16(cond CtxtBool, x, y CtxtU16) CtxtU16 {
	c := cond.(ckksCtxt).ct
	xv := x.(ckksCtxt).ct
	yv := y.(ckksCtxt).ct

	cx, err := e.evaluator.MulRelinNew(c, xv)
	if err != nil {
		panic(err)
	}
	if err := e.evaluator.Rescale(cx, cx); err != nil {
		panic(err)
	}

	notC := e.Not(cond).(ckksCtxt).ct
	ncy, err := e.evaluator.MulRelinNew(notC, yv)
	if err != nil {
		panic(err)
	}
	if err := e.evaluator.Rescale(ncy, ncy); err != nil {
		panic(err)
	}

	sum, err := e.evaluator.AddNew(cx, ncy)
	if err != nil {
		panic(err)
	}
	return ckksCtxt{sum}
}

// SelectBool is the same arithmetic mux as SelectU16, specialized to
// boolean-encoded ciphertexts (which share the same scalar-slot
// encoding as codes and timestamps in this backend).
func (e *CKKS) SelectBool(cond, x, y CtxtBool) CtxtBool {
	r := e.SelectU16(cond, CtxtU16(x.(ckksCtxt)), CtxtU16(y.(ckksCtxt)))
	return CtxtBool(r.(ckksCtxt))
}
