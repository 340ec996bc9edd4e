package fhe_test

import (
	"testing"

	"github.com/auroradata-ai/federated-dfg/internal/fhe"
	"github.com/stretchr/testify/require"
)

func TestTrivialRoundTrip(t *testing.T) {
	eval := fhe.NewTrivial()

	c := eval.EncryptU16(42)
	require.Equal(t, uint16(42), eval.DecryptU16(c))

	b := eval.EncryptBool(true)
	require.True(t, eval.DecryptBool(b))
}

func TestTrivialComparisons(t *testing.T) {
	eval := fhe.NewTrivial()

	lo := eval.EncryptU64(5)
	hi := eval.EncryptU64(10)

	require.True(t, eval.DecryptBool(eval.LE64(lo, hi)))
	require.False(t, eval.DecryptBool(eval.LE64(hi, lo)))
	require.True(t, eval.DecryptBool(eval.LE64(lo, lo)), "le must hold on equal operands (tie-break favors left)")

	require.True(t, eval.DecryptBool(eval.EqU64(lo, lo)))
	require.False(t, eval.DecryptBool(eval.EqU64(lo, hi)))
}

func TestTrivialSelect(t *testing.T) {
	eval := fhe.NewTrivial()
	x := eval.EncryptU16(1)
	y := eval.EncryptU16(2)

	require.Equal(t, uint16(1), eval.DecryptU16(eval.SelectU16(eval.EncryptBool(true), x, y)))
	require.Equal(t, uint16(2), eval.DecryptU16(eval.SelectU16(eval.EncryptBool(false), x, y)))
}

func TestTrivialNot(t *testing.T) {
	eval := fhe.NewTrivial()
	require.False(t, eval.DecryptBool(eval.Not(eval.EncryptBool(true))))
	require.True(t, eval.DecryptBool(eval.Not(eval.EncryptBool(false))))
}
