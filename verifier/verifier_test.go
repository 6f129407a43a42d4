package verifier

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

var accept = Func(func([]*big.Int, []byte) bool { return true })

func TestKind(t *testing.T) {
	c := qt.New(t)
	for _, k := range Kinds {
		parsed, err := ParseKind(k.String())
		c.Assert(err, qt.IsNil)
		c.Assert(parsed, qt.Equals, k)
	}
	_, err := ParseKind("vote")
	c.Assert(err, qt.ErrorMatches, `unknown verifier kind "vote"`)
	c.Assert(Kind(42).String(), qt.Equals, "kind(42)")
}

func TestSet(t *testing.T) {
	c := qt.New(t)

	set := Set{Transfer: accept}
	c.Assert(set.Verify(KindTransfer, nil, nil), qt.IsTrue)
	// unset kinds never accept
	c.Assert(set.Verify(KindMint, nil, nil), qt.IsFalse)
	c.Assert(set.Validate(), qt.ErrorMatches, "missing registration verifier")
	c.Assert(set.Validate(KindTransfer), qt.IsNil)
	c.Assert(set.Has(KindTransfer), qt.IsTrue)
	c.Assert(set.Has(KindBurn), qt.IsFalse)

	for _, k := range Kinds {
		set.Set(k, accept)
	}
	c.Assert(set.Validate(), qt.IsNil)
	c.Assert(set.Verify(KindBurn, nil, nil), qt.IsTrue)
}

func TestSetRecoversPanics(t *testing.T) {
	c := qt.New(t)
	set := Set{Burn: Func(func([]*big.Int, []byte) bool { panic("bad proof") })}
	c.Assert(set.Verify(KindBurn, nil, []byte{1}), qt.IsFalse)
}

func TestCheckInputs(t *testing.T) {
	c := qt.New(t)
	inputs := make([]*big.Int, WithdrawInputs)
	for i := range inputs {
		inputs[i] = big.NewInt(int64(i))
	}
	c.Assert(CheckInputs(KindWithdraw, inputs), qt.IsNil)
	c.Assert(CheckInputs(KindBurn, inputs), qt.ErrorMatches, "burn: expected 10 public inputs, got 7")
	inputs[3] = big.NewInt(-1)
	c.Assert(CheckInputs(KindWithdraw, inputs), qt.ErrorMatches, "withdraw: invalid public input 3")
}

func TestCached(t *testing.T) {
	c := qt.New(t)

	calls := 0
	inner := Func(func(in []*big.Int, proof []byte) bool {
		calls++
		return len(proof) > 0 && proof[0] == 1
	})
	cached, err := NewCached(KindMint, inner, 2)
	c.Assert(err, qt.IsNil)

	inputs := []*big.Int{big.NewInt(1), big.NewInt(2)}
	c.Assert(cached.Verify(inputs, []byte{1}), qt.IsTrue)
	c.Assert(cached.Verify(inputs, []byte{1}), qt.IsTrue)
	c.Assert(calls, qt.Equals, 1)

	// rejections are cached too
	c.Assert(cached.Verify(inputs, []byte{0}), qt.IsFalse)
	c.Assert(cached.Verify(inputs, []byte{0}), qt.IsFalse)
	c.Assert(calls, qt.Equals, 2)
	c.Assert(cached.Len(), qt.Equals, 2)

	// different inputs are a different entry
	c.Assert(cached.Verify([]*big.Int{big.NewInt(1)}, []byte{1}), qt.IsTrue)
	c.Assert(calls, qt.Equals, 3)
	c.Assert(cached.Len(), qt.Equals, 2)
}

func TestCacheKey(t *testing.T) {
	c := qt.New(t)
	inputs := []*big.Int{big.NewInt(1)}
	c.Assert(CacheKey(KindMint, inputs, nil), qt.Not(qt.Equals), CacheKey(KindBurn, inputs, nil))
	c.Assert(CacheKey(KindMint, inputs, []byte{1}), qt.Not(qt.Equals), CacheKey(KindMint, inputs, nil))
	c.Assert(CacheKey(KindMint, inputs, nil), qt.Equals, CacheKey(KindMint, []*big.Int{big.NewInt(1)}, nil))
}

func TestCacheSet(t *testing.T) {
	c := qt.New(t)
	set, err := CacheSet(Set{Mint: accept}, 8)
	c.Assert(err, qt.IsNil)
	c.Assert(set.Verify(KindMint, nil, nil), qt.IsTrue)
	c.Assert(set.Mint, qt.Satisfies, func(v Verifier) bool { _, ok := v.(*Cached); return ok })
	c.Assert(set.Burn, qt.IsNil)
}
