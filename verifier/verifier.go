// Package verifier defines the proof verification capability used by the
// ledger. Every operation kind is checked by one Verifier, a pure predicate
// over the public inputs and an opaque proof. Adapters for gnark groth16
// proofs, snarkjs (circom) proofs and result caching are provided.
package verifier

import (
	"fmt"
	"math/big"
)

// Kind identifies the operation a proof is checked for.
type Kind uint8

const (
	KindRegistration Kind = iota
	KindMint
	KindWithdraw
	KindTransfer
	KindBurn
)

// Kinds lists every operation kind with a verifier.
var Kinds = []Kind{KindRegistration, KindMint, KindWithdraw, KindTransfer, KindBurn}

func (k Kind) String() string {
	switch k {
	case KindRegistration:
		return "registration"
	case KindMint:
		return "mint"
	case KindWithdraw:
		return "withdraw"
	case KindTransfer:
		return "transfer"
	case KindBurn:
		return "burn"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown verifier kind %q", s)
}

// Verifier checks a proof against its public inputs. Implementations must
// be deterministic and safe for concurrent use. Any malformed proof must be
// rejected, never cause a panic.
type Verifier interface {
	Verify(publicInputs []*big.Int, proof []byte) bool
}

// Func adapts a plain function to the Verifier interface.
type Func func(publicInputs []*big.Int, proof []byte) bool

// Verify calls f.
func (f Func) Verify(publicInputs []*big.Int, proof []byte) bool {
	return f(publicInputs, proof)
}

// Reject is a Verifier that never accepts.
var Reject = Func(func([]*big.Int, []byte) bool { return false })

// Set holds one verifier per operation kind.
type Set struct {
	Registration Verifier
	Mint         Verifier
	Withdraw     Verifier
	Transfer     Verifier
	Burn         Verifier
}

// For returns the verifier configured for kind. Unset kinds return Reject so
// a missing verifier can never admit an operation.
func (s *Set) For(kind Kind) Verifier {
	if v := s.get(kind); v != nil {
		return v
	}
	return Reject
}

func (s *Set) get(kind Kind) Verifier {
	switch kind {
	case KindRegistration:
		return s.Registration
	case KindMint:
		return s.Mint
	case KindWithdraw:
		return s.Withdraw
	case KindTransfer:
		return s.Transfer
	case KindBurn:
		return s.Burn
	}
	return nil
}

// Set assigns v to kind.
func (s *Set) Set(kind Kind, v Verifier) {
	switch kind {
	case KindRegistration:
		s.Registration = v
	case KindMint:
		s.Mint = v
	case KindWithdraw:
		s.Withdraw = v
	case KindTransfer:
		s.Transfer = v
	case KindBurn:
		s.Burn = v
	}
}

// Has reports whether a verifier is configured for kind.
func (s *Set) Has(kind Kind) bool {
	return s.get(kind) != nil
}

// Validate returns an error naming the first of kinds without a verifier.
// With no kinds, every kind is checked.
func (s *Set) Validate(kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = Kinds
	}
	for _, k := range kinds {
		if s.get(k) == nil {
			return fmt.Errorf("missing %s verifier", k)
		}
	}
	return nil
}

// Verify is a shorthand for s.For(kind).Verify, recovering from panics in
// third party verification code.
func (s *Set) Verify(kind Kind, publicInputs []*big.Int, proof []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return s.For(kind).Verify(publicInputs, proof)
}
