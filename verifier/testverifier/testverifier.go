// Package testverifier provides a key-holding verifier for tests and the
// development mode of the node. A proof is a commitment to the operation
// kind and its public inputs. The verifier checks the statement itself by
// decrypting the ciphertexts with private keys registered in its keyring, so
// it never accepts a false statement such as spending more than a balance.
// It must never be used with real funds.
package testverifier

import (
	"bytes"
	"math/big"
	"sync"

	"github.com/vocdoni/eerc-node/crypto/ecc"
	"github.com/vocdoni/eerc-node/crypto/elgamal"
	"github.com/vocdoni/eerc-node/verifier"
)

// DefaultMaxValue bounds the plaintexts the verifier can decrypt.
const DefaultMaxValue = 1 << 20

var proofDomain = []byte("eerc-test-proof")

// Verifier checks test proofs using the private keys in its keyring.
type Verifier struct {
	curve    ecc.Point
	maxValue uint64

	mu   sync.RWMutex
	keys map[string]*big.Int
}

// New returns a Verifier for points of the given curve. maxValue bounds the
// balances and amounts it accepts, zero means DefaultMaxValue.
func New(curve ecc.Point, maxValue uint64) *Verifier {
	if maxValue == 0 {
		maxValue = DefaultMaxValue
	}
	return &Verifier{
		curve:    curve.New(),
		maxValue: maxValue,
		keys:     make(map[string]*big.Int),
	}
}

// GenerateKey creates a key pair and adds it to the keyring.
func (v *Verifier) GenerateKey() (ecc.Point, *big.Int, error) {
	pk, sk, err := elgamal.GenerateKey(v.curve)
	if err != nil {
		return nil, nil, err
	}
	v.AddKey(sk)
	return pk, sk, nil
}

// AddKey adds a private key to the keyring and returns its public key.
func (v *Verifier) AddKey(privateKey *big.Int) ecc.Point {
	pk := elgamal.PublicKey(v.curve, privateKey)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys[pk.String()] = new(big.Int).Set(privateKey)
	return pk
}

func (v *Verifier) privateKey(pk ecc.Point) (*big.Int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	sk, ok := v.keys[pk.String()]
	return sk, ok
}

// Prove returns the test proof for the given kind and public inputs.
func Prove(kind verifier.Kind, publicInputs []*big.Int) []byte {
	key := verifier.CacheKey(kind, publicInputs, proofDomain)
	return key[:]
}

// Set returns a verifier Set backed by v.
func (v *Verifier) Set() verifier.Set {
	set := verifier.Set{}
	for _, kind := range verifier.Kinds {
		set.Set(kind, v.For(kind))
	}
	return set
}

// For returns the Verifier of one kind.
func (v *Verifier) For(kind verifier.Kind) verifier.Verifier {
	return verifier.Func(func(publicInputs []*big.Int, proof []byte) bool {
		if verifier.CheckInputs(kind, publicInputs) != nil {
			return false
		}
		if !bytes.Equal(proof, Prove(kind, publicInputs)) {
			return false
		}
		return v.Check(kind, publicInputs)
	})
}

// Check reports whether the statement encoded by the public inputs of kind
// is true.
func (v *Verifier) Check(kind verifier.Kind, in []*big.Int) bool {
	switch kind {
	case verifier.KindRegistration:
		pk, ok := v.point(in[0], in[1])
		if !ok {
			return false
		}
		_, known := v.privateKey(pk)
		return known && in[4].Sign() != 0
	case verifier.KindMint:
		pk, ok := v.point(in[2], in[3])
		if !ok {
			return false
		}
		_, ok = v.decrypt(pk, in[4:8])
		return ok
	case verifier.KindTransfer:
		from, ok := v.point(in[0], in[1])
		if !ok {
			return false
		}
		to, ok := v.point(in[10], in[11])
		if !ok {
			return false
		}
		balance, ok := v.decrypt(from, in[2:6])
		if !ok {
			return false
		}
		sent, ok := v.decrypt(from, in[6:10])
		if !ok {
			return false
		}
		received, ok := v.decrypt(to, in[12:16])
		if !ok {
			return false
		}
		return sent == received && balance >= sent
	case verifier.KindWithdraw:
		pk, ok := v.point(in[0], in[1])
		if !ok {
			return false
		}
		balance, ok := v.decrypt(pk, in[2:6])
		if !ok || !in[6].IsUint64() {
			return false
		}
		return balance >= in[6].Uint64()
	case verifier.KindBurn:
		pk, ok := v.point(in[0], in[1])
		if !ok {
			return false
		}
		balance, ok := v.decrypt(pk, in[2:6])
		if !ok {
			return false
		}
		amount, ok := v.decrypt(pk, in[6:10])
		return ok && balance >= amount
	}
	return false
}

func (v *Verifier) point(x, y *big.Int) (ecc.Point, bool) {
	p := v.curve.SetPoint(x, y)
	return p, p.IsValid() && !p.IsZero()
}

// decrypt returns the plaintext of the ciphertext with coordinates c under
// the key of pk, if the key is known and the value is in range.
func (v *Verifier) decrypt(pk ecc.Point, c []*big.Int) (uint64, bool) {
	sk, ok := v.privateKey(pk)
	if !ok {
		return 0, false
	}
	ct := &elgamal.Ciphertext{
		C1: v.curve.SetPoint(c[0], c[1]),
		C2: v.curve.SetPoint(c[2], c[3]),
	}
	if !ct.IsValid() {
		return 0, false
	}
	m, err := ct.Decrypt(sk, v.maxValue)
	if err != nil {
		return 0, false
	}
	return m.Uint64(), true
}
