package verifier

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/vocdoni/eerc-node/log"
)

// Groth16 verifies gnark groth16 proofs over BN254. The proof is expected
// in the gnark binary encoding (proof.WriteTo).
type Groth16 struct {
	vk groth16.VerifyingKey
}

// NewGroth16 decodes a gnark verifying key (vk.WriteTo encoding).
func NewGroth16(verifyingKey []byte) (*Groth16, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(verifyingKey)); err != nil {
		return nil, fmt.Errorf("could not read verifying key: %w", err)
	}
	return &Groth16{vk: vk}, nil
}

// NewGroth16FromKey wraps an already decoded verifying key.
func NewGroth16FromKey(vk groth16.VerifyingKey) *Groth16 {
	return &Groth16{vk: vk}
}

// NbPublicInputs returns the number of public inputs of the circuit.
func (g *Groth16) NbPublicInputs() int {
	return g.vk.NbPublicWitness()
}

// Verify implements Verifier.
func (g *Groth16) Verify(publicInputs []*big.Int, proof []byte) bool {
	if len(publicInputs) != g.vk.NbPublicWitness() {
		return false
	}
	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		log.Debugw("invalid groth16 proof encoding", "error", err.Error())
		return false
	}
	pubWitness, err := PublicWitness(publicInputs)
	if err != nil {
		log.Debugw("invalid groth16 public inputs", "error", err.Error())
		return false
	}
	if err := groth16.Verify(p, g.vk, pubWitness); err != nil {
		log.Debugw("groth16 proof rejected", "error", err.Error())
		return false
	}
	return true
}

// PublicWitness builds a BN254 public witness from the given inputs. Inputs
// must be reduced field elements.
func PublicWitness(publicInputs []*big.Int) (witness.Witness, error) {
	field := ecc.BN254.ScalarField()
	w, err := witness.New(field)
	if err != nil {
		return nil, err
	}
	values := make(chan any, len(publicInputs))
	for _, in := range publicInputs {
		if in.Sign() < 0 || in.Cmp(field) >= 0 {
			return nil, fmt.Errorf("public input out of field: %s", in)
		}
		values <- new(big.Int).Set(in)
	}
	close(values)
	if err := w.Fill(len(publicInputs), 0, values); err != nil {
		return nil, err
	}
	return w, nil
}
