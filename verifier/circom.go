package verifier

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/vocdoni/circom2gnark/parser"
	"github.com/vocdoni/eerc-node/log"
)

// Circom verifies snarkjs groth16 proofs. The proof bytes are the JSON
// object produced by snarkjs (pi_a, pi_b, pi_c) and the verifying key is the
// snarkjs verification_key.json. The public signals are rebuilt from the
// ledger inputs, so the signals bundled by the prover are never trusted.
type Circom struct {
	vk *parser.CircomVerificationKey
}

// NewCircom parses a snarkjs verification key.
func NewCircom(verificationKey []byte) (*Circom, error) {
	vk, err := parser.UnmarshalCircomVerificationKeyJSON(verificationKey)
	if err != nil {
		return nil, fmt.Errorf("could not parse circom verification key: %w", err)
	}
	return &Circom{vk: vk}, nil
}

// Verify implements Verifier.
func (c *Circom) Verify(publicInputs []*big.Int, proof []byte) bool {
	if !json.Valid(proof) {
		return false
	}
	circomProof, err := parser.UnmarshalCircomProofJSON(proof)
	if err != nil {
		log.Debugw("invalid circom proof", "error", err.Error())
		return false
	}
	signals := make([]string, len(publicInputs))
	for i, in := range publicInputs {
		signals[i] = in.String()
	}
	gnarkProof, err := parser.ConvertCircomToGnark(circomProof, c.vk, signals)
	if err != nil {
		log.Debugw("could not convert circom proof", "error", err.Error())
		return false
	}
	ok, err := parser.VerifyProof(gnarkProof)
	if err != nil {
		log.Debugw("circom proof rejected", "error", err.Error())
		return false
	}
	return ok
}
