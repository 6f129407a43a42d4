package verifier

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/eerc-node/crypto/ecc"
	"github.com/vocdoni/eerc-node/crypto/elgamal"
)

// Number of public inputs of each kind.
const (
	RegistrationInputs = 5
	MintInputs         = 8
	TransferInputs     = 16
	WithdrawInputs     = 7
	BurnInputs         = 10
)

// NumInputs returns the number of public inputs expected for kind.
func NumInputs(kind Kind) int {
	switch kind {
	case KindRegistration:
		return RegistrationInputs
	case KindMint:
		return MintInputs
	case KindTransfer:
		return TransferInputs
	case KindWithdraw:
		return WithdrawInputs
	case KindBurn:
		return BurnInputs
	}
	return 0
}

// AddressToBigInt returns the account address as a field element.
func AddressToBigInt(addr common.Address) *big.Int {
	return new(big.Int).SetBytes(addr.Bytes())
}

func pointInputs(p ecc.Point) []*big.Int {
	x, y := p.Point()
	return []*big.Int{x, y}
}

// RegistrationPublicInputs returns [pkX, pkY, account, chainID, registrationHash].
func RegistrationPublicInputs(publicKey ecc.Point, account common.Address, chainID uint64, registrationHash *big.Int) []*big.Int {
	inputs := pointInputs(publicKey)
	return append(inputs,
		AddressToBigInt(account),
		new(big.Int).SetUint64(chainID),
		new(big.Int).Set(registrationHash),
	)
}

// MintPublicInputs returns [chainID, nullifier, pkX, pkY, C1x, C1y, C2x, C2y].
func MintPublicInputs(chainID uint64, nullifier *big.Int, publicKey ecc.Point, amount *elgamal.Ciphertext) []*big.Int {
	inputs := []*big.Int{new(big.Int).SetUint64(chainID), new(big.Int).Set(nullifier)}
	inputs = append(inputs, pointInputs(publicKey)...)
	return append(inputs, amount.BigInts()...)
}

// TransferPublicInputs returns the sender key, sender balance, sender delta,
// receiver key and receiver delta coordinates, in this order.
func TransferPublicInputs(fromKey ecc.Point, fromBalance, senderDelta *elgamal.Ciphertext,
	toKey ecc.Point, receiverDelta *elgamal.Ciphertext,
) []*big.Int {
	inputs := pointInputs(fromKey)
	inputs = append(inputs, fromBalance.BigInts()...)
	inputs = append(inputs, senderDelta.BigInts()...)
	inputs = append(inputs, pointInputs(toKey)...)
	return append(inputs, receiverDelta.BigInts()...)
}

// WithdrawPublicInputs returns [pkX, pkY, bal(4), amount].
func WithdrawPublicInputs(publicKey ecc.Point, balance *elgamal.Ciphertext, amount uint64) []*big.Int {
	inputs := pointInputs(publicKey)
	inputs = append(inputs, balance.BigInts()...)
	return append(inputs, new(big.Int).SetUint64(amount))
}

// BurnPublicInputs returns [pkX, pkY, bal(4), amount(4)].
func BurnPublicInputs(publicKey ecc.Point, balance, amount *elgamal.Ciphertext) []*big.Int {
	inputs := pointInputs(publicKey)
	inputs = append(inputs, balance.BigInts()...)
	return append(inputs, amount.BigInts()...)
}

// CheckInputs returns an error if the number of inputs does not match kind.
func CheckInputs(kind Kind, publicInputs []*big.Int) error {
	if n := NumInputs(kind); len(publicInputs) != n {
		return fmt.Errorf("%s: expected %d public inputs, got %d", kind, n, len(publicInputs))
	}
	for i, in := range publicInputs {
		if in == nil || in.Sign() < 0 {
			return fmt.Errorf("%s: invalid public input %d", kind, i)
		}
	}
	return nil
}
