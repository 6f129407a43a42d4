package storage

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/eerc-node/crypto/ecc"
	"github.com/vocdoni/eerc-node/crypto/ecc/curves"
	"github.com/vocdoni/eerc-node/crypto/elgamal"
	"github.com/vocdoni/eerc-node/types"
)

// CurveType is the curve used for the stored keys and ciphertexts.
const CurveType = curves.CurveTypeBabyJubJub

// Account is a registered account: its encryption public key and its
// encrypted balance. Accounts are never deleted.
type Account struct {
	Address   common.Address      `json:"address"`
	PublicKey ecc.Point           `json:"publicKey"`
	Balance   *elgamal.Ciphertext `json:"balance"`
}

// accountEntry is the stored form of an Account.
type accountEntry struct {
	PublicKeyX *big.Int `cbor:"0,keyasint"`
	PublicKeyY *big.Int `cbor:"1,keyasint"`
	Balance    []byte   `cbor:"2,keyasint"`
}

func (a *Account) entry() *accountEntry {
	x, y := a.PublicKey.Point()
	return &accountEntry{PublicKeyX: x, PublicKeyY: y, Balance: a.Balance.Serialize()}
}

func (e *accountEntry) account(address common.Address) (*Account, error) {
	curve := curves.New(CurveType)
	balance := elgamal.NewCiphertext(curve)
	if err := balance.Deserialize(e.Balance); err != nil {
		return nil, fmt.Errorf("decode balance of %s: %w", address, err)
	}
	return &Account{
		Address:   address,
		PublicKey: curve.SetPoint(e.PublicKeyX, e.PublicKeyY),
		Balance:   balance,
	}, nil
}

// OpKind names the operation of a Record.
type OpKind string

const (
	OpMint     OpKind = "mint"
	OpTransfer OpKind = "transfer"
	OpWithdraw OpKind = "withdraw"
	OpBurn     OpKind = "burn"
	OpDeposit  OpKind = "deposit"
)

// Record is the append-only log entry of an applied operation. Nullifier
// is the single-use value of a mint or a deposit. Unconfirmed marks a
// converter operation whose token call was sent but not confirmed: the
// ledger change was kept and the token movement must be reconciled by the
// operator.
type Record struct {
	Index         uint64              `json:"index" cbor:"0,keyasint"`
	Kind          OpKind              `json:"kind" cbor:"1,keyasint"`
	From          *common.Address     `json:"from,omitempty" cbor:"2,keyasint,omitempty"`
	To            *common.Address     `json:"to,omitempty" cbor:"3,keyasint,omitempty"`
	SenderDelta   *elgamal.Ciphertext `json:"senderDelta,omitempty" cbor:"4,keyasint,omitempty"`
	ReceiverDelta *elgamal.Ciphertext `json:"receiverDelta,omitempty" cbor:"5,keyasint,omitempty"`
	PlainAmount   uint64              `json:"plainAmount,omitempty" cbor:"6,keyasint,omitempty"`
	Nullifier     *types.BigInt       `json:"nullifier,omitempty" cbor:"7,keyasint,omitempty"`
	StateRoot     types.HexBytes      `json:"stateRoot" cbor:"8,keyasint"`
	Timestamp     int64               `json:"timestamp" cbor:"9,keyasint"`
	Unconfirmed   bool                `json:"unconfirmed,omitempty" cbor:"10,keyasint,omitempty"`
}

// AccountProof is a state tree inclusion (or exclusion) proof of an
// account leaf.
type AccountProof struct {
	Address   common.Address `json:"address"`
	Root      types.HexBytes `json:"root"`
	LeafValue types.HexBytes `json:"leafValue"`
	Siblings  types.HexBytes `json:"siblings"`
	Existence bool           `json:"existence"`
}
