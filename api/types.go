package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/eerc-node/crypto/ecc"
	"github.com/vocdoni/eerc-node/crypto/elgamal"
	"github.com/vocdoni/eerc-node/storage"
	"github.com/vocdoni/eerc-node/types"
)

// Point is a curve point in twisted Edwards coordinates.
type Point struct {
	X *types.BigInt `json:"x"`
	Y *types.BigInt `json:"y"`
}

// NewPoint returns the coordinates of p.
func NewPoint(p ecc.Point) Point {
	x, y := p.Point()
	return Point{X: types.NewBigInt(x), Y: types.NewBigInt(y)}
}

// Account is a registered account with its encrypted balance.
type Account struct {
	Address   common.Address      `json:"address"`
	PublicKey Point               `json:"publicKey"`
	Balance   *elgamal.Ciphertext `json:"balance"`
}

// Registration binds an account to its encryption public key.
// RegistrationHash is optional, the node computes the default one when
// missing.
type Registration struct {
	Address          common.Address `json:"address"`
	PublicKey        Point          `json:"publicKey"`
	RegistrationHash *types.BigInt  `json:"registrationHash,omitempty"`
	Proof            types.HexBytes `json:"proof"`
}

// RegistrationResponse is returned after a registration.
type RegistrationResponse struct {
	Address          common.Address `json:"address"`
	RegistrationHash *types.BigInt  `json:"registrationHash"`
}

// Mint adds an encrypted amount to the balance of To. Signature is the
// Ethereum signature of MintMessage by Minter.
type Mint struct {
	Minter    common.Address      `json:"minter"`
	To        common.Address      `json:"to"`
	Amount    *elgamal.Ciphertext `json:"amount"`
	Nullifier *types.BigInt       `json:"nullifier"`
	Proof     types.HexBytes      `json:"proof"`
	Signature types.HexBytes      `json:"signature"`
}

// Transfer moves an encrypted amount between accounts.
type Transfer struct {
	From          common.Address      `json:"from"`
	To            common.Address      `json:"to"`
	SenderDelta   *elgamal.Ciphertext `json:"senderDelta"`
	ReceiverDelta *elgamal.Ciphertext `json:"receiverDelta"`
	Proof         types.HexBytes      `json:"proof"`
}

// Withdrawal converts encrypted balance back to the plaintext token.
type Withdrawal struct {
	From   common.Address `json:"from"`
	Amount uint64         `json:"amount"`
	Proof  types.HexBytes `json:"proof"`
}

// Burn destroys an encrypted amount.
type Burn struct {
	From   common.Address      `json:"from"`
	Amount *elgamal.Ciphertext `json:"amount"`
	Proof  types.HexBytes      `json:"proof"`
}

// Deposit converts plaintext token into encrypted balance. Signature is the
// Ethereum signature of DepositMessage by From. The nonce is single use per
// account.
type Deposit struct {
	From      common.Address `json:"from"`
	Amount    uint64         `json:"amount"`
	Nonce     *types.BigInt  `json:"nonce"`
	Signature types.HexBytes `json:"signature"`
}

// Records is a page of the operation log.
type Records struct {
	Records []*storage.Record `json:"records"`
	Total   uint64            `json:"total"`
}

// Reserve is the custody reserve of a converter ledger.
type Reserve struct {
	Token   common.Address `json:"token"`
	Reserve *types.BigInt  `json:"reserve"`
}

// StateRoot is the root of the account state tree.
type StateRoot struct {
	Root types.HexBytes `json:"root"`
}
