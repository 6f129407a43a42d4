// Package converter bridges a plaintext ERC-20 style token into the
// encrypted ledger. The Gateway keeps the custody reserve, the amount of the
// token held to back the balances created by deposits. The reserve lives in
// the ledger storage and only changes inside the ledger write transaction
// that also changes the encrypted balances.
package converter

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/vocdoni/eerc-node/log"
	"github.com/vocdoni/eerc-node/storage"
)

var (
	// ErrInsufficientReserve means a release would take the custody reserve
	// below zero. It can only happen if the ledger and the reserve are out
	// of sync, and must be treated as a fatal consistency fault.
	ErrInsufficientReserve = errors.New("insufficient reserve")
	// ErrReserveOverflow means a deposit would overflow the reserve counter.
	ErrReserveOverflow = errors.New("reserve overflow")
	// ErrTokenTransfer wraps the failures of the token, like a missing
	// allowance.
	ErrTokenTransfer = errors.New("token transfer failed")
	// ErrRejected is wrapped by Token errors when no token moved.
	ErrRejected = errors.New("rejected by token")
)

// Token is the plaintext token held in custody. Errors wrapping ErrRejected
// guarantee that nothing moved. Any other error means the call may have
// taken effect.
type Token interface {
	// TransferFrom moves amount from the given owner into custody. The
	// owner must have approved the custodian beforehand.
	TransferFrom(ctx context.Context, from common.Address, amount *uint256.Int) error
	// Transfer moves amount out of custody to the given account.
	Transfer(ctx context.Context, to common.Address, amount *uint256.Int) error
	// Address returns the token contract address.
	Address() common.Address
}

// Custody reads the token balance actually held by the custodian, to audit
// it against the reserve.
type Custody interface {
	CustodyBalance(ctx context.Context) (*uint256.Int, error)
}

// Movement is the outcome of a deposit or release.
type Movement struct {
	// Reserve is the reserve after the movement.
	Reserve *uint256.Int
	// Unconfirmed is set when the token call may have taken effect but did
	// not succeed. The reserve is updated as if it had.
	Unconfirmed bool
}

// Gateway tracks the custody reserve and moves the token.
type Gateway struct {
	token Token
}

// New returns a Gateway for token. The token cannot be changed afterwards.
func New(token Token) (*Gateway, error) {
	if token == nil {
		return nil, fmt.Errorf("nil token")
	}
	return &Gateway{token: token}, nil
}

// Token returns the address of the converted token.
func (g *Gateway) Token() common.Address {
	return g.token.Address()
}

// Deposit increases the reserve by amount within tx and pulls the tokens
// from the owner into custody. On error nothing moved and tx must be
// discarded. An unconfirmed movement must be committed like a successful
// one. If tx fails to commit after a confirmed movement, the caller must
// call Refund.
func (g *Gateway) Deposit(ctx context.Context, tx *storage.Tx, from common.Address, amount *uint256.Int) (*Movement, error) {
	reserve, err := tx.Reserve()
	if err != nil {
		return nil, fmt.Errorf("read reserve: %w", err)
	}
	newReserve, overflow := new(uint256.Int).AddOverflow(reserve, amount)
	if overflow {
		return nil, ErrReserveOverflow
	}
	if err := tx.SetReserve(newReserve); err != nil {
		return nil, fmt.Errorf("write reserve: %w", err)
	}
	return settle("transferFrom", from, amount, newReserve, g.token.TransferFrom(ctx, from, amount))
}

// Release decreases the reserve by amount within tx and sends the tokens
// out of custody. ErrInsufficientReserve is returned before any token moves.
// Errors and unconfirmed movements are handled as in Deposit. If tx fails to
// commit after a confirmed movement, the caller must call Reclaim.
func (g *Gateway) Release(ctx context.Context, tx *storage.Tx, to common.Address, amount *uint256.Int) (*Movement, error) {
	reserve, err := tx.Reserve()
	if err != nil {
		return nil, fmt.Errorf("read reserve: %w", err)
	}
	newReserve, underflow := new(uint256.Int).SubOverflow(reserve, amount)
	if underflow {
		log.Errorw(ErrInsufficientReserve, "custody reserve out of sync with the ledger",
			"reserve", reserve.Dec(), "release", amount.Dec(), "to", to.Hex())
		return nil, ErrInsufficientReserve
	}
	if err := tx.SetReserve(newReserve); err != nil {
		return nil, fmt.Errorf("write reserve: %w", err)
	}
	return settle("transfer", to, amount, newReserve, g.token.Transfer(ctx, to, amount))
}

// settle turns the result of a token call into a Movement.
func settle(method string, account common.Address, amount, reserve *uint256.Int, err error) (*Movement, error) {
	switch {
	case err == nil:
		return &Movement{Reserve: reserve}, nil
	case errors.Is(err, ErrRejected):
		return nil, fmt.Errorf("%w: %s: %v", ErrTokenTransfer, method, err)
	}
	log.Warnw("token movement not confirmed", "method", method, "account", account.Hex(),
		"amount", amount.Dec(), "error", err.Error())
	return &Movement{Reserve: reserve, Unconfirmed: true}, nil
}

// Refund returns the tokens of a deposit whose ledger write failed.
func (g *Gateway) Refund(ctx context.Context, from common.Address, amount *uint256.Int) {
	if err := g.token.Transfer(ctx, from, amount); err != nil {
		log.Errorw(err, "could not refund deposit after failed commit",
			"account", from.Hex(), "amount", amount.Dec())
		return
	}
	log.Warnw("deposit refunded after failed commit", "account", from.Hex(), "amount", amount.Dec())
}

// Reclaim pulls back the tokens of a withdrawal whose ledger write failed.
// It only succeeds if the receiver keeps an allowance for the custodian.
func (g *Gateway) Reclaim(ctx context.Context, to common.Address, amount *uint256.Int) {
	if err := g.token.TransferFrom(ctx, to, amount); err != nil {
		log.Errorw(err, "could not reclaim withdrawal after failed commit",
			"account", to.Hex(), "amount", amount.Dec())
		return
	}
	log.Warnw("withdrawal reclaimed after failed commit", "account", to.Hex(), "amount", amount.Dec())
}
