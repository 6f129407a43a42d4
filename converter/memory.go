package converter

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MemoryToken is an in-process ERC-20 style token with balances and
// allowances. The custodian is the account that holds the reserve.
type MemoryToken struct {
	address   common.Address
	custodian common.Address

	mu         sync.Mutex
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int
}

// NewMemoryToken returns an empty token.
func NewMemoryToken(address, custodian common.Address) *MemoryToken {
	return &MemoryToken{
		address:    address,
		custodian:  custodian,
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

// Address implements Token.
func (t *MemoryToken) Address() common.Address {
	return t.address
}

// Custodian returns the account holding the reserve.
func (t *MemoryToken) Custodian() common.Address {
	return t.custodian
}

// Mint creates amount tokens for the given account.
func (t *MemoryToken) Mint(to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, overflow := new(uint256.Int).AddOverflow(t.balanceOf(to), amount)
	if overflow {
		return fmt.Errorf("balance overflow")
	}
	t.balances[to] = b
	return nil
}

// Approve sets the allowance of spender over the tokens of owner.
func (t *MemoryToken) Approve(owner, spender common.Address, amount *uint256.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	t.allowances[owner][spender] = new(uint256.Int).Set(amount)
}

// BalanceOf returns the token balance of account.
func (t *MemoryToken) BalanceOf(account common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(t.balanceOf(account))
}

// CustodyBalance returns the token balance of the custodian.
func (t *MemoryToken) CustodyBalance(context.Context) (*uint256.Int, error) {
	return t.BalanceOf(t.custodian), nil
}

// Allowance returns the allowance of spender over the tokens of owner.
func (t *MemoryToken) Allowance(owner, spender common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(t.allowance(owner, spender))
}

// TransferFrom implements Token, moving tokens into the custodian.
func (t *MemoryToken) TransferFrom(_ context.Context, from common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	allowance := t.allowance(from, t.custodian)
	if allowance.Lt(amount) {
		return fmt.Errorf("%w: insufficient allowance: %s < %s", ErrRejected, allowance.Dec(), amount.Dec())
	}
	if err := t.move(from, t.custodian, amount); err != nil {
		return err
	}
	t.allowances[from][t.custodian] = new(uint256.Int).Sub(allowance, amount)
	return nil
}

// Transfer implements Token, moving tokens out of the custodian.
func (t *MemoryToken) Transfer(_ context.Context, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(t.custodian, to, amount)
}

func (t *MemoryToken) move(from, to common.Address, amount *uint256.Int) error {
	fromBalance := t.balanceOf(from)
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: insufficient balance: %s < %s", ErrRejected, fromBalance.Dec(), amount.Dec())
	}
	t.balances[from] = new(uint256.Int).Sub(fromBalance, amount)
	t.balances[to] = new(uint256.Int).Add(t.balanceOf(to), amount)
	return nil
}

func (t *MemoryToken) balanceOf(account common.Address) *uint256.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return new(uint256.Int)
}

func (t *MemoryToken) allowance(owner, spender common.Address) *uint256.Int {
	if a, ok := t.allowances[owner][spender]; ok {
		return a
	}
	return new(uint256.Int)
}
