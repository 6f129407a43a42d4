package converter

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/holiman/uint256"
	"github.com/vocdoni/eerc-node/storage"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	tokenAddr     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	custodianAddr = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	alice         = common.HexToAddress("0x0000000000000000000000000000000000000011")
)

func newTestGateway(c *qt.C) (*Gateway, *MemoryToken, *storage.Storage) {
	token := NewMemoryToken(tokenAddr, custodianAddr)
	gw, err := New(token)
	c.Assert(err, qt.IsNil)
	st, err := storage.New(metadb.NewTest(c))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = st.Close() })
	return gw, token, st
}

func TestNew(t *testing.T) {
	c := qt.New(t)
	_, err := New(nil)
	c.Assert(err, qt.ErrorMatches, "nil token")

	gw, _, _ := newTestGateway(c)
	c.Assert(gw.Token(), qt.Equals, tokenAddr)
}

func TestDepositRelease(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	gw, token, st := newTestGateway(c)

	c.Assert(token.Mint(alice, uint256.NewInt(100)), qt.IsNil)
	token.Approve(alice, custodianAddr, uint256.NewInt(60))

	tx := st.Begin()
	mv, err := gw.Deposit(ctx, tx, alice, uint256.NewInt(60))
	c.Assert(err, qt.IsNil)
	c.Assert(mv.Reserve.Uint64(), qt.Equals, uint64(60))
	c.Assert(mv.Unconfirmed, qt.IsFalse)
	c.Assert(tx.Commit(), qt.IsNil)

	c.Assert(token.BalanceOf(alice).Uint64(), qt.Equals, uint64(40))
	c.Assert(token.BalanceOf(custodianAddr).Uint64(), qt.Equals, uint64(60))
	c.Assert(token.Allowance(alice, custodianAddr).IsZero(), qt.IsTrue)
	stored, err := st.Reserve()
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Uint64(), qt.Equals, uint64(60))

	tx = st.Begin()
	mv, err = gw.Release(ctx, tx, alice, uint256.NewInt(25))
	c.Assert(err, qt.IsNil)
	c.Assert(mv.Reserve.Uint64(), qt.Equals, uint64(35))
	c.Assert(tx.Commit(), qt.IsNil)
	c.Assert(token.BalanceOf(alice).Uint64(), qt.Equals, uint64(65))

	// releasing more than the reserve leaves everything untouched
	tx = st.Begin()
	_, err = gw.Release(ctx, tx, alice, uint256.NewInt(36))
	c.Assert(err, qt.ErrorIs, ErrInsufficientReserve)
	tx.Discard()
	stored, err = st.Reserve()
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Uint64(), qt.Equals, uint64(35))
	c.Assert(token.BalanceOf(custodianAddr).Uint64(), qt.Equals, uint64(35))
}

func TestDepositFailures(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	gw, token, st := newTestGateway(c)
	c.Assert(token.Mint(alice, uint256.NewInt(10)), qt.IsNil)

	// no allowance
	tx := st.Begin()
	_, err := gw.Deposit(ctx, tx, alice, uint256.NewInt(5))
	c.Assert(err, qt.ErrorIs, ErrTokenTransfer)
	c.Assert(err, qt.ErrorMatches, "token transfer failed: transferFrom: rejected by token: insufficient allowance.*")
	tx.Discard()
	stored, err := st.Reserve()
	c.Assert(err, qt.IsNil)
	c.Assert(stored.IsZero(), qt.IsTrue)

	// reserve overflow
	tx = st.Begin()
	max := new(uint256.Int).SetAllOne()
	c.Assert(tx.SetReserve(max), qt.IsNil)
	_, err = gw.Deposit(ctx, tx, alice, uint256.NewInt(1))
	c.Assert(err, qt.ErrorIs, ErrReserveOverflow)
	tx.Discard()
	c.Assert(token.BalanceOf(alice).Uint64(), qt.Equals, uint64(10))
}

func TestCompensation(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	gw, token, st := newTestGateway(c)
	c.Assert(token.Mint(alice, uint256.NewInt(10)), qt.IsNil)
	token.Approve(alice, custodianAddr, uint256.NewInt(10))

	tx := st.Begin()
	_, err := gw.Deposit(ctx, tx, alice, uint256.NewInt(10))
	c.Assert(err, qt.IsNil)
	tx.Discard()
	gw.Refund(ctx, alice, uint256.NewInt(10))
	c.Assert(token.BalanceOf(alice).Uint64(), qt.Equals, uint64(10))
	c.Assert(token.BalanceOf(custodianAddr).IsZero(), qt.IsTrue)

	// reclaim needs an allowance from the receiver
	c.Assert(token.Mint(custodianAddr, uint256.NewInt(4)), qt.IsNil)
	c.Assert(token.Transfer(ctx, alice, uint256.NewInt(4)), qt.IsNil)
	gw.Reclaim(ctx, alice, uint256.NewInt(4))
	c.Assert(token.BalanceOf(alice).Uint64(), qt.Equals, uint64(14))
	token.Approve(alice, custodianAddr, uint256.NewInt(4))
	gw.Reclaim(ctx, alice, uint256.NewInt(4))
	c.Assert(token.BalanceOf(alice).Uint64(), qt.Equals, uint64(10))
	c.Assert(token.BalanceOf(custodianAddr).Uint64(), qt.Equals, uint64(4))
}

func TestMemoryToken(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	token := NewMemoryToken(tokenAddr, custodianAddr)
	c.Assert(token.Address(), qt.Equals, tokenAddr)
	c.Assert(token.Custodian(), qt.Equals, custodianAddr)

	c.Assert(token.Transfer(ctx, alice, uint256.NewInt(1)), qt.ErrorIs, ErrRejected)
	c.Assert(token.Mint(alice, new(uint256.Int).SetAllOne()), qt.IsNil)
	c.Assert(token.Mint(alice, uint256.NewInt(1)), qt.ErrorMatches, "balance overflow")

	token.Approve(alice, custodianAddr, uint256.NewInt(3))
	c.Assert(token.TransferFrom(ctx, alice, uint256.NewInt(4)), qt.ErrorMatches, "rejected by token: insufficient allowance: 3 < 4")
	c.Assert(token.TransferFrom(ctx, alice, uint256.NewInt(3)), qt.IsNil)
	c.Assert(token.BalanceOf(custodianAddr).Uint64(), qt.Equals, uint64(3))
}

// sentToken moves the tokens and then fails, like a transaction that was
// mined after its wait gave up.
type sentToken struct {
	*MemoryToken
	err error
}

func (t *sentToken) Transfer(ctx context.Context, to common.Address, amount *uint256.Int) error {
	if err := t.MemoryToken.Transfer(ctx, to, amount); err != nil {
		return err
	}
	return t.err
}

func (t *sentToken) TransferFrom(ctx context.Context, from common.Address, amount *uint256.Int) error {
	if err := t.MemoryToken.TransferFrom(ctx, from, amount); err != nil {
		return err
	}
	return t.err
}

func TestUnconfirmedMovement(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	token := &sentToken{MemoryToken: NewMemoryToken(tokenAddr, custodianAddr), err: context.DeadlineExceeded}
	gw, err := New(token)
	c.Assert(err, qt.IsNil)
	st, err := storage.New(metadb.NewTest(c))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = st.Close() })
	c.Assert(token.Mint(alice, uint256.NewInt(10)), qt.IsNil)
	token.Approve(alice, custodianAddr, uint256.NewInt(10))

	tx := st.Begin()
	mv, err := gw.Deposit(ctx, tx, alice, uint256.NewInt(10))
	c.Assert(err, qt.IsNil)
	c.Assert(mv.Unconfirmed, qt.IsTrue)
	c.Assert(mv.Reserve.Uint64(), qt.Equals, uint64(10))
	c.Assert(tx.Commit(), qt.IsNil)

	tx = st.Begin()
	mv, err = gw.Release(ctx, tx, alice, uint256.NewInt(4))
	c.Assert(err, qt.IsNil)
	c.Assert(mv.Unconfirmed, qt.IsTrue)
	c.Assert(mv.Reserve.Uint64(), qt.Equals, uint64(6))
	c.Assert(tx.Commit(), qt.IsNil)
	c.Assert(token.BalanceOf(custodianAddr).Uint64(), qt.Equals, uint64(6))

	// nothing moves when the token rejects the call
	tx = st.Begin()
	defer tx.Discard()
	c.Assert(tx.SetReserve(uint256.NewInt(100)), qt.IsNil)
	_, err = gw.Release(ctx, tx, alice, uint256.NewInt(50))
	c.Assert(err, qt.ErrorIs, ErrTokenTransfer)
	c.Assert(token.BalanceOf(custodianAddr).Uint64(), qt.Equals, uint64(6))
}
