package ledger

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/eerc-node/crypto/elgamal"
	"github.com/vocdoni/eerc-node/verifier"
	"github.com/vocdoni/eerc-node/verifier/testverifier"
)

func TestApplyBatch(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	tl := newTestLedger(c, false)
	tl.register(alice)
	tl.register(bob)
	tl.register(carol)
	_, err := tl.Mint(ctx, tl.mintRequest(alice, 20, 1))
	c.Assert(err, qt.IsNil)

	// the second transfer of alice is proven against the balance left by
	// the first one, so it only verifies when applied
	first := tl.transferRequest(alice, bob, 5)
	sd := tl.encrypt(alice, 3)
	rd := tl.encrypt(carol, 3)
	afterFirst := elgamal.NewCiphertext(tl.curve).Sub(tl.currentBalance(alice), first.SenderDelta)
	second := &TransferRequest{
		From: alice, To: carol, SenderDelta: sd, ReceiverDelta: rd,
		Proof: testverifier.Prove(verifier.KindTransfer, verifier.TransferPublicInputs(
			tl.publicKey(alice), afterFirst, sd, tl.publicKey(carol), rd)),
	}
	bad := tl.burnRequest(bob, 1)
	bad.Proof = []byte("not a proof")

	errs := tl.ApplyBatch(ctx, []Operation{
		first,
		second,
		bad,
		tl.mintRequest(carol, 2, 2),
		(*BurnRequest)(nil),
	})
	c.Assert(errs, qt.HasLen, 5)
	c.Assert(errs[0], qt.IsNil)
	c.Assert(errs[1], qt.IsNil)
	c.Assert(errs[2], qt.ErrorIs, ErrInvalidProof)
	c.Assert(errs[3], qt.IsNil)
	c.Assert(errs[4], qt.ErrorIs, ErrInvalidInput)

	c.Assert(tl.balance(alice), qt.Equals, uint64(12))
	c.Assert(tl.balance(bob), qt.Equals, uint64(5))
	c.Assert(tl.balance(carol), qt.Equals, uint64(5))

	records, err := tl.Records(0, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 4)
	c.Assert(records[3].Index, qt.Equals, uint64(3))
}

func TestApplyBatchOrder(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	tl := newTestLedger(c, false)
	tl.register(alice)
	tl.register(bob)

	// operations apply in order: the transfer was proven against the
	// balance the burn spends
	_, err := tl.Mint(ctx, tl.mintRequest(alice, 1, 1))
	c.Assert(err, qt.IsNil)
	transfer := tl.transferRequest(alice, bob, 1)
	errs := tl.ApplyBatch(ctx, []Operation{tl.burnRequest(alice, 1), transfer})
	c.Assert(errs[0], qt.IsNil)
	c.Assert(errs[1], qt.ErrorIs, ErrInvalidProof)
	c.Assert(tl.balance(bob), qt.Equals, uint64(0))

	c.Assert(tl.ApplyBatch(ctx, nil), qt.HasLen, 0)
}
