package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/vocdoni/eerc-node/crypto/elgamal"
	"github.com/vocdoni/eerc-node/log"
	"github.com/vocdoni/eerc-node/storage"
	"github.com/vocdoni/eerc-node/types"
	"github.com/vocdoni/eerc-node/verifier"
)

// MintRequest adds an encrypted amount to the balance of To.
type MintRequest struct {
	Minter    common.Address
	To        common.Address
	Amount    *elgamal.Ciphertext
	Nullifier *big.Int
	Proof     []byte
}

// TransferRequest moves an encrypted amount from From to To. SenderDelta is
// the amount under the key of From, ReceiverDelta under the key of To.
type TransferRequest struct {
	From          common.Address
	To            common.Address
	SenderDelta   *elgamal.Ciphertext
	ReceiverDelta *elgamal.Ciphertext
	Proof         []byte
}

// WithdrawRequest converts a plaintext amount of the balance of From back
// into the custodied token.
type WithdrawRequest struct {
	From   common.Address
	Amount uint64
	Proof  []byte
}

// BurnRequest destroys an encrypted amount of the balance of From.
type BurnRequest struct {
	From   common.Address
	Amount *elgamal.Ciphertext
	Proof  []byte
}

// DepositRequest converts a plaintext amount of the custodied token into
// encrypted balance of From. The token allowance must be granted first.
// Nonce is single use per account.
type DepositRequest struct {
	From   common.Address
	Amount uint64
	Nonce  *big.Int
}

// Operation is one of the ledger operation requests.
type Operation interface {
	kind() storage.OpKind
	prepare(l *Ledger, r accountReader) (*pending, error)
}

// accountReader is implemented by storage.Storage and storage.Tx.
type accountReader interface {
	Account(common.Address) (*storage.Account, error)
}

// pending is a resolved operation: the statement its proof must satisfy and
// the state changes it applies.
type pending struct {
	vkind  verifier.Kind
	inputs []*big.Int
	proof  []byte
	// noProof is set for deposits
	noProof bool
	// apply writes the changes into tx. Token movements are always the
	// last step, so an apply error leaves the token untouched.
	apply func(ctx context.Context, tx *storage.Tx) (*storage.Record, error)
	// compensate is set by apply once the token moved, and undoes the
	// movement if the transaction cannot be committed.
	compensate func(ctx context.Context)
}

// preVerified is the outcome of a verification done outside the write
// transaction.
type preVerified struct {
	inputs []*big.Int
	ok     bool
}

// Mint adds the encrypted amount to the recipient balance. Standalone mode
// only.
func (l *Ledger) Mint(ctx context.Context, req *MintRequest) (*storage.Record, error) {
	return l.execute(ctx, req, nil)
}

// Transfer moves an encrypted amount between two accounts.
func (l *Ledger) Transfer(ctx context.Context, req *TransferRequest) (*storage.Record, error) {
	return l.execute(ctx, req, nil)
}

// Withdraw subtracts the plaintext amount from the balance and releases it
// from custody. Converter mode only.
func (l *Ledger) Withdraw(ctx context.Context, req *WithdrawRequest) (*storage.Record, error) {
	return l.execute(ctx, req, nil)
}

// Burn subtracts the encrypted amount from the balance. Standalone mode
// only.
func (l *Ledger) Burn(ctx context.Context, req *BurnRequest) (*storage.Record, error) {
	return l.execute(ctx, req, nil)
}

// Deposit takes the plaintext amount into custody and adds its encryption
// to the balance. Converter mode only.
func (l *Ledger) Deposit(ctx context.Context, req *DepositRequest) (*storage.Record, error) {
	return l.execute(ctx, req, nil)
}

// execute admits op: the context is only checked before admission. Once
// admitted, the operation runs to completion even if ctx is cancelled.
func (l *Ledger) execute(ctx context.Context, op Operation, pre *preVerified) (rec *storage.Record, err error) {
	if op == nil || isNilOperation(op) {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidInput)
	}
	kind := op.kind()
	defer func() { countResult(string(kind), err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	tx := l.storage.Begin()
	defer tx.Discard()
	p, err := op.prepare(l, tx)
	if err != nil {
		log.Debugw("operation rejected", "op", kind, "error", err.Error())
		return nil, err
	}
	if !p.noProof && !l.verified(p, pre) {
		log.Debugw("operation proof rejected", "op", kind)
		return nil, fmt.Errorf("%w: %s", ErrInvalidProof, kind)
	}
	if rec, err = p.apply(ctx, tx); err != nil {
		if !errors.Is(err, ErrInsufficientReserve) {
			log.Warnw("operation failed", "op", kind, "error", err.Error())
		}
		return nil, err
	}
	rec.Kind = kind
	rec.Timestamp = l.now().Unix()
	if err = tx.AppendRecord(rec); err == nil {
		err = tx.Commit()
	}
	if err != nil {
		if p.compensate != nil {
			p.compensate(ctx)
		}
		log.Errorw(err, "could not commit operation", "op", kind, "unconfirmed", rec.Unconfirmed)
		return nil, fmt.Errorf("commit %s: %w", kind, err)
	}
	if rec.Unconfirmed {
		countUnconfirmed(string(kind))
		log.Warnw("operation applied with unconfirmed token movement", "op", kind, "index", rec.Index)
	}
	log.Infow("operation applied", "op", kind, "index", rec.Index, "stateRoot", rec.StateRoot.String())
	return rec, nil
}

// isNilOperation catches typed nil requests.
func isNilOperation(op Operation) bool {
	switch r := op.(type) {
	case *MintRequest:
		return r == nil
	case *TransferRequest:
		return r == nil
	case *WithdrawRequest:
		return r == nil
	case *BurnRequest:
		return r == nil
	case *DepositRequest:
		return r == nil
	}
	return false
}

// verified reports whether the proof of p is accepted, reusing a previous
// verification of the same public inputs.
func (l *Ledger) verified(p *pending, pre *preVerified) bool {
	if pre != nil && slices.EqualFunc(pre.inputs, p.inputs, func(a, b *big.Int) bool { return a.Cmp(b) == 0 }) {
		return pre.ok
	}
	return l.verify(p)
}

func (l *Ledger) verify(p *pending) bool {
	start := time.Now()
	defer observeVerification(p.vkind, start)
	return l.conf.Verifiers.Verify(p.vkind, p.inputs, p.proof)
}

// account resolves a party of an operation.
func (l *Ledger) account(r accountReader, address common.Address) (*storage.Account, error) {
	acc, err := r.Account(address)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnregistered, address.Hex())
	}
	return acc, err
}

// ciphertext returns ct on the ledger curve, checking its points.
func (l *Ledger) ciphertext(ct *elgamal.Ciphertext, name string) (*elgamal.Ciphertext, error) {
	if ct == nil || ct.C1 == nil || ct.C2 == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidInput, name)
	}
	c := ct.BigInts()
	out := &elgamal.Ciphertext{C1: l.curve.SetPoint(c[0], c[1]), C2: l.curve.SetPoint(c[2], c[3])}
	if !out.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPoint, name)
	}
	return out, nil
}

// plainAmount checks a plaintext amount of a converter operation.
func plainAmount(amount uint64) error {
	if amount == 0 || amount > types.MaxBalance {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	return nil
}

func (*MintRequest) kind() storage.OpKind { return storage.OpMint }

func (req *MintRequest) prepare(l *Ledger, r accountReader) (*pending, error) {
	if l.gateway != nil {
		return nil, fmt.Errorf("%w: mint", ErrConverterMode)
	}
	if l.conf.MintPolicy == nil || !l.conf.MintPolicy(req.Minter) {
		return nil, fmt.Errorf("%w: minter %s", ErrUnauthorized, req.Minter.Hex())
	}
	if req.Nullifier == nil || req.Nullifier.Sign() < 0 {
		return nil, fmt.Errorf("%w: missing nullifier", ErrInvalidInput)
	}
	amount, err := l.ciphertext(req.Amount, "amount")
	if err != nil {
		return nil, err
	}
	to, err := l.account(r, req.To)
	if err != nil {
		return nil, err
	}
	nullifier := new(big.Int).Set(req.Nullifier)
	return &pending{
		vkind:  verifier.KindMint,
		inputs: verifier.MintPublicInputs(l.conf.ChainID, nullifier, to.PublicKey, amount),
		proof:  req.Proof,
		apply: func(_ context.Context, tx *storage.Tx) (*storage.Record, error) {
			if err := tx.UseNullifier(nullifier); err != nil {
				if errors.Is(err, storage.ErrAlreadyExists) {
					return nil, fmt.Errorf("%w: %s", ErrNullifierUsed, nullifier.String())
				}
				return nil, err
			}
			to.Balance = elgamal.NewCiphertext(l.curve).Add(to.Balance, amount)
			if err := tx.SetAccount(to); err != nil {
				return nil, err
			}
			return &storage.Record{
				To:            &to.Address,
				ReceiverDelta: amount,
				Nullifier:     types.NewBigInt(nullifier),
			}, nil
		},
	}, nil
}

func (*TransferRequest) kind() storage.OpKind { return storage.OpTransfer }

func (req *TransferRequest) prepare(l *Ledger, r accountReader) (*pending, error) {
	if req.From == req.To {
		return nil, fmt.Errorf("%w: transfer to self", ErrInvalidInput)
	}
	senderDelta, err := l.ciphertext(req.SenderDelta, "sender delta")
	if err != nil {
		return nil, err
	}
	receiverDelta, err := l.ciphertext(req.ReceiverDelta, "receiver delta")
	if err != nil {
		return nil, err
	}
	from, err := l.account(r, req.From)
	if err != nil {
		return nil, err
	}
	to, err := l.account(r, req.To)
	if err != nil {
		return nil, err
	}
	return &pending{
		vkind:  verifier.KindTransfer,
		inputs: verifier.TransferPublicInputs(from.PublicKey, from.Balance, senderDelta, to.PublicKey, receiverDelta),
		proof:  req.Proof,
		apply: func(_ context.Context, tx *storage.Tx) (*storage.Record, error) {
			from.Balance = elgamal.NewCiphertext(l.curve).Sub(from.Balance, senderDelta)
			to.Balance = elgamal.NewCiphertext(l.curve).Add(to.Balance, receiverDelta)
			if err := tx.SetAccount(from); err != nil {
				return nil, err
			}
			if err := tx.SetAccount(to); err != nil {
				return nil, err
			}
			return &storage.Record{
				From:          &from.Address,
				To:            &to.Address,
				SenderDelta:   senderDelta,
				ReceiverDelta: receiverDelta,
			}, nil
		},
	}, nil
}

func (*WithdrawRequest) kind() storage.OpKind { return storage.OpWithdraw }

func (req *WithdrawRequest) prepare(l *Ledger, r accountReader) (*pending, error) {
	if l.gateway == nil {
		return nil, fmt.Errorf("%w: withdraw", ErrNotConverter)
	}
	if err := plainAmount(req.Amount); err != nil {
		return nil, err
	}
	from, err := l.account(r, req.From)
	if err != nil {
		return nil, err
	}
	p := &pending{
		vkind:  verifier.KindWithdraw,
		inputs: verifier.WithdrawPublicInputs(from.PublicKey, from.Balance, req.Amount),
		proof:  req.Proof,
	}
	amount := req.Amount
	p.apply = func(ctx context.Context, tx *storage.Tx) (*storage.Record, error) {
		delta := elgamal.TrivialEncryption(l.curve, new(big.Int).SetUint64(amount))
		from.Balance = elgamal.NewCiphertext(l.curve).Sub(from.Balance, delta)
		if err := tx.SetAccount(from); err != nil {
			return nil, err
		}
		mv, err := l.gateway.Release(ctx, tx, from.Address, uint256.NewInt(amount))
		if err != nil {
			return nil, err
		}
		if !mv.Unconfirmed {
			p.compensate = func(ctx context.Context) {
				l.gateway.Reclaim(ctx, from.Address, uint256.NewInt(amount))
			}
		}
		return &storage.Record{
			From:        &from.Address,
			SenderDelta: delta,
			PlainAmount: amount,
			Unconfirmed: mv.Unconfirmed,
		}, nil
	}
	return p, nil
}

func (*BurnRequest) kind() storage.OpKind { return storage.OpBurn }

func (req *BurnRequest) prepare(l *Ledger, r accountReader) (*pending, error) {
	if l.gateway != nil {
		return nil, fmt.Errorf("%w: burn", ErrConverterMode)
	}
	amount, err := l.ciphertext(req.Amount, "amount")
	if err != nil {
		return nil, err
	}
	from, err := l.account(r, req.From)
	if err != nil {
		return nil, err
	}
	return &pending{
		vkind:  verifier.KindBurn,
		inputs: verifier.BurnPublicInputs(from.PublicKey, from.Balance, amount),
		proof:  req.Proof,
		apply: func(_ context.Context, tx *storage.Tx) (*storage.Record, error) {
			from.Balance = elgamal.NewCiphertext(l.curve).Sub(from.Balance, amount)
			if err := tx.SetAccount(from); err != nil {
				return nil, err
			}
			return &storage.Record{
				From:        &from.Address,
				SenderDelta: amount,
			}, nil
		},
	}, nil
}

func (*DepositRequest) kind() storage.OpKind { return storage.OpDeposit }

func (req *DepositRequest) prepare(l *Ledger, r accountReader) (*pending, error) {
	if l.gateway == nil {
		return nil, fmt.Errorf("%w: deposit", ErrNotConverter)
	}
	if err := plainAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.Nonce == nil || req.Nonce.Sign() < 0 || req.Nonce.BitLen() > 256 {
		return nil, fmt.Errorf("%w: missing deposit nonce", ErrInvalidInput)
	}
	to, err := l.account(r, req.From)
	if err != nil {
		return nil, err
	}
	p := &pending{noProof: true}
	amount := req.Amount
	nonce := new(big.Int).Set(req.Nonce)
	p.apply = func(ctx context.Context, tx *storage.Tx) (*storage.Record, error) {
		if err := tx.UseDepositNonce(to.Address, nonce); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return nil, fmt.Errorf("%w: %s", ErrNonceUsed, nonce.String())
			}
			return nil, err
		}
		delta, err := elgamal.NewCiphertext(l.curve).Encrypt(new(big.Int).SetUint64(amount), to.PublicKey, nil)
		if err != nil {
			return nil, fmt.Errorf("encrypt deposit: %w", err)
		}
		to.Balance = elgamal.NewCiphertext(l.curve).Add(to.Balance, delta)
		if err := tx.SetAccount(to); err != nil {
			return nil, err
		}
		mv, err := l.gateway.Deposit(ctx, tx, to.Address, uint256.NewInt(amount))
		if err != nil {
			return nil, err
		}
		if !mv.Unconfirmed {
			p.compensate = func(ctx context.Context) {
				l.gateway.Refund(ctx, to.Address, uint256.NewInt(amount))
			}
		}
		return &storage.Record{
			To:            &to.Address,
			ReceiverDelta: delta,
			PlainAmount:   amount,
			Nullifier:     types.NewBigInt(nonce),
			Unconfirmed:   mv.Unconfirmed,
		}, nil
	}
	return p, nil
}
