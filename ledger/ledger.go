// Package ledger implements the confidential token ledger. Balances are
// ElGamal ciphertexts and every balance change is admitted only when the
// proof of its operation kind is accepted. Each operation resolves the
// accounts involved, builds the public inputs from the ledger state and the
// submitted ciphertexts, verifies the proof and applies every update in a
// single storage transaction. Operations are totally ordered: only one
// storage transaction is open at a time.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/vocdoni/eerc-node/converter"
	"github.com/vocdoni/eerc-node/crypto/ecc"
	"github.com/vocdoni/eerc-node/crypto/ecc/curves"
	"github.com/vocdoni/eerc-node/crypto/elgamal"
	"github.com/vocdoni/eerc-node/log"
	"github.com/vocdoni/eerc-node/registrar"
	"github.com/vocdoni/eerc-node/storage"
	"github.com/vocdoni/eerc-node/types"
)

// Ledger is the encrypted token ledger.
type Ledger struct {
	conf      Config
	curve     ecc.Point
	storage   *storage.Storage
	registrar *registrar.Registrar
	gateway   *converter.Gateway
	// now returns the record timestamps
	now func() time.Time
}

// New returns a Ledger over st with the given configuration.
func New(st *storage.Storage, conf Config) (*Ledger, error) {
	if st == nil {
		return nil, fmt.Errorf("nil storage")
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger config: %w", err)
	}
	l := &Ledger{
		conf:    conf,
		curve:   curves.New(storage.CurveType),
		storage: st,
		now:     time.Now,
	}
	var err error
	if l.registrar, err = registrar.New(st, &l.conf.Verifiers, conf.ChainID); err != nil {
		return nil, err
	}
	if conf.IsConverter() {
		if l.gateway, err = converter.New(conf.Token); err != nil {
			return nil, err
		}
	}
	log.Infow("ledger ready", "name", conf.Name, "symbol", conf.Symbol,
		"chainID", conf.ChainID, "converter", conf.IsConverter())
	return l, nil
}

// Registrar returns the registrar of the ledger accounts.
func (l *Ledger) Registrar() *registrar.Registrar {
	return l.registrar
}

// Info returns the ledger description.
func (l *Ledger) Info() *Info {
	info := &Info{
		Name:      l.conf.Name,
		Symbol:    l.conf.Symbol,
		Decimals:  l.conf.Decimals,
		ChainID:   l.conf.ChainID,
		Converter: l.conf.IsConverter(),
	}
	if l.gateway != nil {
		token := l.gateway.Token()
		info.Token = &token
	}
	return info
}

// Register binds publicKey to account, see registrar.Registrar.Register.
func (l *Ledger) Register(ctx context.Context, account common.Address, publicKey ecc.Point,
	registrationHash *big.Int, proof []byte,
) error {
	err := l.registrar.Register(ctx, account, publicKey, registrationHash, proof)
	countResult(opRegistration, err)
	return err
}

// Account returns the account or ErrUnregistered.
func (l *Ledger) Account(account common.Address) (*storage.Account, error) {
	acc, err := l.storage.Account(account)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnregistered, account.Hex())
	}
	return acc, err
}

// Balance returns the encrypted balance of account.
func (l *Ledger) Balance(account common.Address) (*elgamal.Ciphertext, error) {
	acc, err := l.Account(account)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

// Record returns the operation record with the given index.
func (l *Ledger) Record(index uint64) (*storage.Record, error) {
	return l.storage.Record(index)
}

// Records returns up to limit records starting at index from. The limit is
// clamped to types.MaxRecordsPageSize, zero means the default page size.
func (l *Ledger) Records(from uint64, limit int) ([]*storage.Record, error) {
	switch {
	case limit <= 0:
		limit = types.DefaultRecordsPageSize
	case limit > types.MaxRecordsPageSize:
		limit = types.MaxRecordsPageSize
	}
	return l.storage.Records(from, limit)
}

// RecordCount returns the number of applied operations.
func (l *Ledger) RecordCount() (uint64, error) {
	return l.storage.RecordCount()
}

// Reserve returns the custody reserve, ErrNotConverter on standalone
// ledgers.
func (l *Ledger) Reserve() (*uint256.Int, error) {
	if l.gateway == nil {
		return nil, ErrNotConverter
	}
	return l.storage.Reserve()
}

// Unconfirmed returns the converter records whose token movement was sent
// but not confirmed and is not resolved yet.
func (l *Ledger) Unconfirmed() ([]*storage.Record, error) {
	if l.gateway == nil {
		return nil, ErrNotConverter
	}
	return l.storage.Unconfirmed()
}

// ResolveUnconfirmed marks the token movement of the record as reconciled.
// It returns storage.ErrNotFound if the record is not unconfirmed.
func (l *Ledger) ResolveUnconfirmed(index uint64) error {
	if l.gateway == nil {
		return ErrNotConverter
	}
	tx := l.storage.Begin()
	defer tx.Discard()
	if err := tx.ResolveUnconfirmed(index); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolution: %w", err)
	}
	log.Infow("unconfirmed token movement resolved", "index", index)
	return nil
}

// StateRoot returns the root of the account state tree.
func (l *Ledger) StateRoot() (types.HexBytes, error) {
	return l.storage.StateRoot()
}

// AccountProof returns the state tree proof of the account leaf.
func (l *Ledger) AccountProof(account common.Address) (*storage.AccountProof, error) {
	if _, err := l.Account(account); err != nil {
		return nil, err
	}
	return l.storage.AccountProof(account)
}
