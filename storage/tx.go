package storage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Tx groups the writes of one ledger operation. Nothing is visible until
// Commit; Discard drops every write. Only one Tx is open at a time: Begin
// blocks until the previous one is committed or discarded. A Tx is not safe
// for concurrent use.
type Tx struct {
	s    *Storage
	wTx  db.WriteTx
	done bool
}

// Begin starts a write transaction. The caller must always end it with
// Commit or Discard.
func (s *Storage) Begin() *Tx {
	s.writeMu.Lock()
	return &Tx{s: s, wTx: s.db.WriteTx()}
}

// Account reads an account including the writes of this transaction.
func (tx *Tx) Account(address common.Address) (*Account, error) {
	return readAccount(tx.wTx, address)
}

// SetAccount stores the account and updates its state tree leaf.
func (tx *Tx) SetAccount(account *Account) error {
	data, err := encodeArtifact(account.entry())
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	key := account.Address.Bytes()
	if err := prefixeddb.NewPrefixedWriteTx(tx.wTx, accountPrefix).Set(key, data); err != nil {
		return err
	}
	treeTx := prefixeddb.NewPrefixedWriteTx(tx.wTx, treePrefix)
	leaf := AccountLeaf(account)
	if _, _, err := tx.s.tree.GetWithTx(treeTx, key); err != nil {
		if !errors.Is(err, arbo.ErrKeyNotFound) {
			return fmt.Errorf("state tree get: %w", err)
		}
		if err := tx.s.tree.AddWithTx(treeTx, key, leaf); err != nil {
			return fmt.Errorf("state tree add: %w", err)
		}
		return nil
	}
	if err := tx.s.tree.UpdateWithTx(treeTx, key, leaf); err != nil {
		return fmt.Errorf("state tree update: %w", err)
	}
	return nil
}

// UseNullifier marks a mint nullifier as spent, ErrAlreadyExists if it was.
func (tx *Tx) UseNullifier(nullifier *big.Int) error {
	return tx.useOnce(nullifierPrefix, arbo.BigIntToBytes(32, nullifier))
}

// UseRegistrationHash marks a registration hash as spent, ErrAlreadyExists
// if it was.
func (tx *Tx) UseRegistrationHash(hash *big.Int) error {
	return tx.useOnce(regHashPrefix, arbo.BigIntToBytes(32, hash))
}

// UseDepositNonce marks the deposit nonce of account as spent,
// ErrAlreadyExists if it was.
func (tx *Tx) UseDepositNonce(account common.Address, nonce *big.Int) error {
	return tx.useOnce(depositPrefix, depositKey(account, nonce))
}

func (tx *Tx) useOnce(prefix, key []byte) error {
	used, err := has(tx.wTx, prefix, key)
	if err != nil {
		return err
	}
	if used {
		return ErrAlreadyExists
	}
	return prefixeddb.NewPrefixedWriteTx(tx.wTx, prefix).Set(key, []byte{1})
}

// Reserve returns the custody reserve including the writes of this
// transaction.
func (tx *Tx) Reserve() (*uint256.Int, error) {
	return readReserve(tx.wTx)
}

// SetReserve stores the custody reserve.
func (tx *Tx) SetReserve(reserve *uint256.Int) error {
	b := reserve.Bytes32()
	return prefixeddb.NewPrefixedWriteTx(tx.wTx, metadataPrefix).Set(reserveKey, b[:])
}

// StateRoot returns the state tree root including the writes of this
// transaction.
func (tx *Tx) StateRoot() ([]byte, error) {
	return tx.s.tree.RootWithTx(prefixeddb.NewPrefixedWriteTx(tx.wTx, treePrefix))
}

// AppendRecord assigns the next index to rec, sets its state root to the
// root after the writes done so far, and stores it. Record writes must be
// the last of the transaction.
func (tx *Tx) AppendRecord(rec *Record) error {
	count, err := readRecordCount(tx.wTx)
	if err != nil {
		return err
	}
	root, err := tx.StateRoot()
	if err != nil {
		return fmt.Errorf("state root: %w", err)
	}
	rec.Index = count
	rec.StateRoot = root
	data, err := encodeArtifact(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := prefixeddb.NewPrefixedWriteTx(tx.wTx, recordPrefix).Set(indexKey(count), data); err != nil {
		return err
	}
	if rec.Unconfirmed {
		if err := prefixeddb.NewPrefixedWriteTx(tx.wTx, pendingPrefix).Set(indexKey(count), []byte{1}); err != nil {
			return err
		}
	}
	countData, err := encodeArtifact(count + 1)
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(tx.wTx, metadataPrefix).Set(recordCountKey, countData)
}

// ResolveUnconfirmed drops the record with the given index from the
// unconfirmed set, once its token movement has been reconciled. The record
// itself is immutable and keeps its flag.
func (tx *Tx) ResolveUnconfirmed(index uint64) error {
	pending, err := has(tx.wTx, pendingPrefix, indexKey(index))
	if err != nil {
		return err
	}
	if !pending {
		return ErrNotFound
	}
	return prefixeddb.NewPrefixedWriteTx(tx.wTx, pendingPrefix).Delete(indexKey(index))
}

// Commit writes every change atomically.
func (tx *Tx) Commit() error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	tx.done = true
	defer tx.s.writeMu.Unlock()
	return tx.wTx.Commit()
}

// Discard drops the transaction. It is a no-op after Commit.
func (tx *Tx) Discard() {
	if tx.done {
		return
	}
	tx.done = true
	tx.wTx.Discard()
	tx.s.writeMu.Unlock()
}
