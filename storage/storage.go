// Package storage persists the ledger state in a prefixed key-value store.
// All the mutations of one operation go through a single Tx, so balances,
// the operation log, the state tree and the custody reserve are committed
// atomically. The following prefixes are used:
//   - 'a/' for accounts
//   - 'r/' for operation records
//   - 'n/' for spent mint nullifiers
//   - 'h/' for spent registration hashes
//   - 'd/' for spent deposit nonces, per account
//   - 'm/' for metadata (record count, custody reserve)
//   - 'u/' for the indexes of records with unconfirmed token movements
//   - 't/' for the state tree
package storage

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/eerc-node/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	accountPrefix   = []byte("a/")
	recordPrefix    = []byte("r/")
	nullifierPrefix = []byte("n/")
	regHashPrefix   = []byte("h/")
	depositPrefix   = []byte("d/")
	metadataPrefix  = []byte("m/")
	treePrefix      = []byte("t/")
	pendingPrefix   = []byte("u/")

	recordCountKey = []byte("recordCount")
	reserveKey     = []byte("reserve")
)

var (
	// ErrNotFound is returned when an artifact is not found in the storage.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a single-use key is written twice.
	ErrAlreadyExists = errors.New("already exists")
)

// hashFunction is used by the state tree.
var hashFunction = arbo.HashFunctionSha256

// Storage wraps the database and the state tree.
type Storage struct {
	db      db.Database
	tree    *arbo.Tree
	writeMu sync.Mutex
}

// New creates a new Storage instance over the given database, opening the
// state tree stored in it.
func New(database db.Database) (*Storage, error) {
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(database, treePrefix),
		MaxLevels:    types.StateTreeMaxLevels,
		HashFunction: hashFunction,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open state tree: %w", err)
	}
	return &Storage{db: database, tree: tree}, nil
}

// Close closes the storage.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Account returns the account stored for address or ErrNotFound.
func (s *Storage) Account(address common.Address) (*Account, error) {
	return readAccount(s.db, address)
}

func readAccount(r db.Reader, address common.Address) (*Account, error) {
	data, err := prefixeddb.NewPrefixedReader(r, accountPrefix).Get(address.Bytes())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entry := &accountEntry{}
	if err := decodeArtifact(data, entry); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", address, err)
	}
	return entry.account(address)
}

// HasAccount reports whether address is registered.
func (s *Storage) HasAccount(address common.Address) (bool, error) {
	_, err := s.Account(address)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Accounts returns every registered account in address order.
func (s *Storage) Accounts() ([]*Account, error) {
	var accounts []*Account
	var decodeErr error
	pr := prefixeddb.NewPrefixedReader(s.db, accountPrefix)
	if err := pr.Iterate(nil, func(k, v []byte) bool {
		entry := &accountEntry{}
		if decodeErr = decodeArtifact(v, entry); decodeErr != nil {
			return false
		}
		acc, err := entry.account(common.BytesToAddress(k))
		if err != nil {
			decodeErr = err
			return false
		}
		accounts = append(accounts, acc)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, decodeErr
}

// NullifierUsed reports whether the mint nullifier was already spent.
func (s *Storage) NullifierUsed(nullifier *big.Int) (bool, error) {
	return has(s.db, nullifierPrefix, arbo.BigIntToBytes(32, nullifier))
}

// RegistrationHashUsed reports whether the registration hash was already
// spent.
func (s *Storage) RegistrationHashUsed(hash *big.Int) (bool, error) {
	return has(s.db, regHashPrefix, arbo.BigIntToBytes(32, hash))
}

// DepositNonceUsed reports whether account already used the deposit nonce.
func (s *Storage) DepositNonceUsed(account common.Address, nonce *big.Int) (bool, error) {
	return has(s.db, depositPrefix, depositKey(account, nonce))
}

func has(r db.Reader, prefix, key []byte) (bool, error) {
	_, err := prefixeddb.NewPrefixedReader(r, prefix).Get(key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// RecordCount returns the number of operation records.
func (s *Storage) RecordCount() (uint64, error) {
	return readRecordCount(s.db)
}

func readRecordCount(r db.Reader) (uint64, error) {
	data, err := prefixeddb.NewPrefixedReader(r, metadataPrefix).Get(recordCountKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var count uint64
	if err := decodeArtifact(data, &count); err != nil {
		return 0, fmt.Errorf("decode record count: %w", err)
	}
	return count, nil
}

// Record returns the record with the given index or ErrNotFound.
func (s *Storage) Record(index uint64) (*Record, error) {
	data, err := prefixeddb.NewPrefixedReader(s.db, recordPrefix).Get(indexKey(index))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec := &Record{}
	if err := decodeArtifact(data, rec); err != nil {
		return nil, fmt.Errorf("decode record %d: %w", index, err)
	}
	return rec, nil
}

// Records returns up to limit records starting at index from.
func (s *Storage) Records(from uint64, limit int) ([]*Record, error) {
	count, err := s.RecordCount()
	if err != nil {
		return nil, err
	}
	records := []*Record{}
	for i := from; i < count && len(records) < limit; i++ {
		rec, err := s.Record(i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Unconfirmed returns the records whose token movement was sent but not
// confirmed, in index order.
func (s *Storage) Unconfirmed() ([]*Record, error) {
	var indexes []uint64
	pr := prefixeddb.NewPrefixedReader(s.db, pendingPrefix)
	if err := pr.Iterate(nil, func(k, _ []byte) bool {
		indexes = append(indexes, keyIndex(k))
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate unconfirmed records: %w", err)
	}
	records := make([]*Record, 0, len(indexes))
	for _, i := range indexes {
		rec, err := s.Record(i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Reserve returns the custody reserve, zero if never set.
func (s *Storage) Reserve() (*uint256.Int, error) {
	return readReserve(s.db)
}

func readReserve(r db.Reader) (*uint256.Int, error) {
	data, err := prefixeddb.NewPrefixedReader(r, metadataPrefix).Get(reserveKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return new(uint256.Int), nil
		}
		return nil, err
	}
	return new(uint256.Int).SetBytes(data), nil
}

// StateRoot returns the current root of the state tree.
func (s *Storage) StateRoot() (types.HexBytes, error) {
	return s.tree.Root()
}

// AccountProof returns the state tree proof of the account leaf.
func (s *Storage) AccountProof(address common.Address) (*AccountProof, error) {
	root, err := s.tree.Root()
	if err != nil {
		return nil, err
	}
	_, leafV, siblings, existence, err := s.tree.GenProof(address.Bytes())
	if err != nil {
		return nil, fmt.Errorf("could not generate proof: %w", err)
	}
	return &AccountProof{
		Address:   address,
		Root:      root,
		LeafValue: leafV,
		Siblings:  siblings,
		Existence: existence,
	}, nil
}

// VerifyAccountProof checks an inclusion proof against its root and the
// expected account state.
func VerifyAccountProof(proof *AccountProof, account *Account) (bool, error) {
	if !proof.Existence {
		return false, nil
	}
	leaf := AccountLeaf(account)
	return arbo.CheckProof(hashFunction, proof.Address.Bytes(), leaf, proof.Root, proof.Siblings)
}

// AccountLeaf returns the state tree leaf value of an account, the sha256
// of its public key and balance.
func AccountLeaf(account *Account) []byte {
	h := sha256.New()
	x, y := account.PublicKey.Point()
	h.Write(arbo.BigIntToBytes(32, x))
	h.Write(arbo.BigIntToBytes(32, y))
	h.Write(account.Balance.Serialize())
	return h.Sum(nil)
}
