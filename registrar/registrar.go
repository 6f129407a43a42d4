// Package registrar binds accounts to their encryption public keys. A
// binding is written once, after the registration proof is accepted, and is
// never overwritten. Registering also creates the account balance as the
// encryption of zero.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/eerc-node/crypto/ecc"
	"github.com/vocdoni/eerc-node/crypto/ecc/curves"
	"github.com/vocdoni/eerc-node/crypto/elgamal"
	"github.com/vocdoni/eerc-node/log"
	"github.com/vocdoni/eerc-node/storage"
	"github.com/vocdoni/eerc-node/verifier"
)

var (
	// ErrUnregistered is returned for accounts without a public key.
	ErrUnregistered = errors.New("account not registered")
	// ErrAlreadyRegistered is returned when an account registers twice.
	ErrAlreadyRegistered = errors.New("account already registered")
	// ErrRegistrationHashUsed is returned when a registration hash is reused.
	ErrRegistrationHashUsed = errors.New("registration hash already used")
	// ErrInvalidPoint is returned for public keys that are not valid
	// subgroup points or are the identity.
	ErrInvalidPoint = errors.New("invalid public key")
	// ErrInvalidProof is returned when the registration proof is rejected.
	ErrInvalidProof = errors.New("invalid proof")
)

// Registrar stores the account to public key bindings.
type Registrar struct {
	storage   *storage.Storage
	verifiers *verifier.Set
	chainID   uint64
}

// New returns a Registrar over st that accepts registrations checked by the
// registration verifier of vs for the given chain.
func New(st *storage.Storage, vs *verifier.Set, chainID uint64) (*Registrar, error) {
	if st == nil {
		return nil, fmt.Errorf("nil storage")
	}
	if vs == nil || !vs.Has(verifier.KindRegistration) {
		return nil, fmt.Errorf("nil registration verifier")
	}
	return &Registrar{storage: st, verifiers: vs, chainID: chainID}, nil
}

// ChainID returns the chain the registrations are bound to.
func (r *Registrar) ChainID() uint64 {
	return r.chainID
}

// RegistrationHash returns poseidon(chainID, account, pkX, pkY), the hash a
// registration proof commits to when the client does not choose one.
func RegistrationHash(chainID uint64, account common.Address, publicKey ecc.Point) (*big.Int, error) {
	x, y := publicKey.Point()
	return poseidon.Hash([]*big.Int{
		new(big.Int).SetUint64(chainID),
		verifier.AddressToBigInt(account),
		x, y,
	})
}

// Register binds publicKey to account if the registration proof is valid.
// A nil registrationHash is replaced by RegistrationHash. The key and an
// encrypted zero balance are stored in the same transaction that spends the
// registration hash.
func (r *Registrar) Register(ctx context.Context, account common.Address, publicKey ecc.Point,
	registrationHash *big.Int, proof []byte,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if publicKey == nil || !publicKey.IsValid() || publicKey.IsZero() {
		return ErrInvalidPoint
	}
	// keys are stored and compared on the ledger curve
	x, y := publicKey.Point()
	curve := curves.New(storage.CurveType)
	publicKey = curve.SetPoint(x, y)
	if !publicKey.IsValid() {
		return ErrInvalidPoint
	}
	if registrationHash == nil {
		var err error
		if registrationHash, err = RegistrationHash(r.chainID, account, publicKey); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPoint, err)
		}
	}

	tx := r.storage.Begin()
	defer tx.Discard()
	if _, err := tx.Account(account); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, account.Hex())
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	inputs := verifier.RegistrationPublicInputs(publicKey, account, r.chainID, registrationHash)
	if !r.verifiers.Verify(verifier.KindRegistration, inputs, proof) {
		log.Debugw("registration proof rejected", "account", account.Hex())
		return fmt.Errorf("%w: registration of %s", ErrInvalidProof, account.Hex())
	}
	if err := tx.UseRegistrationHash(registrationHash); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return fmt.Errorf("%w: %s", ErrRegistrationHashUsed, registrationHash.String())
		}
		return err
	}
	if err := tx.SetAccount(&storage.Account{
		Address:   account,
		PublicKey: publicKey,
		Balance:   elgamal.NewCiphertext(curve),
	}); err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	log.Infow("account registered", "account", account.Hex(), "publicKey", publicKey.String())
	return nil
}

// PublicKeyOf returns the public key of account or ErrUnregistered.
func (r *Registrar) PublicKeyOf(account common.Address) (ecc.Point, error) {
	acc, err := r.storage.Account(account)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnregistered, account.Hex())
		}
		return nil, err
	}
	return acc.PublicKey, nil
}

// IsRegistered reports whether account has a public key.
func (r *Registrar) IsRegistered(account common.Address) bool {
	ok, err := r.storage.HasAccount(account)
	if err != nil {
		log.Warnw("could not check registration", "account", account.Hex(), "error", err.Error())
		return false
	}
	return ok
}
