package registrar

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/eerc-node/crypto/ecc/curves"
	"github.com/vocdoni/eerc-node/crypto/elgamal"
	"github.com/vocdoni/eerc-node/storage"
	"github.com/vocdoni/eerc-node/verifier"
	"github.com/vocdoni/eerc-node/verifier/testverifier"
	"go.vocdoni.io/dvote/db/metadb"
)

const chainID = 1337

var (
	alice = common.HexToAddress("0x0000000000000000000000000000000000000011")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000022")
)

func newTestRegistrar(c *qt.C) (*Registrar, *testverifier.Verifier, *storage.Storage) {
	st, err := storage.New(metadb.NewTest(c))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = st.Close() })
	tv := testverifier.New(curves.New(storage.CurveType), 0)
	vs := tv.Set()
	r, err := New(st, &vs, chainID)
	c.Assert(err, qt.IsNil)
	return r, tv, st
}

func TestRegister(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	r, tv, st := newTestRegistrar(c)

	pk, _, err := tv.GenerateKey()
	c.Assert(err, qt.IsNil)
	hash, err := RegistrationHash(chainID, alice, pk)
	c.Assert(err, qt.IsNil)
	proof := testverifier.Prove(verifier.KindRegistration,
		verifier.RegistrationPublicInputs(pk, alice, chainID, hash))

	c.Assert(r.IsRegistered(alice), qt.IsFalse)
	_, err = r.PublicKeyOf(alice)
	c.Assert(err, qt.ErrorIs, ErrUnregistered)

	// a nil hash defaults to RegistrationHash
	c.Assert(r.Register(ctx, alice, pk, nil, proof), qt.IsNil)
	c.Assert(r.IsRegistered(alice), qt.IsTrue)
	got, err := r.PublicKeyOf(alice)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Equal(pk), qt.IsTrue)

	acc, err := st.Account(alice)
	c.Assert(err, qt.IsNil)
	c.Assert(acc.Balance.IsZero(), qt.IsTrue)
	used, err := st.RegistrationHashUsed(hash)
	c.Assert(err, qt.IsNil)
	c.Assert(used, qt.IsTrue)

	// keys are never overwritten
	pk2, _, err := tv.GenerateKey()
	c.Assert(err, qt.IsNil)
	err = r.Register(ctx, alice, pk2, big.NewInt(7),
		testverifier.Prove(verifier.KindRegistration,
			verifier.RegistrationPublicInputs(pk2, alice, chainID, big.NewInt(7))))
	c.Assert(err, qt.ErrorIs, ErrAlreadyRegistered)
	got, err = r.PublicKeyOf(alice)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Equal(pk), qt.IsTrue)
}

func TestRegisterRejections(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	r, tv, _ := newTestRegistrar(c)
	curve := curves.New(storage.CurveType)

	pk, _, err := tv.GenerateKey()
	c.Assert(err, qt.IsNil)
	prove := func(account common.Address, hash int64) []byte {
		return testverifier.Prove(verifier.KindRegistration,
			verifier.RegistrationPublicInputs(pk, account, chainID, big.NewInt(hash)))
	}

	// identity key
	c.Assert(r.Register(ctx, bob, curve.New(), big.NewInt(1), prove(bob, 1)), qt.ErrorIs, ErrInvalidPoint)
	c.Assert(r.Register(ctx, bob, nil, big.NewInt(1), prove(bob, 1)), qt.ErrorIs, ErrInvalidPoint)

	// proof for another account
	c.Assert(r.Register(ctx, bob, pk, big.NewInt(1), prove(alice, 1)), qt.ErrorIs, ErrInvalidProof)
	// key unknown to the prover
	unknown, _, err := elgamal.GenerateKey(curve)
	c.Assert(err, qt.IsNil)
	c.Assert(r.Register(ctx, bob, unknown, big.NewInt(1), testverifier.Prove(verifier.KindRegistration,
		verifier.RegistrationPublicInputs(unknown, bob, chainID, big.NewInt(1)))), qt.ErrorIs, ErrInvalidProof)
	c.Assert(r.IsRegistered(bob), qt.IsFalse)

	// registration hashes are single use
	c.Assert(r.Register(ctx, alice, pk, big.NewInt(1), prove(alice, 1)), qt.IsNil)
	c.Assert(r.Register(ctx, bob, pk, big.NewInt(1), prove(bob, 1)), qt.ErrorIs, ErrRegistrationHashUsed)
	c.Assert(r.IsRegistered(bob), qt.IsFalse)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	c.Assert(r.Register(cancelled, bob, pk, big.NewInt(2), prove(bob, 2)), qt.ErrorIs, context.Canceled)
}

func TestRegistrationHash(t *testing.T) {
	c := qt.New(t)
	pk, _, err := elgamal.GenerateKey(curves.New(storage.CurveType))
	c.Assert(err, qt.IsNil)
	h1, err := RegistrationHash(chainID, alice, pk)
	c.Assert(err, qt.IsNil)
	h2, err := RegistrationHash(chainID, alice, pk)
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h2), qt.Equals, 0)
	h3, err := RegistrationHash(chainID+1, alice, pk)
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h3), qt.Not(qt.Equals), 0)
	h4, err := RegistrationHash(chainID, bob, pk)
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h4), qt.Not(qt.Equals), 0)
}

func TestNew(t *testing.T) {
	c := qt.New(t)
	_, err := New(nil, &verifier.Set{Registration: verifier.Reject}, chainID)
	c.Assert(err, qt.ErrorMatches, "nil storage")
	st, err := storage.New(metadb.NewTest(c))
	c.Assert(err, qt.IsNil)
	_, err = New(st, nil, chainID)
	c.Assert(err, qt.ErrorMatches, "nil registration verifier")
	_, err = New(st, &verifier.Set{Transfer: verifier.Reject}, chainID)
	c.Assert(err, qt.ErrorMatches, "nil registration verifier")
}

func TestRegisterVerifierPanic(t *testing.T) {
	c := qt.New(t)
	st, err := storage.New(metadb.NewTest(c))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = st.Close() })
	vs := &verifier.Set{Registration: verifier.Func(func([]*big.Int, []byte) bool {
		panic("malformed key")
	})}
	r, err := New(st, vs, chainID)
	c.Assert(err, qt.IsNil)

	pk, _, err := elgamal.GenerateKey(curves.New(storage.CurveType))
	c.Assert(err, qt.IsNil)
	err = r.Register(context.Background(), alice, pk, nil, []byte("proof"))
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)
	c.Assert(r.IsRegistered(alice), qt.IsFalse)
}
