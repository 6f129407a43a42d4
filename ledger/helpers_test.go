package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/holiman/uint256"
	"github.com/vocdoni/eerc-node/converter"
	"github.com/vocdoni/eerc-node/crypto/ecc"
	"github.com/vocdoni/eerc-node/crypto/ecc/curves"
	"github.com/vocdoni/eerc-node/crypto/elgamal"
	"github.com/vocdoni/eerc-node/storage"
	"github.com/vocdoni/eerc-node/verifier"
	"github.com/vocdoni/eerc-node/verifier/testverifier"
	"go.vocdoni.io/dvote/db/metadb"
)

const testChainID = 1337

var (
	alice     = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol     = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	minter    = common.HexToAddress("0x000000000000000000000000000000000000d00d")
	tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000070c0")
	custodian = common.HexToAddress("0x00000000000000000000000000000000000c0570")
)

// testLedger drives a ledger with valid test proofs.
type testLedger struct {
	*Ledger
	c     *qt.C
	tv    *testverifier.Verifier
	token *converter.MemoryToken
	keys  map[common.Address]*big.Int
	curve ecc.Point
	nonce uint64
}

// newTestLedger returns a ledger with test verifiers. The options can
// replace parts of the configuration before the ledger is created.
func newTestLedger(c *qt.C, converterMode bool, opts ...func(*Config)) *testLedger {
	st, err := storage.New(metadb.NewTest(c))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = st.Close() })

	curve := curves.New(storage.CurveType)
	tv := testverifier.New(curve, 0)
	conf := Config{
		Name:       "Encrypted Test",
		Symbol:     "eTST",
		Decimals:   2,
		ChainID:    testChainID,
		Verifiers:  tv.Set(),
		MintPolicy: AllowList(minter),
	}
	tl := &testLedger{c: c, tv: tv, keys: make(map[common.Address]*big.Int), curve: curve}
	if converterMode {
		tl.token = converter.NewMemoryToken(tokenAddr, custodian)
		conf.Token = tl.token
	}
	for _, opt := range opts {
		opt(&conf)
	}
	tl.Ledger, err = New(st, conf)
	c.Assert(err, qt.IsNil)
	return tl
}

// register creates a key for account and registers it.
func (tl *testLedger) register(account common.Address) ecc.Point {
	pk, sk, err := tl.tv.GenerateKey()
	tl.c.Assert(err, qt.IsNil)
	hash := big.NewInt(int64(len(tl.keys) + 1))
	proof := testverifier.Prove(verifier.KindRegistration,
		verifier.RegistrationPublicInputs(pk, account, testChainID, hash))
	tl.c.Assert(tl.Register(context.Background(), account, pk, hash, proof), qt.IsNil)
	tl.keys[account] = sk
	return pk
}

func (tl *testLedger) publicKey(account common.Address) ecc.Point {
	acc, err := tl.Account(account)
	tl.c.Assert(err, qt.IsNil)
	return acc.PublicKey
}

func (tl *testLedger) currentBalance(account common.Address) *elgamal.Ciphertext {
	bal, err := tl.Balance(account)
	tl.c.Assert(err, qt.IsNil)
	return bal
}

// balance decrypts the balance of account.
func (tl *testLedger) balance(account common.Address) uint64 {
	m, err := tl.currentBalance(account).Decrypt(tl.keys[account], testverifier.DefaultMaxValue)
	tl.c.Assert(err, qt.IsNil)
	return m.Uint64()
}

func (tl *testLedger) encrypt(account common.Address, amount uint64) *elgamal.Ciphertext {
	ct, err := elgamal.NewCiphertext(tl.curve).Encrypt(new(big.Int).SetUint64(amount), tl.publicKey(account), nil)
	tl.c.Assert(err, qt.IsNil)
	return ct
}

func (tl *testLedger) mintRequest(to common.Address, amount uint64, nullifier int64) *MintRequest {
	ct := tl.encrypt(to, amount)
	n := big.NewInt(nullifier)
	return &MintRequest{
		Minter:    minter,
		To:        to,
		Amount:    ct,
		Nullifier: n,
		Proof: testverifier.Prove(verifier.KindMint,
			verifier.MintPublicInputs(testChainID, n, tl.publicKey(to), ct)),
	}
}

// transferRequest builds a transfer proven against the current balance of
// from.
func (tl *testLedger) transferRequest(from, to common.Address, amount uint64) *TransferRequest {
	sd := tl.encrypt(from, amount)
	rd := tl.encrypt(to, amount)
	return &TransferRequest{
		From:          from,
		To:            to,
		SenderDelta:   sd,
		ReceiverDelta: rd,
		Proof: testverifier.Prove(verifier.KindTransfer, verifier.TransferPublicInputs(
			tl.publicKey(from), tl.currentBalance(from), sd, tl.publicKey(to), rd)),
	}
}

func (tl *testLedger) withdrawRequest(from common.Address, amount uint64) *WithdrawRequest {
	return &WithdrawRequest{
		From:   from,
		Amount: amount,
		Proof: testverifier.Prove(verifier.KindWithdraw,
			verifier.WithdrawPublicInputs(tl.publicKey(from), tl.currentBalance(from), amount)),
	}
}

func (tl *testLedger) burnRequest(from common.Address, amount uint64) *BurnRequest {
	ct := tl.encrypt(from, amount)
	return &BurnRequest{
		From:   from,
		Amount: ct,
		Proof: testverifier.Prove(verifier.KindBurn,
			verifier.BurnPublicInputs(tl.publicKey(from), tl.currentBalance(from), ct)),
	}
}

// depositRequest builds a deposit with a fresh nonce.
func (tl *testLedger) depositRequest(from common.Address, amount uint64) *DepositRequest {
	tl.nonce++
	return &DepositRequest{From: from, Amount: amount, Nonce: new(big.Int).SetUint64(tl.nonce)}
}

// supply returns the sum of the decrypted balances.
func (tl *testLedger) supply() uint64 {
	var total uint64
	for account := range tl.keys {
		total += tl.balance(account)
	}
	return total
}

// fund gives account plaintext tokens and approves the custodian.
func (tl *testLedger) fund(account common.Address, amount uint64) {
	tl.c.Assert(tl.token.Mint(account, uint256.NewInt(amount)), qt.IsNil)
	allowance := tl.token.Allowance(account, custodian)
	tl.token.Approve(account, custodian, allowance.AddUint64(allowance, amount))
}

func (tl *testLedger) reserve() uint64 {
	r, err := tl.Reserve()
	tl.c.Assert(err, qt.IsNil)
	return r.Uint64()
}

// snapshot captures the observable state to check that a rejected
// operation changed nothing.
type snapshot struct {
	Root     []byte
	Records  uint64
	Balances map[common.Address]string
	Reserve  uint64
	Custody  uint64
}

func (tl *testLedger) snapshot() *snapshot {
	root, err := tl.StateRoot()
	tl.c.Assert(err, qt.IsNil)
	count, err := tl.RecordCount()
	tl.c.Assert(err, qt.IsNil)
	s := &snapshot{Root: root, Records: count, Balances: make(map[common.Address]string)}
	for account := range tl.keys {
		s.Balances[account] = tl.currentBalance(account).String()
	}
	if tl.token != nil {
		s.Reserve = tl.reserve()
		s.Custody = tl.token.BalanceOf(custodian).Uint64()
	}
	return s
}

func (tl *testLedger) assertUnchanged(before *snapshot) {
	tl.c.Helper()
	tl.c.Assert(tl.snapshot(), qt.DeepEquals, before)
}
