package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/holiman/uint256"
	"github.com/vocdoni/eerc-node/converter"
	"github.com/vocdoni/eerc-node/crypto/ecc/curves"
	"github.com/vocdoni/eerc-node/crypto/ethereum"
	"github.com/vocdoni/eerc-node/ledger"
	"github.com/vocdoni/eerc-node/storage"
	"github.com/vocdoni/eerc-node/types"
	"github.com/vocdoni/eerc-node/verifier"
	"github.com/vocdoni/eerc-node/verifier/testverifier"
	"go.vocdoni.io/dvote/db/metadb"
)

const testChainID = 1

func newTestAPI(c *qt.C) (*API, string) {
	a, url, _ := newTestAPIWithToken(c, nil)
	return a, url
}

// newTestAPIWithToken serves a converter ledger when token is set.
func newTestAPIWithToken(c *qt.C, token converter.Token) (*API, string, *testverifier.Verifier) {
	st, err := storage.New(metadb.NewTest(c))
	c.Assert(err, qt.IsNil)
	tv := testverifier.New(curves.New(storage.CurveType), 0)
	l, err := ledger.New(st, ledger.Config{
		Name:      "Encrypted Test",
		Symbol:    "eTST",
		ChainID:   testChainID,
		Verifiers: tv.Set(),
		Token:     token,
	})
	c.Assert(err, qt.IsNil)
	a, err := New(&APIConfig{Host: "127.0.0.1", Port: 0, Ledger: l})
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
		_ = st.Close()
	})
	return a, fmt.Sprintf("http://%s", a.Addr().String()), tv
}

// doRequest returns the status and the decoded error code, if any.
func doRequest(c *qt.C, method, url string, body []byte) (int, int) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	c.Assert(err, qt.IsNil)
	resp, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	if resp.StatusCode == http.StatusOK {
		return resp.StatusCode, 0
	}
	var apiErr struct {
		Code int `json:"code"`
	}
	c.Assert(json.Unmarshal(data, &apiErr), qt.IsNil, qt.Commentf("body: %s", data))
	return resp.StatusCode, apiErr.Code
}

func TestAPIErrors(t *testing.T) {
	c := qt.New(t)
	_, url := newTestAPI(c)

	status, _ := doRequest(c, http.MethodGet, url+PingEndpoint, nil)
	c.Assert(status, qt.Equals, http.StatusOK)

	tests := []struct {
		method string
		path   string
		body   string
		status int
		code   int
	}{
		{http.MethodPost, TransfersEndpoint, "{not json", http.StatusBadRequest, ErrMalformedBody.Code},
		{http.MethodGet, "/accounts/0xzz", "", http.StatusBadRequest, ErrMalformedAddress.Code},
		{http.MethodGet, "/accounts/0x0000000000000000000000000000000000000001", "", http.StatusNotFound, ErrUnregistered.Code},
		{http.MethodGet, "/accounts/0x0000000000000000000000000000000000000001/proof", "", http.StatusNotFound, ErrUnregistered.Code},
		{http.MethodGet, "/records/abc", "", http.StatusBadRequest, ErrMalformedParam.Code},
		{http.MethodGet, "/records/3", "", http.StatusNotFound, ErrRecordNotFound.Code},
		{http.MethodGet, RecordsEndpoint + "?limit=-1", "", http.StatusBadRequest, ErrMalformedParam.Code},
		{http.MethodGet, RecordsEndpoint + "?from=x", "", http.StatusBadRequest, ErrMalformedParam.Code},
		{http.MethodGet, ReserveEndpoint, "", http.StatusBadRequest, ErrNotConverter.Code},
		{http.MethodPost, DepositsEndpoint, `{"from":"0x0000000000000000000000000000000000000001","amount":1}`, http.StatusBadRequest, ErrInvalidInput.Code},
		{http.MethodPost, DepositsEndpoint, `{"from":"0x0000000000000000000000000000000000000001","amount":1,"nonce":"1"}`, http.StatusBadRequest, ErrInvalidSignature.Code},
		{http.MethodPost, MintsEndpoint, `{"to":"0x0000000000000000000000000000000000000001"}`, http.StatusBadRequest, ErrInvalidInput.Code},
		{http.MethodPost, RegistrationsEndpoint, `{"address":"0x0000000000000000000000000000000000000001","publicKey":{}}`, http.StatusBadRequest, ErrInvalidPoint.Code},
		{http.MethodPost, RegistrationsEndpoint, `{"address":"0x0000000000000000000000000000000000000001","publicKey":{"x":"1","y":"2"}}`, http.StatusBadRequest, ErrInvalidPoint.Code},
		{http.MethodPost, BurnsEndpoint, `{"from":"0x0000000000000000000000000000000000000001"}`, http.StatusBadRequest, ErrInvalidInput.Code},
	}
	for _, tt := range tests {
		status, code := doRequest(c, tt.method, url+tt.path, []byte(tt.body))
		c.Assert(status, qt.Equals, tt.status, qt.Commentf("%s %s", tt.method, tt.path))
		c.Assert(code, qt.Equals, tt.code, qt.Commentf("%s %s", tt.method, tt.path))
	}
}

func TestReadEndpoints(t *testing.T) {
	c := qt.New(t)
	_, url := newTestAPI(c)

	get := func(path string, out any) {
		resp, err := http.Get(url + path)
		c.Assert(err, qt.IsNil)
		defer resp.Body.Close()
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(json.NewDecoder(resp.Body).Decode(out), qt.IsNil)
	}

	info := &ledger.Info{}
	get(InfoEndpoint, info)
	c.Assert(info.Symbol, qt.Equals, "eTST")
	c.Assert(info.Converter, qt.IsFalse)

	records := &Records{}
	get(RecordsEndpoint, records)
	c.Assert(records.Records, qt.HasLen, 0)
	c.Assert(records.Total, qt.Equals, uint64(0))

	root := &StateRoot{}
	get(StateRootEndpoint, root)
	c.Assert(root.Root, qt.Not(qt.HasLen), 0)
}

func TestErrorWrapping(t *testing.T) {
	c := qt.New(t)
	err := ledgerError(fmt.Errorf("%w: 0x01", ledger.ErrUnregistered))
	c.Assert(err.Code, qt.Equals, ErrUnregistered.Code)
	c.Assert(err.Error(), qt.Equals, "account not registered: 0x01")

	err = ledgerError(ledger.ErrInsufficientReserve)
	c.Assert(err.Code, qt.Equals, ErrReserveInconsistent.Code)
	err = ledgerError(fmt.Errorf("disk full"))
	c.Assert(err.Code, qt.Equals, ErrGenericInternalServerError.Code)
	c.Assert(err.Error(), qt.Equals, "internal server error: disk full")
	c.Assert(errors.Is(err, ErrGenericInternalServerError), qt.IsTrue)

	err = ledgerError(fmt.Errorf("%w: transfer", ledger.ErrInvalidProof))
	c.Assert(errors.Is(err, ErrInvalidProof), qt.IsTrue)
	c.Assert(errors.Is(err, ledger.ErrInvalidProof), qt.IsTrue)
	c.Assert(errors.Is(err, ErrInvalidInput), qt.IsFalse)

	e := ErrMalformedParam.Withf("%s: %d", "limit", 5)
	c.Assert(e.Error(), qt.Equals, "malformed parameter: limit: 5")
	data, jerr := json.Marshal(e)
	c.Assert(jerr, qt.IsNil)
	c.Assert(string(data), qt.Equals, `{"error":"malformed parameter: limit: 5","code":40009}`)
}

func TestDepositAuthorization(t *testing.T) {
	c := qt.New(t)
	custodian := common.HexToAddress("0xc0570")
	token := converter.NewMemoryToken(common.HexToAddress("0x70c0"), custodian)
	a, url, tv := newTestAPIWithToken(c, token)

	holder, other := ethereum.NewSignKeys(), ethereum.NewSignKeys()
	c.Assert(holder.Generate(), qt.IsNil)
	c.Assert(other.Generate(), qt.IsNil)
	owner := holder.Address()
	pk, _, err := tv.GenerateKey()
	c.Assert(err, qt.IsNil)
	c.Assert(a.ledger.Register(context.Background(), owner, pk, big.NewInt(1),
		testverifier.Prove(verifier.KindRegistration,
			verifier.RegistrationPublicInputs(pk, owner, testChainID, big.NewInt(1)))), qt.IsNil)
	c.Assert(token.Mint(owner, uint256.NewInt(10)), qt.IsNil)
	token.Approve(owner, custodian, uint256.NewInt(10))

	deposit := func(signer *ethereum.SignKeys, signed, sent uint64, nonce int64) (int, int) {
		sig, err := signer.SignEthereum(DepositMessage(testChainID, owner, signed, big.NewInt(nonce)))
		c.Assert(err, qt.IsNil)
		body, err := json.Marshal(&Deposit{From: owner, Amount: sent, Nonce: types.NewInt(nonce), Signature: sig})
		c.Assert(err, qt.IsNil)
		return doRequest(c, http.MethodPost, url+DepositsEndpoint, body)
	}

	// the allowance alone does not authorize a deposit
	status, code := deposit(other, 4, 4, 1)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(code, qt.Equals, ErrInvalidSignature.Code)
	_, code = deposit(holder, 4, 5, 1)
	c.Assert(code, qt.Equals, ErrInvalidSignature.Code)
	c.Assert(token.BalanceOf(owner).Uint64(), qt.Equals, uint64(10))

	status, _ = deposit(holder, 4, 4, 1)
	c.Assert(status, qt.Equals, http.StatusOK)
	status, code = deposit(holder, 4, 4, 1)
	c.Assert(status, qt.Equals, http.StatusConflict)
	c.Assert(code, qt.Equals, ErrDepositNonceUsed.Code)
	status, _ = deposit(holder, 4, 4, 2)
	c.Assert(status, qt.Equals, http.StatusOK)

	c.Assert(token.BalanceOf(owner).Uint64(), qt.Equals, uint64(2))
	c.Assert(token.BalanceOf(custodian).Uint64(), qt.Equals, uint64(8))
}
