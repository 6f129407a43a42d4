package api

import (
	"net/http"

	"github.com/vocdoni/eerc-node/crypto/ecc/curves"
	"github.com/vocdoni/eerc-node/log"
	"github.com/vocdoni/eerc-node/registrar"
	"github.com/vocdoni/eerc-node/storage"
	"github.com/vocdoni/eerc-node/types"
)

// register binds an account to its encryption key
// POST /registrations
func (a *API) register(w http.ResponseWriter, r *http.Request) {
	req := &Registration{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.PublicKey.X == nil || req.PublicKey.Y == nil {
		ErrInvalidPoint.With("missing public key coordinates").Write(w)
		return
	}
	pk := curves.New(storage.CurveType).SetPoint(req.PublicKey.X.MathBigInt(), req.PublicKey.Y.MathBigInt())
	hash := req.RegistrationHash.MathBigInt()
	if hash == nil {
		var err error
		if hash, err = registrar.RegistrationHash(a.ledger.Info().ChainID, req.Address, pk); err != nil {
			ErrInvalidPoint.WithErr(err).Write(w)
			return
		}
	}
	if err := a.ledger.Register(r.Context(), req.Address, pk, hash, req.Proof); err != nil {
		ledgerError(err).Write(w)
		return
	}
	log.Debugw("registration accepted", "address", req.Address.Hex())
	httpWriteJSON(w, &RegistrationResponse{Address: req.Address, RegistrationHash: types.NewBigInt(hash)})
}

// account returns the public key and the encrypted balance
// GET /accounts/{address}
func (a *API) account(w http.ResponseWriter, r *http.Request) {
	address, ok := addressParam(w, r)
	if !ok {
		return
	}
	acc, err := a.ledger.Account(address)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, &Account{
		Address:   acc.Address,
		PublicKey: NewPoint(acc.PublicKey),
		Balance:   acc.Balance,
	})
}

// accountProof returns the state tree proof of the account
// GET /accounts/{address}/proof
func (a *API) accountProof(w http.ResponseWriter, r *http.Request) {
	address, ok := addressParam(w, r)
	if !ok {
		return
	}
	proof, err := a.ledger.AccountProof(address)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, proof)
}
