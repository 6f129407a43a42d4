package api

import (
	"net/http"

	"github.com/vocdoni/eerc-node/crypto/ethereum"
	"github.com/vocdoni/eerc-node/ledger"
)

// mint adds an encrypted amount to a balance, authorized by the minter
// signature
// POST /mints
func (a *API) mint(w http.ResponseWriter, r *http.Request) {
	req := &Mint{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.Amount == nil || req.Nullifier == nil {
		ErrInvalidInput.With("missing amount or nullifier").Write(w)
		return
	}
	msg := MintMessage(a.ledger.Info().ChainID, req.To, req.Nullifier.MathBigInt(), req.Amount)
	signer, err := ethereum.AddrFromSignature(msg, req.Signature)
	if err != nil {
		ErrInvalidSignature.WithErr(err).Write(w)
		return
	}
	if signer != req.Minter {
		ErrInvalidSignature.Withf("signed by %s", signer.Hex()).Write(w)
		return
	}
	rec, err := a.ledger.Mint(r.Context(), &ledger.MintRequest{
		Minter:    req.Minter,
		To:        req.To,
		Amount:    req.Amount,
		Nullifier: req.Nullifier.MathBigInt(),
		Proof:     req.Proof,
	})
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, rec)
}

// transfer moves an encrypted amount between accounts
// POST /transfers
func (a *API) transfer(w http.ResponseWriter, r *http.Request) {
	req := &Transfer{}
	if !decodeBody(w, r, req) {
		return
	}
	rec, err := a.ledger.Transfer(r.Context(), &ledger.TransferRequest{
		From:          req.From,
		To:            req.To,
		SenderDelta:   req.SenderDelta,
		ReceiverDelta: req.ReceiverDelta,
		Proof:         req.Proof,
	})
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, rec)
}

// withdraw releases plaintext token from custody
// POST /withdrawals
func (a *API) withdraw(w http.ResponseWriter, r *http.Request) {
	req := &Withdrawal{}
	if !decodeBody(w, r, req) {
		return
	}
	rec, err := a.ledger.Withdraw(r.Context(), &ledger.WithdrawRequest{
		From:   req.From,
		Amount: req.Amount,
		Proof:  req.Proof,
	})
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, rec)
}

// burn destroys an encrypted amount, standalone ledgers only
// POST /burns
func (a *API) burn(w http.ResponseWriter, r *http.Request) {
	req := &Burn{}
	if !decodeBody(w, r, req) {
		return
	}
	rec, err := a.ledger.Burn(r.Context(), &ledger.BurnRequest{
		From:   req.From,
		Amount: req.Amount,
		Proof:  req.Proof,
	})
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, rec)
}

// deposit takes plaintext token into custody, authorized by the signature
// of the account over its nonce
// POST /deposits
func (a *API) deposit(w http.ResponseWriter, r *http.Request) {
	req := &Deposit{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.Nonce == nil {
		ErrInvalidInput.With("missing nonce").Write(w)
		return
	}
	msg := DepositMessage(a.ledger.Info().ChainID, req.From, req.Amount, req.Nonce.MathBigInt())
	signer, err := ethereum.AddrFromSignature(msg, req.Signature)
	if err != nil {
		ErrInvalidSignature.WithErr(err).Write(w)
		return
	}
	if signer != req.From {
		ErrInvalidSignature.Withf("signed by %s", signer.Hex()).Write(w)
		return
	}
	rec, err := a.ledger.Deposit(r.Context(), &ledger.DepositRequest{
		From:   req.From,
		Amount: req.Amount,
		Nonce:  req.Nonce.MathBigInt(),
	})
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, rec)
}
