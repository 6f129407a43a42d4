package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/eerc-node/crypto/elgamal"
	"github.com/vocdoni/eerc-node/ledger"
	"github.com/vocdoni/eerc-node/log"
	"github.com/vocdoni/eerc-node/storage"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// decodeBody decodes the JSON request body into v, writing the error
// response when it fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return false
	}
	return true
}

// addressParam parses the address URL parameter, writing the error
// response when it is malformed.
func addressParam(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	s := chi.URLParam(r, AddressURLParam)
	if !common.IsHexAddress(s) {
		ErrMalformedAddress.Withf("%q", s).Write(w)
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

// MintMessage returns the message a minter signs to authorize a mint. The
// nullifier makes every signature single use.
func MintMessage(chainID uint64, to common.Address, nullifier *big.Int, amount *elgamal.Ciphertext) []byte {
	return []byte(fmt.Sprintf("eerc mint\nchain: %d\nto: %s\nnullifier: %s\namount: %x",
		chainID, to.Hex(), nullifier.String(), amount.Serialize()))
}

// DepositMessage returns the message an account signs to authorize a
// deposit of its tokens.
func DepositMessage(chainID uint64, from common.Address, amount uint64, nonce *big.Int) []byte {
	return []byte(fmt.Sprintf("eerc deposit\nchain: %d\nfrom: %s\namount: %d\nnonce: %s",
		chainID, from.Hex(), amount, nonce.String()))
}

// ledgerError maps the ledger errors to API errors.
func ledgerError(err error) Error {
	var apiErr Error
	switch {
	case errors.Is(err, ledger.ErrUnregistered):
		apiErr = ErrUnregistered
	case errors.Is(err, ledger.ErrAlreadyRegistered):
		apiErr = ErrAlreadyRegistered
	case errors.Is(err, ledger.ErrRegistrationHashUsed):
		apiErr = ErrRegistrationHashUsed
	case errors.Is(err, ledger.ErrInvalidPoint):
		apiErr = ErrInvalidPoint
	case errors.Is(err, ledger.ErrInvalidProof):
		apiErr = ErrInvalidProof
	case errors.Is(err, ledger.ErrNullifierUsed):
		apiErr = ErrNullifierUsed
	case errors.Is(err, ledger.ErrNonceUsed):
		apiErr = ErrDepositNonceUsed
	case errors.Is(err, ledger.ErrInvalidAmount):
		apiErr = ErrInvalidAmount
	case errors.Is(err, ledger.ErrInvalidInput):
		apiErr = ErrInvalidInput
	case errors.Is(err, ledger.ErrUnauthorized):
		apiErr = ErrUnauthorized
	case errors.Is(err, ledger.ErrNotConverter):
		apiErr = ErrNotConverter
	case errors.Is(err, ledger.ErrConverterMode):
		apiErr = ErrConverterMode
	case errors.Is(err, ledger.ErrTokenTransfer):
		apiErr = ErrTokenTransferFailed
	case errors.Is(err, ledger.ErrReserveOverflow):
		apiErr = ErrReserveOverflow
	case errors.Is(err, ledger.ErrInsufficientReserve):
		return ErrReserveInconsistent
	case errors.Is(err, storage.ErrNotFound):
		apiErr = ErrResourceNotFound
	default:
		return ErrGenericInternalServerError.WithErr(err)
	}
	return Error{Err: err, Code: apiErr.Code, HTTPstatus: apiErr.HTTPstatus}
}
