//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap (say, error code 4010, 4011 and 4013 exist, 4012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound     = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody        = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrInvalidSignature     = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid signature")}
	ErrMalformedAddress     = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrMalformedParam       = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrUnregistered         = Error{Code: 40010, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("account not registered")}
	ErrAlreadyRegistered    = Error{Code: 40011, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("account already registered")}
	ErrRegistrationHashUsed = Error{Code: 40012, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("registration hash already used")}
	ErrInvalidPoint         = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid curve point")}
	ErrInvalidProof         = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid proof")}
	ErrNullifierUsed        = Error{Code: 40015, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("mint nullifier already used")}
	ErrInvalidAmount        = Error{Code: 40016, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid amount")}
	ErrInvalidInput         = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid input")}
	ErrUnauthorized         = Error{Code: 40018, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("unauthorized")}
	ErrNotConverter         = Error{Code: 40019, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("ledger is not in converter mode")}
	ErrConverterMode        = Error{Code: 40020, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("operation not allowed in converter mode")}
	ErrRecordNotFound       = Error{Code: 40021, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("record not found")}
	ErrTokenTransferFailed  = Error{Code: 40022, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("token transfer failed")}
	ErrReserveOverflow      = Error{Code: 40023, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("reserve overflow")}
	ErrDepositNonceUsed     = Error{Code: 40024, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("deposit nonce already used")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrReserveInconsistent        = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("custody reserve inconsistent with the ledger")}
)
