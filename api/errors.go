package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/eerc-node/log"
)

// Error is used by handler functions to wrap errors, assigning a unique error code
// and also specifying which HTTP Status should be used.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// ErrorResponse is the JSON body of an error response.
//
// Example: {"error":"account not registered: 0x01","code":40010}
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// MarshalJSON encodes the error as an ErrorResponse. HTTPstatus is ignored.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(&ErrorResponse{Error: e.Err.Error(), Code: e.Code})
}

func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the wrapped error, usually a ledger sentinel.
func (e Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an API error with the same code, so copies
// extended with With, Withf or WithErr match their definition.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.Code == e.Code
}

// Write sends the error as the JSON response with its HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	if log.Level() == log.LogLevelDebug {
		log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

// Withf returns a copy of the error with the formatted string appended.
func (e Error) Withf(format string, args ...any) Error {
	return e.wrap(fmt.Errorf("%w: %s", e.Err, fmt.Sprintf(format, args...)))
}

// With returns a copy of the error with s appended.
func (e Error) With(s string) Error {
	return e.wrap(fmt.Errorf("%w: %s", e.Err, s))
}

// WithErr returns a copy of the error wrapping err too.
func (e Error) WithErr(err error) Error {
	return e.wrap(fmt.Errorf("%w: %w", e.Err, err))
}

func (e Error) wrap(err error) Error {
	return Error{Err: err, Code: e.Code, HTTPstatus: e.HTTPstatus}
}
