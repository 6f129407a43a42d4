package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/vocdoni/eerc-node/verifier"
)

const opRegistration = "registration"

// countResult increments the operation counter with the outcome of err.
func countResult(op string, err error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`eerc_operations_total{op=%q,result=%q}`, op, resultLabel(err))).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidProof):
		return "invalid_proof"
	case errors.Is(err, ErrInsufficientReserve):
		return "reserve_fault"
	case errors.Is(err, ErrUnregistered), errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrRegistrationHashUsed), errors.Is(err, ErrInvalidPoint),
		errors.Is(err, ErrNotConverter), errors.Is(err, ErrConverterMode),
		errors.Is(err, ErrNullifierUsed), errors.Is(err, ErrNonceUsed), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrReserveOverflow), errors.Is(err, ErrTokenTransfer):
		return "rejected"
	default:
		return "error"
	}
}

// countUnconfirmed increments the counter of token movements kept without
// confirmation.
func countUnconfirmed(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`eerc_token_unconfirmed_total{op=%q}`, op)).Inc()
}

func observeVerification(kind verifier.Kind, start time.Time) {
	metrics.GetOrCreateHistogram(fmt.Sprintf(`eerc_verify_duration_seconds{kind=%q}`, kind)).UpdateDuration(start)
}
