package ledger

import (
	"errors"

	"github.com/vocdoni/eerc-node/converter"
	"github.com/vocdoni/eerc-node/registrar"
)

var (
	// ErrUnregistered is returned when a party of an operation has no
	// public key.
	ErrUnregistered = registrar.ErrUnregistered
	// ErrAlreadyRegistered is returned when an account registers twice.
	ErrAlreadyRegistered = registrar.ErrAlreadyRegistered
	// ErrRegistrationHashUsed is returned when a registration hash is reused.
	ErrRegistrationHashUsed = registrar.ErrRegistrationHashUsed
	// ErrInvalidPoint is returned for keys or ciphertexts that are not
	// valid curve points.
	ErrInvalidPoint = registrar.ErrInvalidPoint
	// ErrInvalidProof is returned when the verifier of the operation kind
	// rejects the proof.
	ErrInvalidProof = registrar.ErrInvalidProof
	// ErrInsufficientReserve means the custody reserve would go negative.
	// It signals that the ledger and the reserve are out of sync.
	ErrInsufficientReserve = converter.ErrInsufficientReserve
	// ErrReserveOverflow means a deposit would overflow the reserve.
	ErrReserveOverflow = converter.ErrReserveOverflow
	// ErrTokenTransfer is returned when the converted token refuses a
	// movement, like a deposit without allowance.
	ErrTokenTransfer = converter.ErrTokenTransfer

	// ErrNotConverter is returned for deposits and withdrawals on a
	// standalone ledger.
	ErrNotConverter = errors.New("ledger is not in converter mode")
	// ErrConverterMode is returned for mints and burns on a converter
	// ledger, where the encrypted supply must match the custody reserve.
	ErrConverterMode = errors.New("operation not allowed in converter mode")
	// ErrNullifierUsed is returned when a mint nullifier is reused.
	ErrNullifierUsed = errors.New("mint nullifier already used")
	// ErrNonceUsed is returned when an account reuses a deposit nonce.
	ErrNonceUsed = errors.New("deposit nonce already used")
	// ErrInvalidAmount is returned for plaintext amounts out of range.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when the minter is not allowed to mint.
	ErrUnauthorized = errors.New("unauthorized")
)
