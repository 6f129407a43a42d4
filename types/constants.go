package types

const (
	// StateTreeMaxLevels is the maximum number of levels of the accounts
	// state tree. Keys are 20-byte account addresses.
	StateTreeMaxLevels = 160
	// StateTreeKeyLen is the length in bytes of a state tree key.
	StateTreeKeyLen = StateTreeMaxLevels / 8
	// MaxBalance is the largest plaintext value that client-side decryption
	// will search for with baby-step giant-step.
	MaxBalance = uint64(1) << 40
	// DefaultRecordsPageSize is the number of operation records returned by
	// listings when no limit is given.
	DefaultRecordsPageSize = 50
	// MaxRecordsPageSize caps operation record listings.
	MaxRecordsPageSize = 500
)
