package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// InfoEndpoint describes the token and the ledger mode
	InfoEndpoint = "/info"
	// MetricsEndpoint exposes the node metrics in Prometheus format
	MetricsEndpoint = "/metrics"

	// RegistrationsEndpoint binds an account to its encryption key
	RegistrationsEndpoint = "/registrations"
	// AccountEndpoint returns the public key and balance of an account
	AddressURLParam      = "address"
	AccountEndpoint      = "/accounts/{" + AddressURLParam + "}"
	AccountProofEndpoint = "/accounts/{" + AddressURLParam + "}/proof"

	// Operation endpoints
	MintsEndpoint       = "/mints"
	TransfersEndpoint   = "/transfers"
	WithdrawalsEndpoint = "/withdrawals"
	BurnsEndpoint       = "/burns"
	DepositsEndpoint    = "/deposits"

	// RecordsEndpoint lists the operation log, with the optional from and
	// limit query parameters
	RecordsEndpoint = "/records"
	IndexURLParam   = "index"
	RecordEndpoint  = "/records/{" + IndexURLParam + "}"
	FromQueryParam  = "from"
	LimitQueryParam = "limit"

	// ReserveEndpoint returns the custody reserve of a converter ledger
	ReserveEndpoint = "/reserve"
	// StateRootEndpoint returns the root of the account state tree
	StateRootEndpoint = "/state/root"
)
