package ledger

import (
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/eerc-node/converter"
	"github.com/vocdoni/eerc-node/verifier"
)

// MintPolicy decides whether minter may mint.
type MintPolicy func(minter common.Address) bool

// AllowAll is a MintPolicy accepting every minter.
func AllowAll(common.Address) bool { return true }

// AllowList returns a MintPolicy accepting only the given minters.
func AllowList(minters ...common.Address) MintPolicy {
	allowed := slices.Clone(minters)
	return func(minter common.Address) bool {
		return slices.Contains(allowed, minter)
	}
}

// Config is the ledger configuration, fixed at construction.
type Config struct {
	Name     string
	Symbol   string
	Decimals uint8
	ChainID  uint64
	// Verifiers holds one proof verifier per operation kind.
	Verifiers verifier.Set
	// Token enables the converter mode when set. The converted token
	// cannot be changed afterwards.
	Token converter.Token
	// MintPolicy authorizes minters in standalone mode. Nil means nobody
	// can mint.
	MintPolicy MintPolicy
}

// IsConverter reports whether the configuration enables converter mode.
func (c *Config) IsConverter() bool {
	return c.Token != nil
}

// requiredKinds returns the verifier kinds used by the configured mode.
func (c *Config) requiredKinds() []verifier.Kind {
	kinds := []verifier.Kind{verifier.KindRegistration, verifier.KindTransfer}
	if c.IsConverter() {
		return append(kinds, verifier.KindWithdraw)
	}
	return append(kinds, verifier.KindMint, verifier.KindBurn)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("missing token name")
	}
	if c.Symbol == "" {
		return fmt.Errorf("missing token symbol")
	}
	return c.Verifiers.Validate(c.requiredKinds()...)
}

// Info describes the ledger.
type Info struct {
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	Decimals  uint8           `json:"decimals"`
	ChainID   uint64          `json:"chainId"`
	Converter bool            `json:"converter"`
	Token     *common.Address `json:"token,omitempty"`
}
