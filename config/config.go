// Package config holds the node configuration, read from command line flags
// with EERC_ environment variable fallbacks.
package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
	"github.com/vocdoni/eerc-node/types"
	"github.com/vocdoni/eerc-node/verifier"
)

// EnvPrefix is prepended to the upper case flag name, with dots and dashes
// replaced by underscores, to build the environment variable of a flag.
const EnvPrefix = "EERC_"

// Config is the node configuration.
type Config struct {
	LogLevel  string
	LogOutput string
	DataDir   string
	Host      string
	Port      int

	Name     string
	Symbol   string
	Decimals uint8
	ChainID  uint64
	Minters  []string

	// Dev runs the node with the test verifier and an in-memory token.
	Dev     bool
	DevFund []string
	DevKeys []string

	// VerifyingKeys maps an operation kind to "format:sha256:url".
	VerifyingKeys     map[string]string
	VerifierCacheSize int
	ArtifactsTimeout  time.Duration

	Converter    bool
	Web3RPC      string
	TokenAddress string
	CustodianKey string
	ReserveAudit time.Duration
}

// Load parses args (without the program name) into a Config. Flags that are
// not set on the command line take the value of their environment
// variable, if any.
func Load(args []string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	c := &Config{VerifyingKeys: make(map[string]string)}
	fs := flag.NewFlagSet("eerc-node", flag.ContinueOnError)
	fs.StringVar(&c.LogLevel, "log.level", "info", "log level (debug, info, warn, error, fatal)")
	fs.StringVar(&c.LogOutput, "log.output", "stdout", "log output (stdout, stderr or a file path)")
	fs.StringVarP(&c.DataDir, "datadir", "d", filepath.Join(home, ".eerc-node"), "data directory")
	fs.StringVar(&c.Host, "host", "0.0.0.0", "API listen host")
	fs.IntVarP(&c.Port, "port", "p", 9090, "API listen port")
	fs.StringVar(&c.Name, "name", "", "encrypted token name")
	fs.StringVar(&c.Symbol, "symbol", "", "encrypted token symbol")
	fs.Uint8Var(&c.Decimals, "decimals", 2, "encrypted token decimals")
	fs.Uint64Var(&c.ChainID, "chainId", 1, "chain id bound into registrations and mints")
	fs.StringSliceVar(&c.Minters, "minters", nil, "addresses allowed to mint in standalone mode")
	fs.BoolVar(&c.Dev, "dev", false, "development mode: test verifier and in-memory token")
	fs.StringSliceVar(&c.DevFund, "dev.fund", nil, "address:amount pairs funded and approved on the dev token")
	fs.StringSliceVar(&c.DevKeys, "dev.keys", nil, "encryption private keys (0x hex or decimal) known by the test verifier")
	for _, k := range verifier.Kinds {
		fs.StringVar(new(string), "vk."+k.String(), "", fmt.Sprintf("%s verifying key as format:sha256:url", k))
	}
	fs.IntVar(&c.VerifierCacheSize, "verifier.cache", verifier.DefaultCacheSize, "verification results cached per kind, 0 disables it")
	fs.DurationVar(&c.ArtifactsTimeout, "artifacts.timeout", 5*time.Minute, "verifying keys download timeout")
	fs.BoolVar(&c.Converter, "converter", false, "converter mode, backed by a plaintext token")
	fs.StringVar(&c.Web3RPC, "w3rpc", "", "web3 rpc endpoint of the token chain")
	fs.StringVar(&c.TokenAddress, "token", "", "converted token address")
	fs.StringVar(&c.CustodianKey, "custodian.key", "", "private key of the custodian account")
	fs.DurationVar(&c.ReserveAudit, "reserve.audit", time.Minute, "custody reserve audit interval, 0 disables it")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := applyEnv(fs); err != nil {
		return nil, err
	}
	for _, k := range verifier.Kinds {
		if v, _ := fs.GetString("vk." + k.String()); v != "" {
			c.VerifyingKeys[k.String()] = v
		}
	}
	return c, c.Validate()
}

// EnvName returns the environment variable read for the flag name.
func EnvName(name string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))
}

func applyEnv(fs *flag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *flag.Flag) {
		if err != nil || f.Changed {
			return
		}
		if v, ok := os.LookupEnv(EnvName(f.Name)); ok {
			if serr := fs.Set(f.Name, v); serr != nil {
				err = fmt.Errorf("env %s: %w", EnvName(f.Name), serr)
			}
		}
	})
	return err
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Name == "" || c.Symbol == "" {
		return fmt.Errorf("token name and symbol are required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := c.MinterAddresses(); err != nil {
		return err
	}
	if c.Dev {
		if _, err := c.DevPrivateKeys(); err != nil {
			return err
		}
		_, err := c.DevFunds()
		return err
	}
	if c.Converter && (c.Web3RPC == "" || !common.IsHexAddress(c.TokenAddress) || c.CustodianKey == "") {
		return fmt.Errorf("converter mode needs w3rpc, token and custodian.key")
	}
	if _, err := c.VerifierArtifacts(); err != nil {
		return err
	}
	return nil
}

// MinterAddresses parses the minters.
func (c *Config) MinterAddresses() ([]common.Address, error) {
	addrs := make([]common.Address, 0, len(c.Minters))
	for _, m := range c.Minters {
		if !common.IsHexAddress(m) {
			return nil, fmt.Errorf("invalid minter address %q", m)
		}
		addrs = append(addrs, common.HexToAddress(m))
	}
	return addrs, nil
}

// DevFunds parses the dev.fund pairs.
func (c *Config) DevFunds() (map[common.Address]uint64, error) {
	funds := make(map[common.Address]uint64, len(c.DevFund))
	for _, f := range c.DevFund {
		addr, amount, ok := strings.Cut(f, ":")
		if !ok || !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid dev fund %q, expected address:amount", f)
		}
		n, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid dev fund amount %q: %w", amount, err)
		}
		funds[common.HexToAddress(addr)] = n
	}
	return funds, nil
}

// DevPrivateKeys parses the dev.keys.
func (c *Config) DevPrivateKeys() ([]*big.Int, error) {
	keys := make([]*big.Int, 0, len(c.DevKeys))
	for i, k := range c.DevKeys {
		sk, ok := new(big.Int).SetString(k, 0)
		if !ok || sk.Sign() <= 0 {
			return nil, fmt.Errorf("invalid dev key at position %d", i)
		}
		keys = append(keys, sk)
	}
	return keys, nil
}

// VerifierArtifacts returns the verifying key artifacts of the configured
// kinds, sorted by kind.
func (c *Config) VerifierArtifacts() ([]*verifier.VerifierArtifact, error) {
	var artifacts []*verifier.VerifierArtifact
	for _, k := range verifier.Kinds {
		v, ok := c.VerifyingKeys[k.String()]
		if !ok {
			continue
		}
		va, err := ParseVerifyingKey(k, v)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, va)
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("no verifying keys configured")
	}
	return artifacts, nil
}

// ParseVerifyingKey parses a "format:sha256:url" verifying key description.
// The url may be empty when the key is already in the artifacts cache.
func ParseVerifyingKey(kind verifier.Kind, s string) (*verifier.VerifierArtifact, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%s verifying key: expected format:sha256:url, got %q", kind, s)
	}
	format := verifier.Format(parts[0])
	if format != verifier.FormatGnark && format != verifier.FormatCircom {
		return nil, fmt.Errorf("%s verifying key: unknown format %q", kind, parts[0])
	}
	hash, err := hex.DecodeString(types.TrimHex(parts[1]))
	if err != nil || len(hash) != 32 {
		return nil, fmt.Errorf("%s verifying key: invalid sha256 %q", kind, parts[1])
	}
	va := &verifier.VerifierArtifact{
		Kind:   kind,
		Format: format,
		Key:    &verifier.Artifact{Hash: hash},
	}
	if len(parts) == 3 {
		va.Key.RemoteURL = parts[2]
	}
	return va, nil
}
