package config

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/eerc-node/verifier"
)

const testHash = "3e7a0b24250c6fea97c0950445cf104091c00bfd32796e8e8753955ab015429a"

func TestLoadDev(t *testing.T) {
	c := qt.New(t)
	conf, err := Load([]string{"--dev", "--name", "Encrypted", "--symbol", "eTST", "-p", "8080",
		"--minters", "0x00000000000000000000000000000000000000aa,0x00000000000000000000000000000000000000bb",
		"--dev.fund", "0x00000000000000000000000000000000000000cc:100", "--dev.keys", "0x1f,42"})
	c.Assert(err, qt.IsNil)
	c.Assert(conf.Port, qt.Equals, 8080)
	c.Assert(conf.Decimals, qt.Equals, uint8(2))
	minters, err := conf.MinterAddresses()
	c.Assert(err, qt.IsNil)
	c.Assert(minters, qt.DeepEquals, []common.Address{
		common.HexToAddress("0xaa"), common.HexToAddress("0xbb"),
	})
	funds, err := conf.DevFunds()
	c.Assert(err, qt.IsNil)
	c.Assert(funds[common.HexToAddress("0xcc")], qt.Equals, uint64(100))
	keys, err := conf.DevPrivateKeys()
	c.Assert(err, qt.IsNil)
	c.Assert(keys, qt.HasLen, 2)
	c.Assert(keys[0].Int64(), qt.Equals, int64(31))
	c.Assert(keys[1].Int64(), qt.Equals, int64(42))
}

func TestLoadEnv(t *testing.T) {
	c := qt.New(t)
	c.Assert(EnvName("vk.registration"), qt.Equals, "EERC_VK_REGISTRATION")
	c.Assert(EnvName("chainId"), qt.Equals, "EERC_CHAINID")

	t.Setenv("EERC_NAME", "Encrypted")
	t.Setenv("EERC_SYMBOL", "eTST")
	t.Setenv("EERC_CHAINID", "42")
	t.Setenv("EERC_RESERVE_AUDIT", "30s")
	t.Setenv("EERC_VK_TRANSFER", "circom:"+testHash+":https://example.com/transfer_vkey.json")
	t.Setenv("EERC_VK_BURN", "gnark:0x"+testHash)
	conf, err := Load([]string{"--symbol", "FLAG"})
	c.Assert(err, qt.IsNil)
	c.Assert(conf.Name, qt.Equals, "Encrypted")
	// command line flags win over the environment
	c.Assert(conf.Symbol, qt.Equals, "FLAG")
	c.Assert(conf.ChainID, qt.Equals, uint64(42))
	c.Assert(conf.ReserveAudit, qt.Equals, 30*time.Second)

	artifacts, err := conf.VerifierArtifacts()
	c.Assert(err, qt.IsNil)
	c.Assert(artifacts, qt.HasLen, 2)
	c.Assert(artifacts[0].Kind, qt.Equals, verifier.KindTransfer)
	c.Assert(artifacts[0].Format, qt.Equals, verifier.FormatCircom)
	c.Assert(artifacts[0].Key.RemoteURL, qt.Equals, "https://example.com/transfer_vkey.json")
	c.Assert(artifacts[1].Kind, qt.Equals, verifier.KindBurn)
	c.Assert(artifacts[1].Key.RemoteURL, qt.Equals, "")
	c.Assert(artifacts[1].Key.Hash.String(), qt.Equals, "0x"+testHash)

	t.Setenv("EERC_PORT", "many")
	_, err = Load(nil)
	c.Assert(err, qt.ErrorMatches, "env EERC_PORT: .*")
}

func TestLoadErrors(t *testing.T) {
	c := qt.New(t)
	for _, tc := range []struct {
		args []string
		err  string
	}{
		{[]string{"--dev"}, "token name and symbol are required"},
		{[]string{"--dev", "--name=a", "--symbol=b", "--port=70000"}, "invalid port 70000"},
		{[]string{"--dev", "--name=a", "--symbol=b", "--minters=0x12"}, `invalid minter address "0x12"`},
		{[]string{"--dev", "--name=a", "--symbol=b", "--dev.keys=zz"}, "invalid dev key at position 0"},
		{[]string{"--dev", "--name=a", "--symbol=b", "--dev.fund=0xcc"}, `invalid dev fund "0xcc", expected address:amount`},
		{[]string{"--name=a", "--symbol=b"}, "no verifying keys configured"},
		{[]string{"--name=a", "--symbol=b", "--vk.mint=plonk:" + testHash}, `mint verifying key: unknown format "plonk"`},
		{[]string{"--name=a", "--symbol=b", "--vk.mint=gnark:abcd"}, `mint verifying key: invalid sha256 "abcd"`},
		{[]string{"--name=a", "--symbol=b", "--vk.mint=gnark"}, "mint verifying key: expected .*"},
		{[]string{"--name=a", "--symbol=b", "--converter", "--vk.mint=gnark:" + testHash}, "converter mode needs .*"},
		{[]string{"--unknown"}, "unknown flag: --unknown"},
	} {
		_, err := Load(tc.args)
		c.Assert(err, qt.ErrorMatches, tc.err, qt.Commentf("args: %s", strings.Join(tc.args, " ")))
	}
}
