package converter

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/holiman/uint256"
)

func TestERC20ABI(t *testing.T) {
	c := qt.New(t)
	parsed, err := ParseERC20ABI()
	c.Assert(err, qt.IsNil)

	data, err := parsed.Pack("transfer", alice, uint256.NewInt(7).ToBig())
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.HasLen, 4+32+32)
	c.Assert(hex.EncodeToString(data[:4]), qt.Equals, "a9059cbb")
	c.Assert(common.BytesToAddress(data[4:36]), qt.Equals, alice)
	c.Assert(data[67], qt.Equals, byte(7))

	data, err = parsed.Pack("transferFrom", alice, custodianAddr, uint256.NewInt(1).ToBig())
	c.Assert(err, qt.IsNil)
	c.Assert(hex.EncodeToString(data[:4]), qt.Equals, "23b872dd")
}

func TestNewERC20Errors(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	_, err := NewERC20(ctx, "http://127.0.0.1:1", tokenAddr, "not-a-key")
	c.Assert(err, qt.ErrorMatches, "failed to parse private key.*")

	key := "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	_, err = NewERC20(ctx, "unsupported://endpoint", tokenAddr, key)
	c.Assert(err, qt.ErrorMatches, "error dialing web3 provider uri.*")
}
