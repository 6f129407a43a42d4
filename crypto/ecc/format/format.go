// Package format converts BabyJubJub coordinates between the twisted
// Edwards form used by circom and iden3 (a = 168700) and the reduced twisted
// Edwards form used by gnark (a = -1). Only the x coordinate changes:
// x_rte = x_te * f, with f^2 = -168700 (mod p).
package format

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
)

var (
	scalingFactor    *big.Int
	scalingFactorInv *big.Int
)

func init() {
	scalingFactor, _ = new(big.Int).SetString("15527681003928902128179717624703512672403908117992798440346960750464748824729", 10)
	scalingFactorInv = new(big.Int).ModInverse(scalingFactor, ecc.BN254.ScalarField())
}

// FromTEtoRTE converts a point from twisted Edwards to reduced twisted
// Edwards coordinates.
func FromTEtoRTE(x, y *big.Int) (*big.Int, *big.Int) {
	xRTE := new(big.Int).Mul(x, scalingFactor)
	xRTE.Mod(xRTE, ecc.BN254.ScalarField())
	return xRTE, new(big.Int).Set(y)
}

// FromRTEtoTE converts a point from reduced twisted Edwards to twisted
// Edwards coordinates.
func FromRTEtoTE(x, y *big.Int) (*big.Int, *big.Int) {
	xTE := new(big.Int).Mul(x, scalingFactorInv)
	xTE.Mod(xTE, ecc.BN254.ScalarField())
	return xTE, new(big.Int).Set(y)
}
