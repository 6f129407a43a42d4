package format

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestGeneratorConversion(t *testing.T) {
	c := qt.New(t)
	// iden3 B8 and gnark-crypto's bn254 twisted Edwards base point
	teX, _ := new(big.Int).SetString("5299619240641551281634865583518297030282874472190772894086521144482721001553", 10)
	teY, _ := new(big.Int).SetString("16950150798460657717958625567821834550301663161624707787222815936182638968203", 10)
	rteX, _ := new(big.Int).SetString("9671717474070082183213120605117400219616337014328744928644933853176787189663", 10)

	x, y := FromTEtoRTE(teX, teY)
	c.Assert(x.Cmp(rteX), qt.Equals, 0)
	c.Assert(y.Cmp(teY), qt.Equals, 0)

	x, y = FromRTEtoTE(rteX, teY)
	c.Assert(x.Cmp(teX), qt.Equals, 0)
	c.Assert(y.Cmp(teY), qt.Equals, 0)
}
