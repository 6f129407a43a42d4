package curves

import (
	"fmt"

	"github.com/vocdoni/eerc-node/crypto/ecc"
	bjj_gnark "github.com/vocdoni/eerc-node/crypto/ecc/bjj_gnark"
	bjj_iden3 "github.com/vocdoni/eerc-node/crypto/ecc/bjj_iden3"
)

const (
	CurveTypeBabyJubJub      = "bjj_iden3" // Default bjj curve type
	CurveTypeBabyJubJubGnark = "bjj_gnark"
	CurveTypeBabyJubJubIden3 = "bjj_iden3"
)

// New creates a new instance of a Curve implementation based on the provided type string.
// The supported types are defined as constants in this package.
// If the type is not supported, it will panic.
func New(curveType string) ecc.Point {
	switch curveType {
	case CurveTypeBabyJubJubGnark:
		return bjj_gnark.New()
	case CurveTypeBabyJubJubIden3:
		return bjj_iden3.New()
	default:
		panic(fmt.Sprintf("unsupported curve type: %s", curveType))
	}
}

// IsSupported reports whether curveType can be passed to New.
func IsSupported(curveType string) bool {
	switch curveType {
	case CurveTypeBabyJubJubGnark, CurveTypeBabyJubJubIden3:
		return true
	}
	return false
}
