// Package ecc defines the elliptic curve group element abstraction used by
// the encryption scheme. Implementations live in the subpackages and are
// selected with the curves package.
package ecc

import (
	"math/big"
)

// Point defines the common operations that can be performed on elliptic
// curve group elements. It represents the affine coordinates of a point and
// provides methods for arithmetic, serialization and comparison.
type Point interface {
	// New returns a new point set to the identity element.
	New() Point

	// Order returns the order of the prime subgroup used for scalars.
	Order() *big.Int

	// Add adds a and b and stores the result in the receiver.
	Add(a, b Point)

	// SafeAdd is like Add but holds the receiver lock during the operation.
	SafeAdd(a, b Point)

	// ScalarMult multiplies a by scalar and stores the result in the receiver.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult multiplies the generator by scalar and stores the result
	// in the receiver.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the point into a byte slice.
	Marshal() []byte

	// Unmarshal deserializes a byte slice produced by Marshal.
	Unmarshal(buf []byte) error

	// Equal reports whether both points are the same group element.
	Equal(a Point) bool

	// Neg sets the receiver to -a.
	Neg(a Point)

	// SetZero sets the receiver to the identity element.
	SetZero()

	// IsZero reports whether the receiver is the identity element.
	IsZero() bool

	// IsValid reports whether the point is on the curve and in the prime
	// order subgroup.
	IsValid() bool

	// Set sets the receiver to a.
	Set(a Point)

	// SetGenerator sets the receiver to the generator of the subgroup.
	SetGenerator()

	// String returns a "x,y" representation of the point.
	String() string

	// Point returns the X and Y coordinates in twisted Edwards form.
	Point() (*big.Int, *big.Int)

	// SetPoint returns a new point of the same curve with the given twisted
	// Edwards coordinates.
	SetPoint(x, y *big.Int) Point

	// Type returns the curve implementation identifier.
	Type() string
}

// PointEC is the JSON representation of the coordinates of a point.
type PointEC struct {
	X *big.Int `json:"x" cbor:"0,keyasint"`
	Y *big.Int `json:"y" cbor:"1,keyasint"`
}
