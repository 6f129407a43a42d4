package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	babyjubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/fxamacker/cbor/v2"

	curve "github.com/vocdoni/eerc-node/crypto/ecc"
	"github.com/vocdoni/eerc-node/crypto/ecc/format"
)

const CurveType = "bjj_gnark"

var Params babyjubjub.CurveParams

func init() {
	Params = babyjubjub.GetEdwardsCurve()
}

// BJJ is the affine representation of the BabyJubJub group element backed by
// gnark-crypto. Internally points are kept in reduced twisted Edwards form;
// the public coordinate accessors use the twisted Edwards form so both
// implementations agree.
type BJJ struct {
	inner *babyjubjub.PointAffine
	lock  sync.Mutex
}

// New creates a new BJJ point (identity element by default).
func New() curve.Point {
	p := &BJJ{inner: new(babyjubjub.PointAffine)}
	p.SetZero()
	return p
}

// New creates a new BJJ point (identity element by default).
func (g *BJJ) New() curve.Point {
	return New()
}

// Order returns the order of the BabyJubJub curve subgroup.
func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(&Params.Order)
}

// Add performs the addition of two points and stores the result in g.
func (g *BJJ) Add(a, b curve.Point) {
	g.inner = new(babyjubjub.PointAffine).Add(a.(*BJJ).inner, b.(*BJJ).inner)
}

// SafeAdd performs the addition of two points with a lock.
func (g *BJJ) SafeAdd(a, b curve.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.Add(a, b)
}

// ScalarMult performs scalar multiplication of a point by a scalar.
func (g *BJJ) ScalarMult(a curve.Point, scalar *big.Int) {
	s := new(big.Int).Mod(scalar, &Params.Order)
	g.inner = new(babyjubjub.PointAffine).ScalarMultiplication(a.(*BJJ).inner, s)
}

// ScalarBaseMult performs scalar multiplication using the base point.
func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	s := new(big.Int).Mod(scalar, &Params.Order)
	g.inner = new(babyjubjub.PointAffine).ScalarMultiplication(&Params.Base, s)
}

// Equal checks if the given point is equal to the current point.
func (g *BJJ) Equal(a curve.Point) bool {
	return g.inner.Equal(a.(*BJJ).inner)
}

// Neg negates the given point and stores the result in g.
func (g *BJJ) Neg(a curve.Point) {
	g.inner = new(babyjubjub.PointAffine).Neg(a.(*BJJ).inner)
}

// SetZero sets the current point to the identity element (0, 1).
func (g *BJJ) SetZero() {
	g.inner = new(babyjubjub.PointAffine)
	g.inner.X.SetZero()
	g.inner.Y.SetOne()
}

func (g *BJJ) IsZero() bool {
	return g.inner.X.IsZero() && g.inner.Y.IsOne()
}

// IsValid checks the point is on the curve and that multiplying it by the
// subgroup order yields the identity.
func (g *BJJ) IsValid() bool {
	if g.inner == nil || !g.inner.IsOnCurve() {
		return false
	}
	var check babyjubjub.PointAffine
	check.ScalarMultiplication(g.inner, &Params.Order)
	return check.X.IsZero() && check.Y.IsOne()
}

// Set sets g to the value of another point.
func (g *BJJ) Set(a curve.Point) {
	g.inner = new(babyjubjub.PointAffine).Set(a.(*BJJ).inner)
}

// SetGenerator sets the point to the BabyJubJub generator.
func (g *BJJ) SetGenerator() {
	g.inner = new(babyjubjub.PointAffine).Set(&Params.Base)
}

// String returns a string representation of the point in twisted Edwards
// coordinates.
func (g *BJJ) String() string {
	x, y := g.Point()
	return fmt.Sprintf("%s,%s", x.String(), y.String())
}

// Marshal serializes the elliptic curve element into a byte slice.
func (g *BJJ) Marshal() []byte {
	return g.inner.Marshal()
}

// Unmarshal deserializes the elliptic curve element from a byte slice.
func (g *BJJ) Unmarshal(buf []byte) error {
	p := new(babyjubjub.PointAffine)
	if err := p.Unmarshal(buf); err != nil {
		return err
	}
	g.inner = p
	return nil
}

// MarshalJSON serializes the element as twisted Edwards coordinates.
func (g *BJJ) MarshalJSON() ([]byte, error) {
	x, y := g.Point()
	return json.Marshal(&curve.PointEC{X: x, Y: y})
}

// UnmarshalJSON deserializes twisted Edwards coordinates.
func (g *BJJ) UnmarshalJSON(buf []byte) error {
	p := &curve.PointEC{}
	if err := json.Unmarshal(buf, p); err != nil {
		return err
	}
	if p.X == nil || p.Y == nil {
		return fmt.Errorf("missing point coordinates")
	}
	g.inner = g.SetPoint(p.X, p.Y).(*BJJ).inner
	return nil
}

func (g *BJJ) MarshalCBOR() ([]byte, error) {
	x, y := g.Point()
	return cbor.Marshal([]*big.Int{x, y})
}

func (g *BJJ) UnmarshalCBOR(buf []byte) error {
	var coords []*big.Int
	if err := cbor.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	g.inner = g.SetPoint(coords[0], coords[1]).(*BJJ).inner
	return nil
}

// Point returns the X and Y coordinates of the elliptic curve element in
// twisted Edwards coordinates.
func (g *BJJ) Point() (*big.Int, *big.Int) {
	x, y := new(big.Int), new(big.Int)
	g.inner.X.BigInt(x)
	g.inner.Y.BigInt(y)
	return format.FromRTEtoTE(x, y)
}

// SetPoint returns a new element from twisted Edwards coordinates.
func (g *BJJ) SetPoint(x, y *big.Int) curve.Point {
	xRTE, yRTE := format.FromTEtoRTE(x, y)
	p := &BJJ{inner: new(babyjubjub.PointAffine)}
	p.inner.X = fieldElement(xRTE)
	p.inner.Y = fieldElement(yRTE)
	return p
}

func (g *BJJ) Type() string {
	return CurveType
}

func fieldElement(v *big.Int) fr.Element {
	var e fr.Element
	e.SetBigInt(v)
	return e
}
