package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/fxamacker/cbor/v2"
	babyjubjub "github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/constants"

	curve "github.com/vocdoni/eerc-node/crypto/ecc"
)

const CurveType = "bjj_iden3"

// BJJ is the affine representation of the BabyJubJub group element, backed
// by the iden3 implementation (twisted Edwards form, generator B8).
type BJJ struct {
	inner *babyjubjub.Point
	lock  sync.Mutex
}

// New creates a new BJJ point (identity element by default).
func New() curve.Point {
	return &BJJ{inner: babyjubjub.NewPoint()}
}

func (g *BJJ) New() curve.Point {
	return &BJJ{inner: babyjubjub.NewPoint()}
}

func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(babyjubjub.SubOrder)
}

func (g *BJJ) Add(a, b curve.Point) {
	g.inner = babyjubjub.NewPoint().Projective().Add(
		a.(*BJJ).inner.Projective(),
		b.(*BJJ).inner.Projective(),
	).Affine()
}

func (g *BJJ) SafeAdd(a, b curve.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.Add(a, b)
}

func (g *BJJ) ScalarMult(a curve.Point, scalar *big.Int) {
	s := new(big.Int).Mod(scalar, babyjubjub.SubOrder)
	g.inner = babyjubjub.NewPoint().Mul(s, a.(*BJJ).inner)
}

func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	s := new(big.Int).Mod(scalar, babyjubjub.SubOrder)
	g.inner = babyjubjub.NewPoint().Mul(s, babyjubjub.B8)
}

// Marshal returns the compressed little-endian form of the point.
func (g *BJJ) Marshal() []byte {
	b := g.inner.Compress()
	return b[:]
}

func (g *BJJ) Unmarshal(buf []byte) error {
	if len(buf) != 32 {
		return fmt.Errorf("invalid compressed point length %d", len(buf))
	}
	b32 := [32]byte{}
	copy(b32[:], buf)
	p, err := babyjubjub.NewPoint().Decompress(b32)
	if err != nil {
		return err
	}
	g.inner = p
	return nil
}

// MarshalJSON serializes the elliptic curve element into a JSON byte slice.
func (g *BJJ) MarshalJSON() ([]byte, error) {
	return json.Marshal(&curve.PointEC{X: g.inner.X, Y: g.inner.Y})
}

// UnmarshalJSON deserializes the elliptic curve element from a JSON byte slice.
func (g *BJJ) UnmarshalJSON(buf []byte) error {
	p := &curve.PointEC{}
	if err := json.Unmarshal(buf, p); err != nil {
		return err
	}
	if p.X == nil || p.Y == nil {
		return fmt.Errorf("missing point coordinates")
	}
	g.inner = &babyjubjub.Point{X: p.X, Y: p.Y}
	return nil
}

func (g *BJJ) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]*big.Int{g.inner.X, g.inner.Y})
}

func (g *BJJ) UnmarshalCBOR(buf []byte) error {
	var coords []*big.Int
	if err := cbor.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	g.inner = &babyjubjub.Point{X: coords[0], Y: coords[1]}
	return nil
}

func (g *BJJ) Equal(a curve.Point) bool {
	o := a.(*BJJ).inner
	return g.inner.X.Cmp(o.X) == 0 && g.inner.Y.Cmp(o.Y) == 0
}

// Neg sets g to -a, that is (-x, y).
func (g *BJJ) Neg(a curve.Point) {
	o := a.(*BJJ).inner
	x := new(big.Int).Neg(o.X)
	x.Mod(x, constants.Q)
	g.inner = &babyjubjub.Point{X: x, Y: new(big.Int).Set(o.Y)}
}

func (g *BJJ) SetZero() {
	g.inner = babyjubjub.NewPoint()
}

func (g *BJJ) IsZero() bool {
	return g.inner.X.Sign() == 0 && g.inner.Y.Cmp(big.NewInt(1)) == 0
}

func (g *BJJ) IsValid() bool {
	if g.inner == nil || g.inner.X == nil || g.inner.Y == nil {
		return false
	}
	if g.inner.X.Cmp(constants.Q) >= 0 || g.inner.Y.Cmp(constants.Q) >= 0 ||
		g.inner.X.Sign() < 0 || g.inner.Y.Sign() < 0 {
		return false
	}
	return g.inner.InCurve() && g.inner.InSubGroup()
}

func (g *BJJ) Set(a curve.Point) {
	o := a.(*BJJ).inner
	g.inner = &babyjubjub.Point{X: new(big.Int).Set(o.X), Y: new(big.Int).Set(o.Y)}
}

func (g *BJJ) SetGenerator() {
	g.inner = &babyjubjub.Point{
		X: new(big.Int).Set(babyjubjub.B8.X),
		Y: new(big.Int).Set(babyjubjub.B8.Y),
	}
}

func (g *BJJ) String() string {
	return fmt.Sprintf("%s,%s", g.inner.X.String(), g.inner.Y.String())
}

func (g *BJJ) Point() (*big.Int, *big.Int) {
	return new(big.Int).Set(g.inner.X), new(big.Int).Set(g.inner.Y)
}

func (g *BJJ) SetPoint(x, y *big.Int) curve.Point {
	return &BJJ{inner: &babyjubjub.Point{X: new(big.Int).Set(x), Y: new(big.Int).Set(y)}}
}

func (g *BJJ) Type() string {
	return CurveType
}
