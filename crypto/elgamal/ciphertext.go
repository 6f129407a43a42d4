package elgamal

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/eerc-node/crypto/ecc"
)

// sizes in bytes needed to serialize a Ciphertext
const (
	sizeCoord      = 32
	sizePoint      = 2 * sizeCoord
	SizeCiphertext = 2 * sizePoint
)

// Ciphertext represents an ElGamal encrypted message with homomorphic
// properties. Adding two ciphertexts under the same key yields an
// encryption of the sum of the plaintexts.
type Ciphertext struct {
	C1 ecc.Point `json:"c1"`
	C2 ecc.Point `json:"c2"`
}

// NewCiphertext creates a new Ciphertext on the same curve as the given
// Point, set to the identity (O, O), which is a valid encryption of zero
// under any key. The Point must be one of the curves supported by the
// crypto/ecc/curves package.
func NewCiphertext(curve ecc.Point) *Ciphertext {
	return &Ciphertext{C1: curve.New(), C2: curve.New()}
}

// TrivialEncryption returns (O, amount·G), the encryption of amount with
// zero randomness. Subtracting it from a balance reduces the plaintext by
// amount without knowing the owner's key.
func TrivialEncryption(curve ecc.Point, amount *big.Int) *Ciphertext {
	z := NewCiphertext(curve)
	z.C2.ScalarBaseMult(amount)
	return z
}

// Encrypt encrypts a message using the public key provided as elliptic
// curve point. The randomness k can be provided or nil to generate a new
// one.
func (z *Ciphertext) Encrypt(message *big.Int, publicKey ecc.Point, k *big.Int) (*Ciphertext, error) {
	var err error
	if k == nil {
		k, err = RandK(publicKey)
		if err != nil {
			return nil, fmt.Errorf("elgamal encryption failed: %w", err)
		}
	}
	c1, c2, err := EncryptWithK(publicKey, message, k)
	if err != nil {
		return nil, fmt.Errorf("elgamal encryption failed: %w", err)
	}
	z.C1 = c1
	z.C2 = c2
	return z, nil
}

// Decrypt returns the plaintext of z under privateKey, searching the
// discrete log in [0, maxMessage].
func (z *Ciphertext) Decrypt(privateKey *big.Int, maxMessage uint64) (*big.Int, error) {
	_, m, err := Decrypt(privateKey, z.C1, z.C2, maxMessage)
	return m, err
}

// Add adds two Ciphertext and stores the result in z, which is also
// returned.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	c1, c2 := x.C1.New(), x.C2.New()
	c1.SafeAdd(x.C1, y.C1)
	c2.SafeAdd(x.C2, y.C2)
	z.C1, z.C2 = c1, c2
	return z
}

// Neg sets z to -x and returns z.
func (z *Ciphertext) Neg(x *Ciphertext) *Ciphertext {
	c1, c2 := x.C1.New(), x.C2.New()
	c1.Neg(x.C1)
	c2.Neg(x.C2)
	z.C1, z.C2 = c1, c2
	return z
}

// Sub sets z to x - y and returns z.
func (z *Ciphertext) Sub(x, y *Ciphertext) *Ciphertext {
	neg := NewCiphertext(y.C1).Neg(y)
	return z.Add(x, neg)
}

// Set copies x into z and returns z.
func (z *Ciphertext) Set(x *Ciphertext) *Ciphertext {
	c1, c2 := x.C1.New(), x.C2.New()
	c1.Set(x.C1)
	c2.Set(x.C2)
	z.C1, z.C2 = c1, c2
	return z
}

// Equal reports whether both ciphertexts hold the same points.
func (z *Ciphertext) Equal(x *Ciphertext) bool {
	if z == nil || x == nil {
		return z == x
	}
	return z.C1.Equal(x.C1) && z.C2.Equal(x.C2)
}

// IsZero reports whether z is the identity ciphertext (O, O).
func (z *Ciphertext) IsZero() bool {
	return z.C1.IsZero() && z.C2.IsZero()
}

// IsValid reports whether both points belong to the curve subgroup.
func (z *Ciphertext) IsValid() bool {
	return z != nil && z.C1 != nil && z.C2 != nil && z.C1.IsValid() && z.C2.IsValid()
}

// BigInts returns the coordinates C1.X, C1.Y, C2.X, C2.Y in twisted
// Edwards form, the order used for proof public inputs.
func (z *Ciphertext) BigInts() []*big.Int {
	c1x, c1y := z.C1.Point()
	c2x, c2y := z.C2.Point()
	return []*big.Int{c1x, c1y, c2x, c2y}
}

// Serialize returns a slice of len 4*32 bytes, representing the C1.X,
// C1.Y, C2.X, C2.Y twisted Edwards coordinates as little-endian.
func (z *Ciphertext) Serialize() []byte {
	var buf bytes.Buffer
	for _, bi := range z.BigInts() {
		buf.Write(arbo.BigIntToBytes(sizeCoord, bi))
	}
	return buf.Bytes()
}

// Deserialize reconstructs a Ciphertext from a slice of bytes produced by
// Serialize. The points are not validated; use IsValid for that.
func (z *Ciphertext) Deserialize(data []byte) error {
	if len(data) != SizeCiphertext {
		return fmt.Errorf("invalid input length: got %d bytes, expected %d bytes", len(data), SizeCiphertext)
	}
	readBigInt := func(i int) *big.Int {
		return arbo.BytesToBigInt(data[i*sizeCoord : (i+1)*sizeCoord])
	}
	z.C1 = z.C1.SetPoint(readBigInt(0), readBigInt(1))
	z.C2 = z.C2.SetPoint(readBigInt(2), readBigInt(3))
	return nil
}

// String returns a string representation of the Ciphertext.
func (z *Ciphertext) String() string {
	if z == nil || z.C1 == nil || z.C2 == nil {
		return "{C1: nil, C2: nil}"
	}
	return fmt.Sprintf("{C1: %s, C2: %s}", z.C1.String(), z.C2.String())
}
