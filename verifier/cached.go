package verifier

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vocdoni/arbo"
)

// DefaultCacheSize is the number of verification results kept by Cached.
const DefaultCacheSize = 1024

// Cached memoizes the results of a Verifier. Verification is deterministic,
// so a result for the same kind, inputs and proof never changes. Results are
// keyed by sha256(kind || inputs || proof).
type Cached struct {
	kind  Kind
	inner Verifier
	cache *lru.Cache[[sha256.Size]byte, bool]
}

// NewCached wraps inner with an LRU of the given size.
func NewCached(kind Kind, inner Verifier, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[[sha256.Size]byte, bool](size)
	if err != nil {
		return nil, err
	}
	return &Cached{kind: kind, inner: inner, cache: cache}, nil
}

// Verify implements Verifier.
func (c *Cached) Verify(publicInputs []*big.Int, proof []byte) bool {
	key := CacheKey(c.kind, publicInputs, proof)
	if ok, found := c.cache.Get(key); found {
		return ok
	}
	ok := c.inner.Verify(publicInputs, proof)
	c.cache.Add(key, ok)
	return ok
}

// Len returns the number of cached results.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// CacheKey hashes a verification request.
func CacheKey(kind Kind, publicInputs []*big.Int, proof []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte{byte(kind)})
	h.Write(binary.BigEndian.AppendUint32(nil, uint32(len(publicInputs))))
	for _, in := range publicInputs {
		h.Write(arbo.BigIntToBytes(32, in))
	}
	h.Write(proof)
	var key [sha256.Size]byte
	copy(key[:], h.Sum(nil))
	return key
}

// CacheSet wraps every verifier of s with its own cache.
func CacheSet(s Set, size int) (Set, error) {
	out := Set{}
	for _, k := range Kinds {
		v := s.get(k)
		if v == nil {
			continue
		}
		c, err := NewCached(k, v, size)
		if err != nil {
			return Set{}, err
		}
		out.Set(k, c)
	}
	return out, nil
}
