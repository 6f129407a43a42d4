package storage

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/vocdoni/arbo"
)

// Artifact encoding/decoding. Deterministic CBOR keeps the stored bytes,
// and therefore the state tree leaves, canonical.
func encodeArtifact(a any) ([]byte, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// indexKey encodes a record index as big-endian so keys sort by index.
func indexKey(index uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, index)
}

func depositKey(account common.Address, nonce *big.Int) []byte {
	return append(account.Bytes(), arbo.BigIntToBytes(32, nonce)...)
}

func keyIndex(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
