package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// HexBytes is a []byte which encodes as hexadecimal in JSON, as opposed to
// the standard base64.
type HexBytes []byte

// String returns the hex representation prefixed with 0x.
func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// MarshalJSON implements json.Marshaler.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON implements json.Unmarshaler. The 0x prefix is optional.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("hex bytes must be a JSON string: %w", err)
	}
	decoded, err := hex.DecodeString(TrimHex(s))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// TrimHex removes the 0x prefix of a hex string, if present.
func TrimHex(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

// HexStringToHexBytes converts a hex string (with or without 0x) to
// HexBytes. It panics on malformed input, so it is meant for constants.
func HexStringToHexBytes(s string) HexBytes {
	b, err := hex.DecodeString(TrimHex(s))
	if err != nil {
		panic(err)
	}
	return b
}
