package attest_protocol

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ContentHash is the SHA-256 digest of attested content. It is the
// uniqueness key of an attestation.
type ContentHash [32]byte

// HashContent returns the SHA-256 digest of data.
func HashContent(data []byte) ContentHash {
	return ContentHash(sha256.Sum256(data))
}

// ParseContentHash parses a 64 character hex digest, with or without a 0x
// prefix.
func ParseContentHash(s string) (ContentHash, error) {
	var h ContentHash
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != hex.EncodedLen(len(h)) {
		return h, &ValidationError{Field: "content hash", Reason: fmt.Sprintf("expected %d hex characters, got %d", hex.EncodedLen(len(h)), len(s))}
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, &ValidationError{Field: "content hash", Reason: err.Error()}
	}
	return h, nil
}

func (h ContentHash) String() string {
	return hex.EncodeToString(h[:])
}

func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

func (h ContentHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *ContentHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseContentHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// PercentToBasisPoints converts a percentage in [0, 100] to basis points,
// rounding to the nearest integer.
func PercentToBasisPoints(percent float64) (uint16, error) {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return 0, &ValidationError{Field: "ai probability", Reason: fmt.Sprintf("%v is outside [0, 100]", percent)}
	}
	return uint16(math.Round(percent * 100)), nil
}

// BasisPointsToPercent converts basis points to a percentage with two
// implied decimal places.
func BasisPointsToPercent(bp uint16) float64 {
	return float64(bp) / 100
}
