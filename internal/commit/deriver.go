// Package commit derives the fixed-size evidence commitments that make up
// a consent handshake. Two independent computations over identical bytes
// always agree, and no digest can be feasibly inverted to recover the
// underlying evidence.
package commit

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// DigestLength is the byte length of every commitment.
const DigestLength = 32

var digestPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// HashBytes returns the 0x-prefixed Keccak-256 digest of data. Empty and
// nil input are permitted and yield the digest of the empty byte sequence;
// a silently failed capture upstream is surfaced by the orchestrator's
// fallback flags, never by this layer.
func HashBytes(data []byte) string {
	return encodeDigest(crypto.Keccak256(data))
}

// HashFaceEmbedding hashes a numeric feature vector. Each element is
// serialized as an IEEE-754 binary64 in big-endian order before hashing,
// so the same embedding yields the same digest on every platform.
func HashFaceEmbedding(embedding []float64) string {
	buf := make([]byte, 8*len(embedding))
	for i, v := range embedding {
		binary.BigEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return encodeDigest(crypto.Keccak256(buf))
}

// HashGeo commits to a location and capture time. Coordinates are rounded
// to six decimal places (~10cm) so that float noise below sensor precision
// does not change the digest.
func HashGeo(lat, lng float64, ts time.Time) string {
	canonical := fmt.Sprintf("%.6f,%.6f,%d", lat, lng, ts.Unix())
	return HashBytes([]byte(canonical))
}

// FallbackGeoDigest derives a deterministic stand-in commitment from the
// capture time alone, used when location capture fails.
func FallbackGeoDigest(ts time.Time) string {
	canonical := fmt.Sprintf("geo-unavailable,%d", ts.Unix())
	return HashBytes([]byte(canonical))
}

// IsDigest reports whether s is a well-formed 0x-prefixed 32-byte digest.
func IsDigest(s string) bool {
	return digestPattern.MatchString(s)
}

// DecodeDigest returns the raw 32 bytes of a 0x-prefixed digest.
func DecodeDigest(s string) ([]byte, error) {
	if !IsDigest(s) {
		return nil, errors.Errorf("malformed digest: %q", s)
	}
	return hex.DecodeString(s[2:])
}

func encodeDigest(sum []byte) string {
	return "0x" + hex.EncodeToString(sum)
}
