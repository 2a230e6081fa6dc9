// Package hashutil holds the primitives shared by the chunk store, the
// Merkle engine and the HNSW index: content hashing, pair hashing and
// vector similarity. Kept dependency-free of everything above it in the
// stack so every other package can import it without cycles.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"gonum.org/v1/gonum/floats/floats32"
)

// Size is the digest length in bytes used throughout the engine.
const Size = sha256.Size

// Hash is a 32-byte content digest.
type Hash [Size]byte

// ContentHash returns the digest of data.
func ContentHash(data []byte) Hash {
	return sha256.Sum256(data)
}

// PairHash returns the digest of the concatenation of left and right, in
// that order. This is the sole combinator the Merkle engine uses to climb
// one level of the tree.
func PairHash(left, right Hash) Hash {
	buf := make([]byte, 0, Size*2)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return sha256.Sum256(buf)
}

// Hex renders the digest as a 64-character lowercase hex string.
func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

// ParseHex decodes a 64-character hex string into a Hash.
func ParseHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != Size {
		return h, errShortDigest
	}
	copy(h[:], b)
	return h, nil
}

var errShortDigest = &digestLenError{}

type digestLenError struct{}

func (*digestLenError) Error() string { return "hashutil: digest must be 32 bytes" }

// MarshalBinary implements encoding.BinaryMarshaler so codecs (msgpack,
// gob) serialize a Hash as its raw 32 bytes rather than reflecting over
// the underlying array.
func (h Hash) MarshalBinary() ([]byte, error) {
	out := make([]byte, Size)
	copy(out, h[:])
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *Hash) UnmarshalBinary(data []byte) error {
	if len(data) != Size {
		return errShortDigest
	}
	copy(h[:], data)
	return nil
}

// MarshalText implements encoding.TextMarshaler so JSON renders a Hash as
// its hex string rather than an array of numbers.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// hasHardwareFloat reports whether the running CPU exposes the wide-lane
// float extensions the dot-product/cosine loops below could, in principle,
// be vectorized against. It is consulted only for Stats()/diagnostics; the
// arithmetic itself stays pure Go (see DESIGN.md for why no SIMD intrinsic
// is wired in here).
var hasHardwareFloat = cpuid.CPU.Supports(cpuid.AVX2) || (runtime.GOARCH == "arm64")

// HasHardwareFloat reports whether AVX2 or arm64 NEON-class float lanes are
// available on this CPU.
func HasHardwareFloat() bool { return hasHardwareFloat }

// Dot returns the dot product of two equal-length float32 vectors, via
// gonum's floats32 package rather than a hand-rolled loop — the same
// primitive the teacher's corpus pulls in gonum for, just promoted here
// from an indirect dependency to a direct one.
func Dot(a, b []float32) float64 {
	return float64(floats32.Dot(a, b))
}

// Cosine returns the cosine similarity of a and b. Both vectors must be
// the same length; a zero-magnitude vector yields 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	dot := floats32.Dot(a, b)
	denom := float64(floats32.Norm(a, 2)) * float64(floats32.Norm(b, 2))
	if denom == 0 {
		return 0
	}
	return float64(dot) / denom
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float64 {
	if len(v) == 0 {
		return 0
	}
	return float64(floats32.Norm(v, 2))
}

// Normalize returns a new vector scaled to unit L2 norm. A zero vector is
// returned unchanged (there is no direction to normalize to).
func Normalize(v []float32) []float32 {
	mag := Magnitude(v)
	out := make([]float32, len(v))
	copy(out, v)
	if mag == 0 {
		return out
	}
	floats32.Scale(float32(1.0/mag), out)
	return out
}

// IsNormalized reports whether v's magnitude falls within tol of 1.0.
func IsNormalized(v []float32, tol float64) bool {
	return math.Abs(Magnitude(v)-1.0) <= tol
}
