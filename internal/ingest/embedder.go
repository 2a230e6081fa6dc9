// Embedder is the pluggable text -> vector step. The teacher's
// pkg/vector.Vectorizer wraps a GGUF model via a purego/llama.cpp FFI
// boundary that cannot be exercised without a build (see DESIGN.md); the
// Embedder interface here keeps the same EmbedText shape so a real
// model-backed implementation can be dropped in later, and ships a
// deterministic hash-expansion embedder so the rest of the pipeline is
// fully exercisable without one.
package ingest

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

// EmbeddingDim is the fixed vector width the engine stores and indexes,
// per §1's embedding contract.
const EmbeddingDim = 384

// Embedder turns cleaned text into an EmbeddingDim-wide, L2-normalized
// float32 vector.
type Embedder interface {
	EmbedText(text string) ([]float32, error)
}

// HashEmbedder is a deterministic, model-free Embedder: it expands a
// SHA-256 digest of the (CleanText-cleaned, whitespace-collapsed) input across
// EmbeddingDim dimensions via repeated re-hashing, then L2-normalizes.
// Identical text always yields an identical vector, and unrelated texts
// are uncorrelated in expectation — sufficient for exercising chunking,
// indexing, and search end-to-end without a production embedding model.
type HashEmbedder struct{}

// NewHashEmbedder constructs the deterministic embedder.
func NewHashEmbedder() *HashEmbedder { return &HashEmbedder{} }

// EmbedText implements Embedder.
func (HashEmbedder) EmbedText(text string) ([]float32, error) {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil, nmterr.Wrap(nmterr.ErrEmptyInput, "ingest: embed text is empty after cleaning")
	}

	out := make([]float32, EmbeddingDim)
	seed := sha256.Sum256([]byte(cleaned))
	block := seed
	idx := 0
	for idx < EmbeddingDim {
		block = sha256.Sum256(block[:])
		for i := 0; i+4 <= len(block) && idx < EmbeddingDim; i += 4 {
			bits := binary.LittleEndian.Uint32(block[i : i+4])
			// Map the 32-bit word to a value in [-1,1] via its sine; the
			// L2 normalization below corrects for scale anyway.
			out[idx] = float32(math.Sin(float64(bits)))
			idx++
		}
	}
	return hashutil.Normalize(out), nil
}
