// Package merkle implements the fixed, static Merkle tree used to bind a
// neuron's chunk set to a single root hash, plus inclusion/batch/range
// proofs and versioned-tree diffing.
//
// There is no streaming accumulator here and no append-only log structure:
// callers rebuild a tree from a leaf slice whenever the underlying chunk
// set changes, which is why the engine only ever constructs small trees
// (one per neuron's chunk list).
package merkle

import (
	"math/bits"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

// Tree is a padded, binary Merkle tree built from a fixed leaf set.
type Tree struct {
	Root           hashutil.Hash
	Levels         [][]hashutil.Hash
	LeafCount      int // count of caller-supplied, unpadded leaves
	OriginalLeaves []hashutil.Hash
}

// BuildTree constructs a Tree from leafHashes. The leaf sequence is padded
// to the next power of two by duplicating the last leaf; OriginalLeaves
// retains the unpadded input so callers can recover it and so diffs are
// computed against real content only.
func BuildTree(leafHashes []hashutil.Hash) (*Tree, error) {
	if len(leafHashes) == 0 {
		return nil, nmterr.Wrap(nmterr.ErrEmptyInput, "merkle: buildTree requires at least one leaf")
	}

	original := make([]hashutil.Hash, len(leafHashes))
	copy(original, leafHashes)

	paddedLen := nextPowerOfTwo(len(leafHashes))
	level0 := make([]hashutil.Hash, paddedLen)
	copy(level0, leafHashes)
	last := leafHashes[len(leafHashes)-1]
	for i := len(leafHashes); i < paddedLen; i++ {
		level0[i] = last
	}

	levels := [][]hashutil.Hash{level0}
	cur := level0
	for len(cur) > 1 {
		next := make([]hashutil.Hash, len(cur)/2)
		for j := range next {
			next[j] = hashutil.PairHash(cur[2*j], cur[2*j+1])
		}
		levels = append(levels, next)
		cur = next
	}

	return &Tree{
		Root:           levels[len(levels)-1][0],
		Levels:         levels,
		LeafCount:      len(leafHashes),
		OriginalLeaves: original,
	}, nil
}

// Height returns the number of levels, including the leaf level and the
// root level.
func (t *Tree) Height() int { return len(t.Levels) }

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
