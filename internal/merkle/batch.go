package merkle

import (
	"fmt"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
)

// LeafRef pairs a leaf's index with its hash inside a BatchProof.
type LeafRef struct {
	Index int
	Hash  hashutil.Hash
}

// BatchProof proves the inclusion of a set of leaves against a single
// root, deduplicating siblings shared across the individual per-leaf
// proofs.
//
// Height records the tree's level count (leaf level through root,
// inclusive). The proof shape in spec is {leaves, siblings, root}; Height
// is a small addition so the verifier knows exactly when reconstruction
// has reached the apex instead of guessing from sibling-key levels, which
// is ambiguous whenever every sibling needed for a level happens to
// already be part of the proven set.
type BatchProof struct {
	Leaves   []LeafRef
	Siblings map[string]hashutil.Hash // "level:index" -> hash
	Root     hashutil.Hash
	Height   int
}

func siblingKey(level, index int) string {
	return fmt.Sprintf("%d:%d", level, index)
}

// GenerateBatchProof builds a proof for every index in indices, sharing
// sibling nodes whose key ("level:index") is needed by more than one of
// the per-leaf paths.
func GenerateBatchProof(tree *Tree, indices []int) (*BatchProof, error) {
	proof := &BatchProof{Siblings: map[string]hashutil.Hash{}, Root: tree.Root, Height: tree.Height()}
	if len(indices) == 0 {
		return proof, nil
	}

	leaves := make([]LeafRef, 0, len(indices))
	frontier := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= tree.LeafCount {
			continue
		}
		leaves = append(leaves, LeafRef{Index: idx, Hash: tree.Levels[0][idx]})
		frontier[idx] = true
	}
	proof.Leaves = leaves

	for level := 0; level < len(tree.Levels)-1; level++ {
		nodes := tree.Levels[level]
		next := make(map[int]bool)
		for idx := range frontier {
			var sibIdx int
			if idx%2 == 0 {
				sibIdx = idx + 1
			} else {
				sibIdx = idx - 1
			}
			// A sibling already part of the proven frontier needs no
			// separate entry: its value is recoverable at reconstruction
			// time from the frontier itself.
			if !frontier[sibIdx] {
				key := siblingKey(level, sibIdx)
				if _, ok := proof.Siblings[key]; !ok {
					proof.Siblings[key] = nodes[sibIdx]
				}
			}
			next[idx/2] = true
		}
		frontier = next
	}

	return proof, nil
}

// VerifyBatchProof reconstructs the tree upward from proof.Leaves and
// proof.Siblings, climbing exactly proof.Height-1 levels, and accepts iff
// the single node remaining at the top level equals proof.Root. Unlike a
// loose "any known node equals root" check, this only ever compares the
// node at the computed top level, closing the adversarial-match gap the
// source's verifier left open (DESIGN.md, resolving the open question).
func VerifyBatchProof(proof *BatchProof) bool {
	if len(proof.Leaves) == 0 || proof.Height < 1 {
		return false
	}

	known := make(map[int]hashutil.Hash, len(proof.Leaves))
	for _, lf := range proof.Leaves {
		known[lf.Index] = lf.Hash
	}

	if proof.Height == 1 {
		if len(known) != 1 {
			return false
		}
		v, ok := known[0]
		return ok && v == proof.Root
	}

	for level := 0; level < proof.Height-1; level++ {
		next := make(map[int]hashutil.Hash)
		for idx := range known {
			parent := idx / 2
			if _, done := next[parent]; done {
				continue
			}
			leftIdx, rightIdx := parent*2, parent*2+1
			left, lok := known[leftIdx]
			if !lok {
				left, lok = proof.Siblings[siblingKey(level, leftIdx)]
			}
			right, rok := known[rightIdx]
			if !rok {
				right, rok = proof.Siblings[siblingKey(level, rightIdx)]
			}
			if !lok || !rok {
				return false
			}
			next[parent] = hashutil.PairHash(left, right)
		}
		known = next
	}

	if len(known) != 1 {
		return false
	}
	v, ok := known[0]
	return ok && v == proof.Root
}
