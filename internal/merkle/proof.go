package merkle

import (
	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

// InclusionProof attests that Leaf sits at LeafIndex in the tree whose
// apex is Root.
type InclusionProof struct {
	Leaf       hashutil.Hash
	LeafIndex  int
	Siblings   []hashutil.Hash
	Directions []bool // Directions[i] == true: the node at level i is a left child
	Root       hashutil.Hash
}

// GenerateProof builds an inclusion proof for the leaf at index.
//
// index addresses the tree's ORIGINAL (unpadded) leaf sequence only:
// index must be in [0, tree.LeafCount). Padded duplicate slots beyond
// LeafCount are never addressable through this API, so a generated proof's
// Leaf is always the caller's real content hash, never a duplicated
// padding leaf. See DESIGN.md for why this resolves the two competing
// padding conventions the source left open.
func GenerateProof(tree *Tree, index int) (*InclusionProof, error) {
	if index < 0 || index >= tree.LeafCount {
		return nil, nmterr.Wrap(nmterr.ErrOutOfRange, "merkle: leaf index %d out of range [0,%d)", index, tree.LeafCount)
	}

	siblings := make([]hashutil.Hash, 0, len(tree.Levels)-1)
	directions := make([]bool, 0, len(tree.Levels)-1)

	idx := index
	for level := 0; level < len(tree.Levels)-1; level++ {
		nodes := tree.Levels[level]
		isLeft := idx%2 == 0
		var sibIdx int
		if isLeft {
			sibIdx = idx + 1
		} else {
			sibIdx = idx - 1
		}
		siblings = append(siblings, nodes[sibIdx])
		directions = append(directions, isLeft)
		idx /= 2
	}

	return &InclusionProof{
		Leaf:       tree.Levels[0][index],
		LeafIndex:  index,
		Siblings:   siblings,
		Directions: directions,
		Root:       tree.Root,
	}, nil
}

// VerifyProof recomputes the root from proof.Leaf by climbing through
// Siblings following Directions, and reports whether it matches proof.Root.
func VerifyProof(proof *InclusionProof) bool {
	if len(proof.Siblings) != len(proof.Directions) {
		return false
	}
	cur := proof.Leaf
	for i, sib := range proof.Siblings {
		if proof.Directions[i] {
			cur = hashutil.PairHash(cur, sib)
		} else {
			cur = hashutil.PairHash(sib, cur)
		}
	}
	return cur == proof.Root
}
