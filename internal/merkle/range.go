package merkle

import (
	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

// RangeProof attests to the contiguous leaf slice [StartIndex, EndIndex).
// LeftProof/RightProof anchor the boundary leaves to Root; they are nil
// when that boundary already coincides with a tree edge (start==0 or
// end==leafCount), since the edge needs no separate anchor.
type RangeProof struct {
	StartIndex int
	EndIndex   int // exclusive
	Leaves     []hashutil.Hash
	LeftProof  *InclusionProof
	RightProof *InclusionProof
	Root       hashutil.Hash
}

// GenerateRangeProof proves that tree.OriginalLeaves[start:end] is exactly
// the leaf range held at the tree's Root.
func GenerateRangeProof(tree *Tree, start, end int) (*RangeProof, error) {
	if start < 0 || end > tree.LeafCount || start >= end {
		return nil, nmterr.Wrap(nmterr.ErrOutOfRange, "merkle: range [%d,%d) invalid for leafCount %d", start, end, tree.LeafCount)
	}

	leaves := make([]hashutil.Hash, end-start)
	copy(leaves, tree.OriginalLeaves[start:end])

	rp := &RangeProof{StartIndex: start, EndIndex: end, Leaves: leaves, Root: tree.Root}

	if start != 0 {
		lp, err := GenerateProof(tree, start)
		if err != nil {
			return nil, err
		}
		rp.LeftProof = lp
	}
	if end != tree.LeafCount {
		rp2, err := GenerateProof(tree, end-1)
		if err != nil {
			return nil, err
		}
		rp.RightProof = rp2
	}

	return rp, nil
}

// VerifyRangeProof validates the boundary proofs (when present) against
// proof.Root, checks the boundary leaves align with proof.Leaves, and
// checks the range length is consistent.
func VerifyRangeProof(proof *RangeProof) bool {
	if proof.EndIndex-proof.StartIndex != len(proof.Leaves) {
		return false
	}
	if len(proof.Leaves) == 0 {
		return false
	}

	if proof.LeftProof != nil {
		if proof.LeftProof.Root != proof.Root {
			return false
		}
		if proof.LeftProof.LeafIndex != proof.StartIndex {
			return false
		}
		if proof.LeftProof.Leaf != proof.Leaves[0] {
			return false
		}
		if !VerifyProof(proof.LeftProof) {
			return false
		}
	}

	if proof.RightProof != nil {
		if proof.RightProof.Root != proof.Root {
			return false
		}
		if proof.RightProof.LeafIndex != proof.EndIndex-1 {
			return false
		}
		if proof.RightProof.Leaf != proof.Leaves[len(proof.Leaves)-1] {
			return false
		}
		if !VerifyProof(proof.RightProof) {
			return false
		}
	}

	return true
}
