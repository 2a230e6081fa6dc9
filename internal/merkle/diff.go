package merkle

import "github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"

// Diff reports how two trees' unpadded leaf sequences differ, by aligned
// index comparison.
type Diff struct {
	Added    []int
	Removed  []int
	Modified []int
	OldRoot  hashutil.Hash
	NewRoot  hashutil.Hash
}

// ComputeDiff aligns oldTree and newTree's OriginalLeaves by index: a
// trailing index present only in newTree is Added, one present only in
// oldTree is Removed, and one present in both but with a different hash
// is Modified.
func ComputeDiff(oldTree, newTree *Tree) *Diff {
	d := &Diff{OldRoot: oldTree.Root, NewRoot: newTree.Root}

	oldLen, newLen := len(oldTree.OriginalLeaves), len(newTree.OriginalLeaves)
	minLen := oldLen
	if newLen < minLen {
		minLen = newLen
	}

	for i := 0; i < minLen; i++ {
		if oldTree.OriginalLeaves[i] != newTree.OriginalLeaves[i] {
			d.Modified = append(d.Modified, i)
		}
	}
	for i := minLen; i < newLen; i++ {
		d.Added = append(d.Added, i)
	}
	for i := minLen; i < oldLen; i++ {
		d.Removed = append(d.Removed, i)
	}

	return d
}
