package merkle

import (
	"time"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
)

// VersionedTree wraps a Tree with a monotonically increasing version and
// an optional diff against its parent version's tree.
type VersionedTree struct {
	Tree       *Tree
	Version    int
	ParentRoot *hashutil.Hash
	Timestamp  time.Time
	Diff       *Diff
}

// CreateVersion builds version 0 of a versioned tree: no parent, no diff.
func CreateVersion(leaves []hashutil.Hash, now time.Time) (*VersionedTree, error) {
	t, err := BuildTree(leaves)
	if err != nil {
		return nil, err
	}
	return &VersionedTree{Tree: t, Version: 0, Timestamp: now}, nil
}

// CreateNewVersion builds the next version from parent, embedding a diff
// of the new leaf set against parent's.
func CreateNewVersion(parent *VersionedTree, leaves []hashutil.Hash, now time.Time) (*VersionedTree, error) {
	t, err := BuildTree(leaves)
	if err != nil {
		return nil, err
	}
	parentRoot := parent.Tree.Root
	return &VersionedTree{
		Tree:       t,
		Version:    parent.Version + 1,
		ParentRoot: &parentRoot,
		Timestamp:  now,
		Diff:       ComputeDiff(parent.Tree, t),
	}, nil
}
