package merkle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

func leafHashes(values ...string) []hashutil.Hash {
	out := make([]hashutil.Hash, len(values))
	for i, v := range values {
		out[i] = hashutil.ContentHash([]byte(v))
	}
	return out
}

func TestBuildTree_EmptyInputFails(t *testing.T) {
	_, err := BuildTree(nil)
	require.ErrorIs(t, err, nmterr.ErrEmptyInput)
}

func TestBuildTree_SingleLeafRootEqualsLeaf(t *testing.T) {
	leaves := leafHashes("solo")
	tree, err := BuildTree(leaves)
	require.NoError(t, err)
	require.Equal(t, 1, tree.Height())
	require.Equal(t, leaves[0], tree.Root)
}

func TestBuildTree_Deterministic(t *testing.T) {
	leaves := leafHashes("a", "b", "c", "d")
	t1, err := BuildTree(leaves)
	require.NoError(t, err)
	t2, err := BuildTree(leaves)
	require.NoError(t, err)
	require.Equal(t, t1.Root, t2.Root)
}

// Scenario 1 from the spec's end-to-end examples.
func TestInclusionProof_MutationFails(t *testing.T) {
	tree, err := BuildTree(leafHashes("a", "b", "c", "d"))
	require.NoError(t, err)

	proof, err := GenerateProof(tree, 2)
	require.NoError(t, err)
	require.Len(t, proof.Siblings, 2)
	require.True(t, VerifyProof(proof))

	tampered := *proof
	tampered.Leaf = hashutil.ContentHash([]byte("tampered_hash_aaaa"))
	require.False(t, VerifyProof(&tampered))
}

func TestGenerateProof_OutOfRange(t *testing.T) {
	tree, err := BuildTree(leafHashes("a", "b"))
	require.NoError(t, err)
	_, err = GenerateProof(tree, 5)
	require.ErrorIs(t, err, nmterr.ErrOutOfRange)
}

func TestAllIndices_ProveAndVerify(t *testing.T) {
	leaves := leafHashes("a", "b", "c", "d", "e")
	tree, err := BuildTree(leaves)
	require.NoError(t, err)
	for i := 0; i < tree.LeafCount; i++ {
		proof, err := GenerateProof(tree, i)
		require.NoError(t, err)
		require.True(t, VerifyProof(proof), "index %d", i)
	}
}

// Scenario 2 from the spec's end-to-end examples.
func TestBatchProof_Deduplication(t *testing.T) {
	tree, err := BuildTree(leafHashes("a", "b", "c", "d"))
	require.NoError(t, err)

	batch, err := GenerateBatchProof(tree, []int{0, 1})
	require.NoError(t, err)
	require.LessOrEqual(t, len(batch.Siblings), 2)
	require.True(t, VerifyBatchProof(batch))
}

func TestBatchProof_EmptyLeavesRejected(t *testing.T) {
	tree, err := BuildTree(leafHashes("a", "b"))
	require.NoError(t, err)
	batch, err := GenerateBatchProof(tree, nil)
	require.NoError(t, err)
	require.False(t, VerifyBatchProof(batch))
}

func TestBatchProof_AllIndices(t *testing.T) {
	leaves := leafHashes("a", "b", "c", "d", "e", "f", "g")
	tree, err := BuildTree(leaves)
	require.NoError(t, err)
	indices := make([]int, tree.LeafCount)
	for i := range indices {
		indices[i] = i
	}
	batch, err := GenerateBatchProof(tree, indices)
	require.NoError(t, err)
	require.True(t, VerifyBatchProof(batch))
}

func TestBatchProof_TamperedLeafRejected(t *testing.T) {
	tree, err := BuildTree(leafHashes("a", "b", "c", "d"))
	require.NoError(t, err)
	batch, err := GenerateBatchProof(tree, []int{0, 3})
	require.NoError(t, err)
	batch.Leaves[0].Hash = hashutil.ContentHash([]byte("tampered"))
	require.False(t, VerifyBatchProof(batch))
}

func TestRangeProof_InteriorRange(t *testing.T) {
	tree, err := BuildTree(leafHashes("a", "b", "c", "d", "e", "f"))
	require.NoError(t, err)

	rp, err := GenerateRangeProof(tree, 1, 4)
	require.NoError(t, err)
	require.NotNil(t, rp.LeftProof)
	require.NotNil(t, rp.RightProof)
	require.True(t, VerifyRangeProof(rp))
}

func TestRangeProof_EdgeAnchoredOmitsBoundary(t *testing.T) {
	tree, err := BuildTree(leafHashes("a", "b", "c", "d"))
	require.NoError(t, err)

	rp, err := GenerateRangeProof(tree, 0, tree.LeafCount)
	require.NoError(t, err)
	require.Nil(t, rp.LeftProof)
	require.Nil(t, rp.RightProof)
	require.True(t, VerifyRangeProof(rp))
}

func TestRangeProof_InvalidBoundsRejected(t *testing.T) {
	tree, err := BuildTree(leafHashes("a", "b"))
	require.NoError(t, err)
	_, err = GenerateRangeProof(tree, 1, 1)
	require.ErrorIs(t, err, nmterr.ErrOutOfRange)
}

func TestComputeDiff_AddedRemovedModified(t *testing.T) {
	oldTree, err := BuildTree(leafHashes("a", "b", "c"))
	require.NoError(t, err)
	newTree, err := BuildTree(leafHashes("a", "x", "c", "d"))
	require.NoError(t, err)

	diff := ComputeDiff(oldTree, newTree)
	require.Equal(t, []int{1}, diff.Modified)
	require.Equal(t, []int{3}, diff.Added)
	require.Empty(t, diff.Removed)
}

func TestVersionedTree_DiffAgainstParent(t *testing.T) {
	now := time.Unix(0, 0)
	v0, err := CreateVersion(leafHashes("a", "b"), now)
	require.NoError(t, err)
	require.Equal(t, 0, v0.Version)
	require.Nil(t, v0.ParentRoot)

	v1, err := CreateNewVersion(v0, leafHashes("a", "b", "c"), now)
	require.NoError(t, err)
	require.Equal(t, 1, v1.Version)
	require.NotNil(t, v1.ParentRoot)
	require.Equal(t, v0.Tree.Root, *v1.ParentRoot)
	require.Equal(t, []int{2}, v1.Diff.Added)
}
