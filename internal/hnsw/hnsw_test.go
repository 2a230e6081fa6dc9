package hnsw

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
)

func randomUnitVec(r *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(r.NormFloat64())
	}
	return hashutil.Normalize(v)
}

func TestInsertSearch_Basic(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	idx := New(DefaultParams(), rand.New(rand.NewSource(7)))

	const n = 50
	vecs := make(map[string][]float32, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("n%d", i)
		v := randomUnitVec(r, 16)
		vecs[id] = v
		require.NoError(t, idx.Insert(id, v))
	}

	query := vecs["n10"]
	results := idx.Search(query, 5, 0)
	require.NotEmpty(t, results)
	require.LessOrEqual(t, len(results), 5)
	for i := 1; i < len(results); i++ {
		require.LessOrEqual(t, results[i].Similarity, results[i-1].Similarity)
	}
	for _, res := range results {
		require.GreaterOrEqual(t, res.Similarity, -1.0001)
		require.LessOrEqual(t, res.Similarity, 1.0001)
	}
}

func TestInsert_DuplicateRejected(t *testing.T) {
	idx := New(DefaultParams(), rand.New(rand.NewSource(1)))
	require.NoError(t, idx.Insert("a", []float32{1, 0}))
	err := idx.Insert("a", []float32{0, 1})
	require.Error(t, err)
}

// Scenario 3 from the spec's end-to-end examples.
func TestSoftDeleteAndCompact(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	idx := New(DefaultParams(), rand.New(rand.NewSource(3)))

	ids := make([]string, 100)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("c%d", i)
		ids[i] = id
		require.NoError(t, idx.Insert(id, randomUnitVec(r, 8)))
	}

	for _, id := range ids {
		require.NoError(t, idx.Delete(id))
	}
	require.Equal(t, 100, idx.TombstoneCount())

	query := randomUnitVec(r, 8)
	require.Empty(t, idx.Search(query, 5, 0))

	removed := idx.Compact()
	require.Equal(t, 100, removed)
	require.Equal(t, 0, idx.TombstoneCount())
	require.Equal(t, 0, idx.Len())
}

func TestDelete_NeverReappearsInSearch(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	idx := New(DefaultParams(), rand.New(rand.NewSource(5)))

	target := randomUnitVec(r, 8)
	require.NoError(t, idx.Insert("target", target))
	for i := 0; i < 20; i++ {
		require.NoError(t, idx.Insert(fmt.Sprintf("other%d", i), randomUnitVec(r, 8)))
	}

	require.NoError(t, idx.Delete("target"))

	for i := 0; i < 5; i++ {
		results := idx.Search(target, 25, 0)
		for _, res := range results {
			require.NotEqual(t, "target", res.ID)
		}
	}

	idx.Compact()
	for i := 0; i < 20; i++ {
		results := idx.Search(randomUnitVec(r, 8), 25, 0)
		for _, res := range results {
			require.NotEqual(t, "target", res.ID)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(21))
	idx := New(DefaultParams(), rand.New(rand.NewSource(4)))
	for i := 0; i < 30; i++ {
		require.NoError(t, idx.Insert(fmt.Sprintf("n%d", i), randomUnitVec(r, 8)))
	}

	snap := idx.Snapshot()
	restored := LoadSnapshot(snap)

	require.Equal(t, idx.Len(), restored.Len())
	query := randomUnitVec(r, 8)
	a := idx.Search(query, 5, 0)
	b := restored.Search(query, 5, 0)
	require.Equal(t, len(a), len(b))
}
