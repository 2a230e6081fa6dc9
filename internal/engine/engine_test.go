package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/config"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuron"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataPath = t.TempDir()
	e, err := Open(cfg, "test-replica", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestIngest_CreatesNeuronAndJournalsIt(t *testing.T) {
	e := newTestEngine(t)
	n, dup, err := e.Ingest(context.Background(), "The quick brown fox jumps over the lazy dog.", []string{"fixture"})
	require.NoError(t, err)
	require.False(t, dup)
	require.NotEmpty(t, n.ID)
	require.Equal(t, uint64(1), e.Stats().Sequence)
}

func TestIngest_IdenticalTextIsDeduped(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	first, _, err := e.Ingest(ctx, "duplicate content here", nil)
	require.NoError(t, err)
	second, dup, err := e.Ingest(ctx, "duplicate content here", nil)
	require.NoError(t, err)
	require.True(t, dup)
	require.Equal(t, first.ID, second.ID)
}

func TestSearch_FindsIngestedDocument(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	n, _, err := e.Ingest(ctx, "gophers love tests written in idiomatic go", nil)
	require.NoError(t, err)

	results, err := e.Search(ctx, "gophers love tests written in idiomatic go", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, n.ID, results[0].Neuron.ID)
}

func TestConnect_JournalsSynapseFormation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, _, err := e.Ingest(ctx, "first document about cats", nil)
	require.NoError(t, err)
	b, _, err := e.Ingest(ctx, "second document about dogs", nil)
	require.NoError(t, err)

	seqBefore := e.Stats().Sequence
	err = e.Connect(a.ID, b.ID, neuron.SynapseAssociative, 0.5, true)
	require.NoError(t, err)
	require.Greater(t, e.Stats().Sequence, seqBefore)
}

func TestGetNeuron_UnknownIsNotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.GetNeuron(neuron.NewID())
	require.Error(t, err)
}

func TestVerifyMerkleRoot_IsTrueForUntamperedNeuron(t *testing.T) {
	e := newTestEngine(t)
	n, _, err := e.Ingest(context.Background(), "verify me please", nil)
	require.NoError(t, err)

	ok, err := e.VerifyMerkleRoot(n.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestListNeurons_ReflectsIngestedDocuments(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	_, _, err := e.Ingest(ctx, "alpha document", nil)
	require.NoError(t, err)
	_, _, err = e.Ingest(ctx, "beta document", nil)
	require.NoError(t, err)

	require.Len(t, e.ListNeurons(), 2)
}

func TestCheckpoint_Succeeds(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Checkpoint())
}
