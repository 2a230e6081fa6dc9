package neuronstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuron"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestNeuron(embedding []float32) *neuron.Neuron {
	root := hashutil.ContentHash([]byte("doc"))
	return neuron.New(embedding, []hashutil.Hash{root}, root, time.Now())
}

func TestPutGetNeuron_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	n := newTestNeuron([]float32{1, 0, 0})

	require.NoError(t, s.PutNeuron(n))
	got, err := s.GetNeuron(n.ID)
	require.NoError(t, err)
	require.Equal(t, n.ID, got.ID)
	require.Equal(t, n.Embedding, got.Embedding)
}

func TestGetNeuron_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetNeuron(neuron.NewID())
	require.ErrorIs(t, err, nmterr.ErrNotFound)
}

func TestFindByMerkleRoot(t *testing.T) {
	s := openTestStore(t)
	n := newTestNeuron([]float32{0, 1, 0})
	require.NoError(t, s.PutNeuron(n))

	id, ok := s.FindByMerkleRoot(n.MerkleRoot)
	require.True(t, ok)
	require.Equal(t, n.ID, id)
}

func TestAllNeuronIDs_ListsEveryPersistedNeuron(t *testing.T) {
	s := openTestStore(t)
	a := newTestNeuron([]float32{1, 0})
	b := newTestNeuron([]float32{0, 1})
	require.NoError(t, s.PutNeuron(a))
	require.NoError(t, s.PutNeuron(b))

	ids := s.AllNeuronIDs()
	require.ElementsMatch(t, []neuron.ID{a.ID, b.ID}, ids)
}

func TestAllNeuronIDs_EmptyStore(t *testing.T) {
	s := openTestStore(t)
	require.Empty(t, s.AllNeuronIDs())
}

func TestSynapse_PutGetDeleteAndIndexes(t *testing.T) {
	s := openTestStore(t)
	a := newTestNeuron([]float32{1, 0})
	b := newTestNeuron([]float32{0, 1})
	require.NoError(t, s.PutNeuron(a))
	require.NoError(t, s.PutNeuron(b))

	syn := neuron.NewSynapse(a.ID, b.ID, neuron.SynapseSemantic, 0.9, true, time.Now())
	require.NoError(t, s.PutSynapse(syn))

	got, err := s.GetSynapse(syn.ID)
	require.NoError(t, err)
	require.Equal(t, syn.SourceID, got.SourceID)

	require.Equal(t, []neuron.SynapseID{syn.ID}, s.OutgoingSynapseIDs(a.ID))
	require.Equal(t, []neuron.SynapseID{syn.ID}, s.IncomingSynapseIDs(b.ID))

	require.NoError(t, s.DeleteSynapse(syn.ID))
	require.Empty(t, s.OutgoingSynapseIDs(a.ID))
	require.Empty(t, s.IncomingSynapseIDs(b.ID))
}

func TestDeleteNeuron_RemovesMerkleIndexToo(t *testing.T) {
	s := openTestStore(t)
	n := newTestNeuron([]float32{1, 1})
	require.NoError(t, s.PutNeuron(n))

	require.NoError(t, s.DeleteNeuron(n.ID))
	_, err := s.GetNeuron(n.ID)
	require.ErrorIs(t, err, nmterr.ErrNotFound)
	_, ok := s.FindByMerkleRoot(n.MerkleRoot)
	require.False(t, ok)
}

func TestDeleteNeuron_MissingIsNoop(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.DeleteNeuron(neuron.NewID()))
}
