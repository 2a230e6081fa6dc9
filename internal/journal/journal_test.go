package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppend_AssignsMonotonicSequence(t *testing.T) {
	j := openTestJournal(t)
	e1, err := j.Append(Entry{Type: OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)
	e2, err := j.Append(Entry{Type: OpNeuronCreated, EntityID: "n2", Timestamp: time.Now()})
	require.NoError(t, err)
	require.Greater(t, e2.Sequence, e1.Sequence)
}

func TestGetLatestSequence_EmptyJournalIsZero(t *testing.T) {
	j := openTestJournal(t)
	require.Equal(t, uint64(0), j.GetLatestSequence())
}

func TestGetLatestSequence_UsesMetaMarker(t *testing.T) {
	j := openTestJournal(t)
	_, err := j.Append(Entry{Type: OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)
	last, err := j.Append(Entry{Type: OpNeuronCreated, EntityID: "n2", Timestamp: time.Now()})
	require.NoError(t, err)
	require.Equal(t, last.Sequence, j.GetLatestSequence())
}

func TestGetLatestSequence_FallsBackToScanWhenMarkerMissing(t *testing.T) {
	j := openTestJournal(t)
	last, err := j.Append(Entry{Type: OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)

	require.NoError(t, j.kv.Delete(metaLatestSequenceKey))

	require.Equal(t, last.Sequence, j.GetLatestSequence())
}

func TestClear_ResetsSequenceToZero(t *testing.T) {
	j := openTestJournal(t)
	_, err := j.Append(Entry{Type: OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)

	require.NoError(t, j.Clear())

	require.False(t, j.HasEntries())
	require.Equal(t, uint64(0), j.GetLatestSequence())

	next, err := j.Append(Entry{Type: OpNeuronCreated, EntityID: "n2", Timestamp: time.Now()})
	require.NoError(t, err)
	require.Equal(t, uint64(1), next.Sequence)
}

func TestGetByEntity_FiltersToMatchingEntries(t *testing.T) {
	j := openTestJournal(t)
	_, err := j.Append(Entry{Type: OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)
	_, err = j.Append(Entry{Type: OpNeuronCreated, EntityID: "n2", Timestamp: time.Now()})
	require.NoError(t, err)

	entries := j.GetByEntity("n1")
	require.Len(t, entries, 1)
	require.Equal(t, "n1", entries[0].EntityID)
}

func TestAppendBatch_AllGetIncreasingSequences(t *testing.T) {
	j := openTestJournal(t)
	entries := []Entry{
		{Type: OpNeuronCreated, EntityID: "a", Timestamp: time.Now()},
		{Type: OpNeuronCreated, EntityID: "b", Timestamp: time.Now()},
		{Type: OpNeuronCreated, EntityID: "c", Timestamp: time.Now()},
	}
	written, err := j.AppendBatch(entries)
	require.NoError(t, err)
	require.Len(t, written, 3)
	for i := 1; i < len(written); i++ {
		require.Greater(t, written[i].Sequence, written[i-1].Sequence)
	}
}
