package statesync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/journal"
)

func openTestManager(t *testing.T, replicaID string, resolver ResolutionStrategy) (*Manager, *journal.Journal) {
	t.Helper()
	j, err := journal.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return New(replicaID, j, resolver), j
}

func TestRecordChange_AdvancesClockAndAppends(t *testing.T) {
	m, j := openTestManager(t, "A", "")

	e, err := m.RecordChange(journal.Entry{Type: journal.OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)
	require.Equal(t, uint64(1), e.Sequence)
	require.Equal(t, uint64(1), m.Clock()["A"])
	require.Equal(t, uint64(1), j.GetLatestSequence())
}

func TestComputeStateDiff_SplitsLocalAndRemoteOnly(t *testing.T) {
	m, _ := openTestManager(t, "A", "")
	_, err := m.RecordChange(journal.Entry{Type: journal.OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)

	remoteEntry := journal.Entry{Sequence: 5, Type: journal.OpNeuronCreated, EntityID: "n2", Timestamp: time.Now()}
	diff := m.ComputeStateDiff(0, []journal.Entry{remoteEntry})

	require.Len(t, diff.LocalOnly, 1)
	require.Equal(t, "n1", diff.LocalOnly[0].EntityID)
	require.Len(t, diff.RemoteOnly, 1)
	require.Equal(t, "n2", diff.RemoteOnly[0].EntityID)
}

func TestApplyRemoteChanges_UnknownEntityIsAppendedOutright(t *testing.T) {
	m, j := openTestManager(t, "A", "")

	remote := Record{
		Entry: journal.Entry{Type: journal.OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()},
		Clock: Clock{"B": 1},
	}
	conflicts, err := m.ApplyRemoteChanges([]Record{remote})
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Equal(t, uint64(1), j.GetLatestSequence())
}

func TestApplyRemoteChanges_CausallyNewerRemoteIsAdopted(t *testing.T) {
	m, _ := openTestManager(t, "A", "")
	_, err := m.RecordChange(journal.Entry{Type: journal.OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)
	local := m.entityClocks["n1"]

	newer := local.Clone().Increment("B")
	remote := Record{
		Entry: journal.Entry{Type: journal.OpNeuronUpdated, EntityID: "n1", Timestamp: time.Now()},
		Clock: newer,
	}
	conflicts, err := m.ApplyRemoteChanges([]Record{remote})
	require.NoError(t, err)
	require.Empty(t, conflicts, "a causally-newer remote record resolves without a conflict")

	entries := m.journal.GetByEntity("n1")
	require.Equal(t, journal.OpNeuronUpdated, entries[len(entries)-1].Type)
}

func TestApplyRemoteChanges_CausallyOlderRemoteIsIgnored(t *testing.T) {
	m, _ := openTestManager(t, "A", "")
	_, err := m.RecordChange(journal.Entry{Type: journal.OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)
	_, err = m.RecordChange(journal.Entry{Type: journal.OpNeuronUpdated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)

	remote := Record{
		Entry: journal.Entry{Type: journal.OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()},
		Clock: Clock{"A": 1},
	}
	conflicts, err := m.ApplyRemoteChanges([]Record{remote})
	require.NoError(t, err)
	require.Empty(t, conflicts)

	entries := m.journal.GetByEntity("n1")
	require.Len(t, entries, 2, "an older remote record must not be appended")
}

func TestApplyRemoteChanges_ConcurrentWithoutResolverFallsBackToLastWriteWins(t *testing.T) {
	m, _ := openTestManager(t, "A", StrategyLastWriteWins)
	_, err := m.RecordChange(journal.Entry{Type: journal.OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)

	remote := Record{
		Entry: journal.Entry{Type: journal.OpNeuronUpdated, EntityID: "n1", Timestamp: time.Now().Add(time.Hour)},
		Clock: Clock{"B": 1},
	}
	conflicts, err := m.ApplyRemoteChanges([]Record{remote})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, journal.OpNeuronUpdated, conflicts[0].Resolved.Entry.Type, "later timestamp wins")
}

// TestApplyRemoteChanges_MergeStrategyInvokesCustomResolver exercises the
// concurrent-conflict-with-a-custom-merger scenario: a merge resolver that
// folds both sides' values into one payload must be invoked, and its
// return value must be exactly what gets persisted as the resolution.
func TestApplyRemoteChanges_MergeStrategyInvokesCustomResolver(t *testing.T) {
	m, j := openTestManager(t, "A", StrategyMerge)
	m.SetMergeResolver(func(local, remote journal.Entry) journal.Entry {
		return journal.Entry{
			Type:       local.Type,
			EntityID:   local.EntityID,
			EntityKind: local.EntityKind,
			Timestamp:  time.Now(),
			Payload: map[string]any{
				"merged":      true,
				"localValue":  local.Payload["value"],
				"remoteValue": remote.Payload["value"],
			},
		}
	})

	_, err := m.RecordChange(journal.Entry{
		Type: journal.OpNeuronUpdated, EntityID: "n1", Timestamp: time.Now(),
		Payload: map[string]any{"value": "local-val"},
	})
	require.NoError(t, err)

	remote := Record{
		Entry: journal.Entry{
			Type: journal.OpNeuronUpdated, EntityID: "n1", Timestamp: time.Now(),
			Payload: map[string]any{"value": "remote-val"},
		},
		Clock: Clock{"B": 1},
	}
	conflicts, err := m.ApplyRemoteChanges([]Record{remote})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	resolvedPayload := conflicts[0].Resolved.Entry.Payload
	require.Equal(t, true, resolvedPayload["merged"])
	require.Equal(t, "local-val", resolvedPayload["localValue"])
	require.Equal(t, "remote-val", resolvedPayload["remoteValue"])

	stored := m.journal.GetByEntity("n1")
	last := stored[len(stored)-1]
	require.Equal(t, resolvedPayload, last.Payload, "the merged entry must be exactly what's persisted")
	require.Equal(t, uint64(2), j.GetLatestSequence(), "the merge must record a new journal entry, not reuse local's sequence")
}

func TestApplyRemoteChanges_MergeStrategyWithoutResolverFallsBackToLastWriteWins(t *testing.T) {
	m, _ := openTestManager(t, "A", StrategyMerge)
	_, err := m.RecordChange(journal.Entry{Type: journal.OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)

	remote := Record{
		Entry: journal.Entry{Type: journal.OpNeuronUpdated, EntityID: "n1", Timestamp: time.Now().Add(time.Hour)},
		Clock: Clock{"B": 1},
	}
	conflicts, err := m.ApplyRemoteChanges([]Record{remote})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, journal.OpNeuronUpdated, conflicts[0].Resolved.Entry.Type)
}

func TestApplyRemoteChanges_LocalWinsKeepsLocalEntryUnpersisted(t *testing.T) {
	m, j := openTestManager(t, "A", StrategyLocalWins)
	_, err := m.RecordChange(journal.Entry{Type: journal.OpNeuronCreated, EntityID: "n1", Timestamp: time.Now()})
	require.NoError(t, err)

	remote := Record{
		Entry: journal.Entry{Type: journal.OpNeuronUpdated, EntityID: "n1", Timestamp: time.Now().Add(time.Hour)},
		Clock: Clock{"B": 1},
	}
	conflicts, err := m.ApplyRemoteChanges([]Record{remote})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, journal.OpNeuronCreated, conflicts[0].Resolved.Entry.Type)
	require.Equal(t, uint64(1), j.GetLatestSequence(), "local-wins keeps the status quo without a new journal record")
}

func TestValidateClock_RejectsEmptyReplicaID(t *testing.T) {
	c := Clock{"": 1}
	require.Error(t, ValidateClock(c))
}

func TestValidateClock_AcceptsWellFormedClock(t *testing.T) {
	c := Clock{"A": 3, "B": 1}
	require.NoError(t, ValidateClock(c))
}

func TestCompare_DetectsConcurrentClocks(t *testing.T) {
	a := Clock{"A": 1}
	b := Clock{"B": 1}
	require.Equal(t, Concurrent, Compare(a, b))
}
