package statesync

import (
	"fmt"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/journal"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

// ResolutionStrategy names a conflict-resolution policy for
// ApplyRemoteChanges.
type ResolutionStrategy string

const (
	// StrategyLastWriteWins keeps whichever side's entry has the later
	// Timestamp. This is the default.
	StrategyLastWriteWins ResolutionStrategy = "last-write-wins"
	// StrategyLocalWins always keeps the local entry on conflict.
	StrategyLocalWins ResolutionStrategy = "local-wins"
	// StrategyRemoteWins always adopts the remote entry on conflict.
	StrategyRemoteWins ResolutionStrategy = "remote-wins"
	// StrategyMerge invokes the Manager's configured MergeResolver with
	// both sides' entries and records whatever entry it returns as the
	// resolution — used for entity kinds where neither side's value
	// alone is correct (e.g. two independently formed synapses between
	// the same pair). If no resolver is configured, falls back to
	// last-write-wins.
	StrategyMerge ResolutionStrategy = "merge"
)

// MergeResolver reconciles two concurrent entries for the same entity
// into a single entry to record as the resolution. Per §4.J, "merge
// accepts a user resolver that takes both entries and returns a single
// entry" — the resolver decides what that single entry looks like (for
// example, a payload carrying both original values rather than
// discarding either side).
type MergeResolver func(local, remote journal.Entry) journal.Entry

// Record pairs a journal entry with the vector clock in effect when it
// was recorded.
type Record struct {
	Entry journal.Entry
	Clock Clock
}

// Conflict describes two records for the same entity whose clocks are
// Concurrent.
type Conflict struct {
	EntityID string
	Local    Record
	Remote   Record
	Resolved Record
	Strategy ResolutionStrategy
}

// StateDiff is the result of ComputeStateDiff: what the local replica
// has that the remote lacks, and vice versa, keyed by the journal
// sequence each side is missing.
type StateDiff struct {
	LocalOnly  []journal.Entry
	RemoteOnly []journal.Entry
}

// Manager tracks this replica's vector clock and its journal, and
// resolves incoming remote change batches against them.
type Manager struct {
	replicaID string
	journal   *journal.Journal
	clock     Clock
	resolver  ResolutionStrategy
	merge     MergeResolver

	// entityClocks remembers the clock in effect the last time each
	// entity was mutated locally, so a later remote record for the same
	// entity can be compared causally rather than just by timestamp.
	entityClocks map[string]Clock
}

// New constructs a Manager for replicaID, backed by j, using the given
// default conflict-resolution strategy (StrategyLastWriteWins if empty).
func New(replicaID string, j *journal.Journal, resolver ResolutionStrategy) *Manager {
	if resolver == "" {
		resolver = StrategyLastWriteWins
	}
	return &Manager{
		replicaID:    replicaID,
		journal:      j,
		clock:        NewClock(),
		resolver:     resolver,
		entityClocks: make(map[string]Clock),
	}
}

// Clock returns a copy of the manager's current vector clock.
func (m *Manager) Clock() Clock { return m.clock.Clone() }

// SetMergeResolver installs the resolver StrategyMerge invokes for
// concurrent conflicts. Callers that construct a Manager with
// StrategyMerge should call this before ApplyRemoteChanges sees any
// conflicting entity; without a resolver, StrategyMerge falls back to
// last-write-wins.
func (m *Manager) SetMergeResolver(fn MergeResolver) { m.merge = fn }

// RecordChange advances the local clock, appends entry to the journal,
// and remembers the clock snapshot under the entry's entity id.
func (m *Manager) RecordChange(entry journal.Entry) (journal.Entry, error) {
	m.clock.Increment(m.replicaID)
	appended, err := m.journal.Append(entry)
	if err != nil {
		return appended, err
	}
	m.entityClocks[entry.EntityID] = m.clock.Clone()
	return appended, nil
}

// RecordChanges appends a whole batch atomically, advancing the clock
// once per entry so each gets a distinct logical timestamp. If the
// underlying batch append fails, the clock is rolled back to its
// pre-call value so a failed batch never leaves the replica believing it
// made progress it didn't durably record.
func (m *Manager) RecordChanges(entries []journal.Entry) ([]journal.Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	before := m.clock.Clone()
	for range entries {
		m.clock.Increment(m.replicaID)
	}
	appended, err := m.journal.AppendBatch(entries)
	if err != nil {
		m.clock = before
		return nil, err
	}
	for i, e := range appended {
		c := before.Clone()
		c[m.replicaID] = before[m.replicaID] + uint64(i+1)
		m.entityClocks[e.EntityID] = c
	}
	return appended, nil
}

// ComputeStateDiff compares this replica's journal against a remote
// peer's reported last-seen sequence (remoteAfterSeq) and its own clock:
// entries this replica has past remoteAfterSeq are LocalOnly; entries
// the remote reports via remoteEntries that this replica has never seen
// (by entity+sequence) are RemoteOnly.
func (m *Manager) ComputeStateDiff(remoteAfterSeq uint64, remoteEntries []journal.Entry) StateDiff {
	diff := StateDiff{LocalOnly: m.journal.GetAfterSequence(remoteAfterSeq)}

	known := make(map[string]bool)
	for _, e := range m.journal.GetAfterSequence(0) {
		known[entryKey(e)] = true
	}
	localLatest := m.journal.GetLatestSequence()
	for _, e := range remoteEntries {
		if e.Sequence <= localLatest && !known[entryKey(e)] {
			// the remote has a sequence number we also occupy locally but
			// with different content: genuinely divergent history, surface
			// it as remote-only so ApplyRemoteChanges can conflict-check it.
			diff.RemoteOnly = append(diff.RemoteOnly, e)
			continue
		}
		if e.Sequence > localLatest {
			diff.RemoteOnly = append(diff.RemoteOnly, e)
		}
	}
	return diff
}

func entryKey(e journal.Entry) string {
	return fmt.Sprintf("%s:%d", e.EntityID, e.Sequence)
}

// ApplyRemoteChanges merges a batch of remote records into the local
// journal. For each remote record whose entity has no known local
// clock, it is appended outright. For entities with a known local clock
// that compares Concurrent to the remote record's clock, the configured
// resolver decides what survives; Before/After/Equal comparisons are
// resolved without invoking the resolver (the causally later side simply
// wins).
func (m *Manager) ApplyRemoteChanges(remote []Record) ([]Conflict, error) {
	var conflicts []Conflict

	for _, r := range remote {
		localClock, known := m.entityClocks[r.Entry.EntityID]
		if !known {
			if _, err := m.RecordChange(r.Entry); err != nil {
				return conflicts, err
			}
			m.entityClocks[r.Entry.EntityID] = r.Clock.Clone()
			continue
		}

		switch Compare(localClock, r.Clock) {
		case Before:
			// remote is causally newer: adopt it.
			if _, err := m.RecordChange(r.Entry); err != nil {
				return conflicts, err
			}
			m.entityClocks[r.Entry.EntityID] = r.Clock.Clone()
		case After, Equal:
			// local already dominates or matches; nothing to do.
		case Concurrent:
			resolved, err := m.resolveConflict(r.Entry.EntityID, localClock, r)
			if err != nil {
				return conflicts, err
			}
			conflicts = append(conflicts, resolved)
		}
	}
	return conflicts, nil
}

func (m *Manager) resolveConflict(entityID string, localClock Clock, remote Record) (Conflict, error) {
	local := Record{Clock: localClock}
	if entries := m.journal.GetByEntity(entityID); len(entries) > 0 {
		local.Entry = entries[len(entries)-1]
	}

	conflict := Conflict{EntityID: entityID, Local: local, Remote: remote, Strategy: m.resolver}

	switch m.resolver {
	case StrategyRemoteWins:
		conflict.Resolved = remote
	case StrategyLocalWins:
		conflict.Resolved = local
	case StrategyMerge:
		if m.merge != nil {
			conflict.Resolved = Record{Entry: m.merge(local.Entry, remote.Entry), Clock: Merge(localClock, remote.Clock)}
		} else if remote.Entry.Timestamp.After(local.Entry.Timestamp) {
			conflict.Resolved = remote
		} else {
			conflict.Resolved = local
		}
	case StrategyLastWriteWins:
		fallthrough
	default:
		if remote.Entry.Timestamp.After(local.Entry.Timestamp) {
			conflict.Resolved = remote
		} else {
			conflict.Resolved = local
		}
	}

	// Persist the resolution unless it's exactly the entry already
	// durably recorded locally (StrategyLocalWins keeping the status
	// quo); a remote adoption or a merged entry both need a new journal
	// record, since journal.Append assigns the merged entry its own
	// fresh sequence regardless of what either side carried.
	if conflict.Resolved.Entry.EntityID != local.Entry.EntityID ||
		conflict.Resolved.Entry.Sequence != local.Entry.Sequence {
		recorded, err := m.RecordChange(conflict.Resolved.Entry)
		if err != nil {
			return conflict, err
		}
		conflict.Resolved.Entry = recorded
	}
	m.clock = Merge(m.clock, remote.Clock)
	m.entityClocks[entityID] = Merge(localClock, remote.Clock)

	return conflict, nil
}

// ValidateClock rejects a clock containing an empty replica id — a
// defensive check at the sync boundary per the concurrency section's
// "validate all external input" rule.
func ValidateClock(c Clock) error {
	for id := range c {
		if id == "" {
			return nmterr.Wrap(nmterr.ErrInvalidArgument, "statesync: empty replica id in clock")
		}
	}
	return nil
}
