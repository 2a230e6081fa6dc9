// Package journal is the append-only change log (component I): every
// mutation anywhere in the engine is recorded here before (or alongside)
// being applied, giving the state-sync manager a replayable history and
// giving operators a durable audit trail. Grounded on the same
// WAL+checkpoint discipline as internal/kvstore, reused rather than
// reimplemented.
package journal

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/kvstore"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

// OpType enumerates the kinds of mutation the journal can record, per
// §6's change-journal entry shape.
type OpType string

const (
	OpNeuronCreated  OpType = "neuron:created"
	OpNeuronUpdated  OpType = "neuron:updated"
	OpNeuronDeleted  OpType = "neuron:deleted"
	OpSynapseFormed  OpType = "synapse:formed"
	OpSynapseUpdated OpType = "synapse:updated"
	OpSynapseDeleted OpType = "synapse:deleted"
	OpChunkAdded     OpType = "chunk:added"
	OpChunkRemoved   OpType = "chunk:removed"
)

// Entry is one recorded change. Sequence is assigned by the journal on
// append and is monotonic and never reused across deletions or
// compaction, so a remote peer can always ask "give me everything after
// sequence N" unambiguously. Clear is the exception: it resets numbering,
// and the next append after it starts again from 1.
type Entry struct {
	Sequence   uint64         `msgpack:"sequence"`
	Type       OpType         `msgpack:"type"`
	EntityID   string         `msgpack:"entityId"`
	EntityKind string         `msgpack:"entityKind"` // "neuron" | "synapse" | "chunk"
	Timestamp  time.Time      `msgpack:"timestamp"`
	Payload    map[string]any `msgpack:"payload,omitempty"`
}

// Journal is the append-only sequence log, rooted at <dataDir>/journal.
type Journal struct {
	kv *kvstore.Store
}

// Open opens or recovers the journal at dir.
func Open(dir string) (*Journal, error) {
	kv, err := kvstore.Open(dir, kvstore.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &Journal{kv: kv}, nil
}

// entryPrefix and metaLatestSequenceKey match §6's literal key
// conventions: seq:<20-digit-zero-padded-sequence> and
// meta:latest-sequence.
const entryPrefix = "seq:"
const metaLatestSequenceKey = "meta:latest-sequence"

func entryKey(seq uint64) string {
	return fmt.Sprintf("%s%020d", entryPrefix, seq)
}

func seqFromEntryKey(key string) uint64 {
	seq, err := strconv.ParseUint(key[len(entryPrefix):], 10, 64)
	if err != nil {
		return 0
	}
	return seq
}

// Append assigns the next sequence number to entry and persists it.
func (j *Journal) Append(entry Entry) (Entry, error) {
	last := j.GetLatestSequence()
	entry.Sequence = last + 1
	encoded, err := msgpack.Marshal(entry)
	if err != nil {
		return entry, err
	}
	batch := map[string][]byte{
		entryKey(entry.Sequence): encoded,
		metaLatestSequenceKey:    []byte(fmt.Sprintf("%020d", entry.Sequence)),
	}
	if err := j.kv.PutBatch(batch); err != nil {
		return entry, err
	}
	return entry, nil
}

// AppendBatch assigns consecutive sequence numbers to entries and
// persists all of them atomically: either every entry in the batch lands
// or, on error, none of them are visible (internal/kvstore.PutBatch's
// all-or-nothing write).
func (j *Journal) AppendBatch(entries []Entry) ([]Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	next := j.GetLatestSequence() + 1
	batch := make(map[string][]byte, len(entries))
	out := make([]Entry, len(entries))
	var last uint64
	for i, e := range entries {
		e.Sequence = next + uint64(i)
		last = e.Sequence
		encoded, err := msgpack.Marshal(e)
		if err != nil {
			return nil, err
		}
		batch[entryKey(e.Sequence)] = encoded
		out[i] = e
	}
	batch[metaLatestSequenceKey] = []byte(fmt.Sprintf("%020d", last))
	if err := j.kv.PutBatch(batch); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches the entry at sequence seq.
func (j *Journal) Get(seq uint64) (Entry, error) {
	raw, ok := j.kv.Get(entryKey(seq))
	if !ok {
		return Entry{}, nmterr.Wrap(nmterr.ErrNotFound, "journal: entry %d not found", seq)
	}
	var e Entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		return Entry{}, nmterr.Wrap(nmterr.ErrIntegrityViolation, "journal: decode entry %d: %v", seq, err)
	}
	return e, nil
}

// GetRange returns every entry with sequence in [from, to], inclusive,
// in ascending order.
func (j *Journal) GetRange(from, to uint64) []Entry {
	var out []Entry
	j.kv.Iterate(entryPrefix, func(key string, value []byte) bool {
		seq := seqFromEntryKey(key)
		if seq < from {
			return true
		}
		if seq > to {
			return false
		}
		var e Entry
		if err := msgpack.Unmarshal(value, &e); err == nil {
			out = append(out, e)
		}
		return true
	})
	return out
}

// GetAfterSequence returns every entry with sequence strictly greater
// than seq, in ascending order — the primary query the state-sync
// manager uses to catch a peer up.
func (j *Journal) GetAfterSequence(seq uint64) []Entry {
	return j.GetRange(seq+1, ^uint64(0))
}

// GetByEntity returns every entry recorded for entityID, in ascending
// sequence order.
func (j *Journal) GetByEntity(entityID string) []Entry {
	var out []Entry
	j.kv.Iterate(entryPrefix, func(_ string, value []byte) bool {
		var e Entry
		if err := msgpack.Unmarshal(value, &e); err == nil && e.EntityID == entityID {
			out = append(out, e)
		}
		return true
	})
	return out
}

// GetByType returns every entry of the given type, in ascending sequence
// order.
func (j *Journal) GetByType(t OpType) []Entry {
	var out []Entry
	j.kv.Iterate(entryPrefix, func(_ string, value []byte) bool {
		var e Entry
		if err := msgpack.Unmarshal(value, &e); err == nil && e.Type == t {
			out = append(out, e)
		}
		return true
	})
	return out
}

// GetLatestSequence returns the highest sequence number recorded, or 0
// if the journal is empty. Reads the meta:latest-sequence marker kept
// current by Append/AppendBatch; falls back to a full seq: scan if that
// marker is missing or unparsable (a journal predating the marker, or
// one a caller wrote to directly), so correctness never depends on the
// marker being present.
func (j *Journal) GetLatestSequence() uint64 {
	if raw, ok := j.kv.Get(metaLatestSequenceKey); ok {
		if seq, err := strconv.ParseUint(string(raw), 10, 64); err == nil {
			return seq
		}
	}
	var max uint64
	j.kv.Iterate(entryPrefix, func(key string, _ []byte) bool {
		if seq := seqFromEntryKey(key); seq > max {
			max = seq
		}
		return true
	})
	return max
}

// HasEntries reports whether the journal contains any entries at all.
func (j *Journal) HasEntries() bool {
	found := false
	j.kv.Iterate(entryPrefix, func(string, []byte) bool { found = true; return false })
	return found
}

// Compact deletes every entry with sequence strictly less than
// beforeSeq. Used once the state-sync manager confirms every known peer
// has caught up past that point.
func (j *Journal) Compact(beforeSeq uint64) (int, error) {
	var toDelete []string
	j.kv.Iterate(entryPrefix, func(key string, _ []byte) bool {
		if seqFromEntryKey(key) < beforeSeq {
			toDelete = append(toDelete, key)
		}
		return true
	})
	for _, k := range toDelete {
		if err := j.kv.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(toDelete), nil
}

// Clear wipes every entry in the journal and resets sequence numbering
// to 0, per §4.I: the next Append starts again from 1.
func (j *Journal) Clear() error {
	var keys []string
	j.kv.Iterate(entryPrefix, func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	for _, k := range keys {
		if err := j.kv.Delete(k); err != nil {
			return err
		}
	}
	return j.kv.Delete(metaLatestSequenceKey)
}

// Close releases the underlying store.
func (j *Journal) Close() error { return j.kv.Close() }

// Checkpoint forces a durability checkpoint now.
func (j *Journal) Checkpoint() error { return j.kv.Checkpoint() }
