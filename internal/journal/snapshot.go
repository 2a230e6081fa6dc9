package journal

import (
	"time"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/codec"
)

// PortableEntry is the portable-JSON-snapshot shape of an Entry (§6):
// plain JSON for scalar fields, with Timestamp wrapped per the
// {__date:true,data} convention so an external reader doesn't need this
// engine's Go types to parse a journal range dump.
type PortableEntry struct {
	Sequence   uint64         `json:"sequence"`
	Type       string         `json:"type"`
	EntityID   string         `json:"entityId"`
	EntityKind string         `json:"entityKind"`
	Timestamp  codec.Time     `json:"timestamp"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func toPortable(e Entry) PortableEntry {
	return PortableEntry{
		Sequence:   e.Sequence,
		Type:       string(e.Type),
		EntityID:   e.EntityID,
		EntityKind: e.EntityKind,
		Timestamp:  codec.Time(e.Timestamp),
		Payload:    e.Payload,
	}
}

func fromPortable(p PortableEntry) Entry {
	return Entry{
		Sequence:   p.Sequence,
		Type:       OpType(p.Type),
		EntityID:   p.EntityID,
		EntityKind: p.EntityKind,
		Timestamp:  time.Time(p.Timestamp.Std()),
		Payload:    p.Payload,
	}
}

// RangeSnapshot is the portable JSON document for a journal range export.
type RangeSnapshot struct {
	From    uint64          `json:"from"`
	To      uint64          `json:"to"`
	Entries []PortableEntry `json:"entries"`
}

// ExportRange encodes every entry in [from,to] as a portable JSON
// snapshot, suitable for writing to journal/range-<from>-<to>.json.
func (j *Journal) ExportRange(from, to uint64) ([]byte, error) {
	entries := j.GetRange(from, to)
	portable := make([]PortableEntry, len(entries))
	for i, e := range entries {
		portable[i] = toPortable(e)
	}
	return codec.Marshal(RangeSnapshot{From: from, To: to, Entries: portable})
}

// ImportRange decodes a portable JSON range snapshot and returns its
// entries with their original sequence numbers. It does not append them
// to any journal.
func ImportRange(data []byte) ([]Entry, error) {
	var snap RangeSnapshot
	if err := codec.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	out := make([]Entry, len(snap.Entries))
	for i, p := range snap.Entries {
		out[i] = fromPortable(p)
	}
	return out, nil
}
