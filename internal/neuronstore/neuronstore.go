// Package neuronstore persists neurons and synapses keyed by id, plus the
// secondary indexes the graph manager needs: merkle-root lookup and
// outgoing/incoming synapse enumeration per neuron.
package neuronstore

import (
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/kvstore"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuron"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

// neuronRecord is the wire shape for a persisted Neuron: plain data, no
// mutex, msgpack-tagged.
type neuronRecord struct {
	ID               neuron.ID       `msgpack:"id"`
	Embedding        []float32       `msgpack:"embedding"`
	ChunkHashes      []hashutil.Hash `msgpack:"chunkHashes"`
	MerkleRoot       hashutil.Hash   `msgpack:"merkleRoot"`
	OutgoingSynapses []neuron.SynapseID `msgpack:"outgoingSynapses"`
	IncomingSynapses []neuron.SynapseID `msgpack:"incomingSynapses"`
	Metadata         neuron.Metadata `msgpack:"metadata"`
}

func toRecord(n *neuron.Neuron) neuronRecord {
	n.RLock()
	defer n.RUnlock()
	return neuronRecord{
		ID:               n.ID,
		Embedding:        n.Embedding,
		ChunkHashes:      n.ChunkHashes,
		MerkleRoot:       n.MerkleRoot,
		OutgoingSynapses: n.OutgoingSynapses,
		IncomingSynapses: n.IncomingSynapses,
		Metadata:         n.Metadata,
	}
}

func (r neuronRecord) toNeuron() *neuron.Neuron {
	return &neuron.Neuron{
		ID:               r.ID,
		Embedding:        r.Embedding,
		ChunkHashes:      r.ChunkHashes,
		MerkleRoot:       r.MerkleRoot,
		OutgoingSynapses: r.OutgoingSynapses,
		IncomingSynapses: r.IncomingSynapses,
		Metadata:         r.Metadata,
	}
}

type synapseRecord struct {
	ID              neuron.SynapseID  `msgpack:"id"`
	SourceID        neuron.ID         `msgpack:"sourceId"`
	TargetID        neuron.ID         `msgpack:"targetId"`
	Type            neuron.SynapseType `msgpack:"type"`
	Weight          float64           `msgpack:"weight"`
	CreatedAt       time.Time         `msgpack:"createdAt"`
	UpdatedAt       time.Time         `msgpack:"updatedAt"`
	ActivationCount uint64            `msgpack:"activationCount"`
	LastActivated   time.Time         `msgpack:"lastActivated"`
	Bidirectional   bool              `msgpack:"bidirectional"`
}

func toSynapseRecord(s *neuron.Synapse) synapseRecord {
	s.RLock()
	defer s.RUnlock()
	return synapseRecord{
		ID: s.ID, SourceID: s.SourceID, TargetID: s.TargetID, Type: s.Type, Weight: s.Weight,
		CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt, ActivationCount: s.ActivationCount,
		LastActivated: s.LastActivated, Bidirectional: s.Bidirectional,
	}
}

func (r synapseRecord) toSynapse() *neuron.Synapse {
	return &neuron.Synapse{
		ID: r.ID, SourceID: r.SourceID, TargetID: r.TargetID, Type: r.Type, Weight: r.Weight,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, ActivationCount: r.ActivationCount,
		LastActivated: r.LastActivated, Bidirectional: r.Bidirectional,
	}
}

// Store is the neuron/synapse key-value store, rooted at <dataDir>/neurons.
type Store struct {
	kv *kvstore.Store
}

// Open opens or creates the neuron store at dir.
func Open(dir string) (*Store, error) {
	kv, err := kvstore.Open(dir, kvstore.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &Store{kv: kv}, nil
}

func neuronKey(id neuron.ID) string        { return "neuron:" + string(id) }
func synapseKey(id neuron.SynapseID) string { return "synapse:" + string(id) }
func merkleKey(root hashutil.Hash) string  { return "merkle:" + root.Hex() }
func outKey(src neuron.ID, syn neuron.SynapseID) string {
	return "out:" + string(src) + ":" + string(syn)
}
func inKey(tgt neuron.ID, syn neuron.SynapseID) string {
	return "in:" + string(tgt) + ":" + string(syn)
}

// PutNeuron persists n and its merkle-root secondary index entry.
func (s *Store) PutNeuron(n *neuron.Neuron) error {
	rec := toRecord(n)
	encoded, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	batch := map[string][]byte{
		neuronKey(n.ID):       encoded,
		merkleKey(n.MerkleRoot): []byte(n.ID),
	}
	return s.kv.PutBatch(batch)
}

// GetNeuron fetches a neuron by id.
func (s *Store) GetNeuron(id neuron.ID) (*neuron.Neuron, error) {
	raw, ok := s.kv.Get(neuronKey(id))
	if !ok {
		return nil, nmterr.Wrap(nmterr.ErrNotFound, "neuronstore: neuron %s not found", id)
	}
	var rec neuronRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, nmterr.Wrap(nmterr.ErrIntegrityViolation, "neuronstore: decode neuron %s: %v", id, err)
	}
	n := rec.toNeuron()
	// Outgoing/incoming synapse lists are derived from the out:/in:
	// secondary index at read time rather than trusted from the stored
	// record, so they can never drift from the synapses actually on disk.
	n.OutgoingSynapses = s.OutgoingSynapseIDs(id)
	n.IncomingSynapses = s.IncomingSynapseIDs(id)
	return n, nil
}

// AllNeuronIDs lists every neuron id in the store, in key order.
func (s *Store) AllNeuronIDs() []neuron.ID {
	prefix := "neuron:"
	var ids []neuron.ID
	s.kv.Iterate(prefix, func(key string, _ []byte) bool {
		ids = append(ids, neuron.ID(key[len(prefix):]))
		return true
	})
	return ids
}

// FindByMerkleRoot returns the neuron id registered under root, if any.
func (s *Store) FindByMerkleRoot(root hashutil.Hash) (neuron.ID, bool) {
	raw, ok := s.kv.Get(merkleKey(root))
	if !ok {
		return "", false
	}
	return neuron.ID(raw), true
}

// DeleteNeuron removes a neuron record and its merkle index entry. Caller
// is responsible for detaching synapses first (the graph manager owns
// that ordering).
func (s *Store) DeleteNeuron(id neuron.ID) error {
	n, err := s.GetNeuron(id)
	if err != nil {
		if errors.Is(err, nmterr.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.kv.Delete(merkleKey(n.MerkleRoot)); err != nil {
		return err
	}
	return s.kv.Delete(neuronKey(id))
}

// PutSynapse persists s and its outgoing/incoming index entries.
func (s *Store) PutSynapse(syn *neuron.Synapse) error {
	rec := toSynapseRecord(syn)
	encoded, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	batch := map[string][]byte{
		synapseKey(syn.ID):               encoded,
		outKey(syn.SourceID, syn.ID):     []byte{1},
		inKey(syn.TargetID, syn.ID):      []byte{1},
	}
	return s.kv.PutBatch(batch)
}

// GetSynapse fetches a synapse by id.
func (s *Store) GetSynapse(id neuron.SynapseID) (*neuron.Synapse, error) {
	raw, ok := s.kv.Get(synapseKey(id))
	if !ok {
		return nil, nmterr.Wrap(nmterr.ErrNotFound, "neuronstore: synapse %s not found", id)
	}
	var rec synapseRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, nmterr.Wrap(nmterr.ErrIntegrityViolation, "neuronstore: decode synapse %s: %v", id, err)
	}
	return rec.toSynapse(), nil
}

// DeleteSynapse removes a synapse record and its index entries.
func (s *Store) DeleteSynapse(id neuron.SynapseID) error {
	syn, err := s.GetSynapse(id)
	if err != nil {
		return err
	}
	_ = s.kv.Delete(outKey(syn.SourceID, id))
	_ = s.kv.Delete(inKey(syn.TargetID, id))
	return s.kv.Delete(synapseKey(id))
}

// AllSynapseIDs lists every synapse id in the store, in key order.
func (s *Store) AllSynapseIDs() []neuron.SynapseID {
	var ids []neuron.SynapseID
	s.kv.Iterate("synapse:", func(key string, _ []byte) bool {
		ids = append(ids, neuron.SynapseID(key[len("synapse:"):]))
		return true
	})
	return ids
}

// OutgoingSynapseIDs lists every synapse id whose source is src.
func (s *Store) OutgoingSynapseIDs(src neuron.ID) []neuron.SynapseID {
	prefix := "out:" + string(src) + ":"
	var ids []neuron.SynapseID
	s.kv.Iterate(prefix, func(key string, _ []byte) bool {
		ids = append(ids, neuron.SynapseID(key[len(prefix):]))
		return true
	})
	return ids
}

// IncomingSynapseIDs lists every synapse id whose target is tgt.
func (s *Store) IncomingSynapseIDs(tgt neuron.ID) []neuron.SynapseID {
	prefix := "in:" + string(tgt) + ":"
	var ids []neuron.SynapseID
	s.kv.Iterate(prefix, func(key string, _ []byte) bool {
		ids = append(ids, neuron.SynapseID(key[len(prefix):]))
		return true
	})
	return ids
}

// Close releases the underlying store.
func (s *Store) Close() error { return s.kv.Close() }

// Checkpoint forces a durability checkpoint now.
func (s *Store) Checkpoint() error { return s.kv.Checkpoint() }
