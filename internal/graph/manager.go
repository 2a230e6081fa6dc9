// Package graph is the neuron graph manager (component F): neuron
// creation and auto-connection, traversal, shortest path, Hebbian and
// inhibitory learning rules, pruning, pattern completion and episodic
// encoding. It is the orchestration layer over internal/neuronstore (E)
// and internal/hnsw (D). Manager serializes its mutating calls behind a
// single mutex; no per-neuron locks are taken, so there is no lock
// ordering between neurons to get wrong.
package graph

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/hnsw"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuron"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuronstore"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

// Config tunes the manager's default thresholds. Every public method that
// would otherwise hard-code a spec constant takes it as an argument
// instead; Config only supplies defaults for callers (e.g. the CLI) that
// do not care to override them.
type Config struct {
	SemanticThreshold float64 // 4.F autoConnect default threshold
	AutoConnectK      int     // neighbors considered by autoConnect; spec default 20
	AutoConnect       bool
}

// DefaultConfig matches the defaults named in 4.F.
func DefaultConfig() Config {
	return Config{SemanticThreshold: 0.7, AutoConnectK: 20, AutoConnect: true}
}

// Manager is the single-writer neuron graph manager. Mutating methods
// take Manager's own mutex before touching the index or issuing more than
// one store call, so a single public call's sub-operations always appear
// atomic to other callers (per the ordering guarantees in the
// concurrency section).
type Manager struct {
	mu sync.Mutex

	store *neuronstore.Store
	index *hnsw.Index
	cfg   Config
	now   func() time.Time
}

// New constructs a Manager over an already-open neuron store and HNSW
// index.
func New(store *neuronstore.Store, index *hnsw.Index, cfg Config) *Manager {
	return &Manager{store: store, index: index, cfg: cfg, now: time.Now}
}

// CreateInput describes a neuron to create.
type CreateInput struct {
	Embedding   []float32
	ChunkHashes []hashutil.Hash
	MerkleRoot  hashutil.Hash
	SourceType  string
	Tags        []string
	Extra       map[string]any
}

// CreateNeuron persists a neuron, inserts it into the HNSW index, and
// (unless disabled) auto-connects it to its nearest semantic neighbors.
// Sub-operations run in this declared order so an external observer never
// sees a neuron in the index before its persisted record exists.
func (m *Manager) CreateNeuron(in CreateInput) (*neuron.Neuron, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := neuron.New(in.Embedding, in.ChunkHashes, in.MerkleRoot, now)
	n.Metadata.SourceType = in.SourceType
	n.Metadata.Tags = in.Tags
	n.Metadata.Extra = in.Extra

	if err := m.store.PutNeuron(n); err != nil {
		return nil, err
	}
	if err := m.index.Insert(string(n.ID), n.Embedding); err != nil {
		return nil, err
	}

	if m.cfg.AutoConnect {
		if err := m.autoConnectLocked(n.ID, n.Embedding, m.cfg.SemanticThreshold); err != nil {
			return nil, err
		}
	}

	return m.store.GetNeuron(n.ID)
}

// FindDuplicate returns the neuron already registered under root, if one
// exists. Ingesting identical content with a deterministic embedding is
// expected to hit this on the second call (8. Round-trip laws).
func (m *Manager) FindDuplicate(root hashutil.Hash) (*neuron.Neuron, bool) {
	id, ok := m.store.FindByMerkleRoot(root)
	if !ok {
		return nil, false
	}
	n, err := m.store.GetNeuron(id)
	if err != nil {
		return nil, false
	}
	return n, true
}

// AutoConnect fetches the k nearest neighbors of id's embedding and forms
// a bidirectional SEMANTIC synapse to each with similarity >= threshold
// that doesn't already have an outgoing synapse from id.
func (m *Manager) AutoConnect(id neuron.ID, threshold float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.store.GetNeuron(id)
	if err != nil {
		return err
	}
	return m.autoConnectLocked(id, n.Embedding, threshold)
}

func (m *Manager) autoConnectLocked(id neuron.ID, embedding []float32, threshold float64) error {
	k := m.cfg.AutoConnectK
	if k <= 0 {
		k = 20
	}
	results := m.index.Search(embedding, k+1, 0)

	existing := make(map[neuron.ID]bool)
	for _, synID := range m.store.OutgoingSynapseIDs(id) {
		syn, err := m.store.GetSynapse(synID)
		if err == nil {
			existing[syn.TargetID] = true
		}
	}

	for _, res := range results {
		targetID := neuron.ID(res.ID)
		if targetID == id || res.Similarity < threshold || existing[targetID] {
			continue
		}
		if err := m.connectLocked(id, targetID, neuron.SynapseSemantic, res.Similarity, true); err != nil {
			return err
		}
		existing[targetID] = true
	}
	return nil
}

// connectLocked creates a synapse from->to of the given type/weight,
// persisting it once. Bidirectional synapses are stored once with the
// flag set, per the data model: the reverse direction is implied, not a
// second record.
func (m *Manager) connectLocked(from, to neuron.ID, typ neuron.SynapseType, weight float64, bidirectional bool) error {
	now := m.now()
	syn := neuron.NewSynapse(from, to, typ, weight, bidirectional, now)
	return m.store.PutSynapse(syn)
}

// ListNeuronIDs returns every neuron id currently in the store.
func (m *Manager) ListNeuronIDs() []neuron.ID {
	return m.store.AllNeuronIDs()
}

// Connect manually forms a synapse between two existing neurons, for
// callers (e.g. the CLI's connect command) that want to assert a typed
// edge directly rather than relying on autoConnect's similarity search.
// Returns ErrNotFound if either neuron is absent.
func (m *Manager) Connect(from, to neuron.ID, typ neuron.SynapseType, weight float64, bidirectional bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.store.GetNeuron(from); err != nil {
		return err
	}
	if _, err := m.store.GetNeuron(to); err != nil {
		return err
	}
	return m.connectLocked(from, to, typ, weight, bidirectional)
}

// GetNeuron fires an access-bookkeeping touch and returns the neuron, or
// (nil,false) if absent — a NotFound at a read boundary is a null result,
// not a surfaced error, per 4.F's failure semantics.
func (m *Manager) GetNeuron(id neuron.ID) (*neuron.Neuron, bool) {
	n, err := m.store.GetNeuron(id)
	if err != nil {
		return nil, false
	}
	n.Touch(m.now())
	_ = m.store.PutNeuron(n)
	return n, true
}

// UpdateNeuronEmbedding persists a new embedding for id, re-indexes it in
// HNSW (force-delete then re-insert, since HNSW has no in-place vector
// update), and retries the re-insert once if it collides with a
// concurrently-created id of the same value — the one documented
// duplicate-id race the spec calls out.
func (m *Manager) UpdateNeuronEmbedding(id neuron.ID, v []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.store.GetNeuron(id)
	if err != nil {
		return err
	}
	n.Embedding = v
	n.Metadata.UpdatedAt = m.now()
	if err := m.store.PutNeuron(n); err != nil {
		return err
	}

	if m.index.Exists(string(id)) {
		if err := m.index.ForceDelete(string(id)); err != nil {
			return err
		}
	}
	if err := m.index.Insert(string(id), v); err != nil {
		if err2 := m.index.ForceDelete(string(id)); err2 == nil {
			err = m.index.Insert(string(id), v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteNeuron removes n's synapses (both directions), drops it from the
// HNSW index, and deletes its store record, in that order so a crash
// mid-delete never leaves a dangling index entry pointing at a gone
// record.
func (m *Manager) DeleteNeuron(id neuron.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.store.GetNeuron(id)
	if err != nil {
		if errors.Is(err, nmterr.ErrNotFound) {
			return nil
		}
		return err
	}

	for _, synID := range append(append([]neuron.SynapseID{}, n.OutgoingSynapses...), n.IncomingSynapses...) {
		_ = m.store.DeleteSynapse(synID)
	}

	if m.index.Exists(string(id)) {
		_ = m.index.ForceDelete(string(id))
	}

	return m.store.DeleteNeuron(id)
}

// sortedNeuronIDs returns a and b in ascending id order, regardless of
// argument order.
func sortedNeuronIDs(a, b neuron.ID) (neuron.ID, neuron.ID) {
	ids := []neuron.ID{a, b}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[0], ids[1]
}
