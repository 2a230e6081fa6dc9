// Package neuron holds the static data model for the knowledge graph:
// Neuron and Synapse, their typed fields and invariant-preserving mutator
// methods. Persistence lives in internal/neuronstore; traversal and
// learning rules live in internal/graph.
package neuron

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
)

// ID identifies a neuron. Generated with uuid.NewString, mirroring the
// teacher's NewNeuronID convention.
type ID string

// NewID mints a fresh neuron id.
func NewID() ID { return ID(uuid.NewString()) }

// SynapseType is a closed enumeration of edge kinds. INHIBITORY is the
// only type whose weight domain is negative; the rest are excitatory.
type SynapseType string

const (
	SynapseSemantic    SynapseType = "SEMANTIC"
	SynapseCausal      SynapseType = "CAUSAL"
	SynapseTemporal    SynapseType = "TEMPORAL"
	SynapseAssociative SynapseType = "ASSOCIATIVE"
	SynapseInhibitory  SynapseType = "INHIBITORY"
)

// IsExcitatory reports whether t's weight domain is [0,1] rather than
// INHIBITORY's [-1,0).
func (t SynapseType) IsExcitatory() bool { return t != SynapseInhibitory }

// SynapseID identifies a synapse.
type SynapseID string

// NewSynapseID mints a fresh synapse id.
func NewSynapseID() SynapseID { return SynapseID(uuid.NewString()) }

// Metadata carries the neuron's bookkeeping fields, kept as a sub-struct
// so Neuron's identity fields stay easy to scan at a glance.
type Metadata struct {
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastAccessed time.Time `json:"lastAccessed"`
	AccessCount  uint64    `json:"accessCount"`
	SourceType   string    `json:"sourceType,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Neuron is a content-addressed document node: one normalized embedding, a
// set of chunk hashes, the Merkle root over those chunks, and a synapse
// adjacency list keyed by id (never by pointer, so the graph stays
// arena-and-index and trivially serializable — see DESIGN.md's note on
// the cyclic-graph design decision).
type Neuron struct {
	mu sync.RWMutex

	ID         ID
	Embedding  []float32
	ChunkHashes []hashutil.Hash
	MerkleRoot hashutil.Hash

	OutgoingSynapses []SynapseID
	IncomingSynapses []SynapseID

	Metadata Metadata
}

func (n *Neuron) Lock()    { n.mu.Lock() }
func (n *Neuron) Unlock()  { n.mu.Unlock() }
func (n *Neuron) RLock()   { n.mu.RLock() }
func (n *Neuron) RUnlock() { n.mu.RUnlock() }

// New constructs a Neuron with a fresh id and populated timestamps.
func New(embedding []float32, chunkHashes []hashutil.Hash, root hashutil.Hash, now time.Time) *Neuron {
	return &Neuron{
		ID:          NewID(),
		Embedding:   embedding,
		ChunkHashes: chunkHashes,
		MerkleRoot:  root,
		Metadata: Metadata{
			CreatedAt:    now,
			UpdatedAt:    now,
			LastAccessed: now,
		},
	}
}

// Touch records an access, matching the teacher's Fire()-style access
// bookkeeping but without the organic energy/decay machinery: this model
// has no energy field to replenish.
func (n *Neuron) Touch(now time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Metadata.LastAccessed = now
	n.Metadata.AccessCount++
}

// Synapse is a typed, weighted directed edge between two neurons.
// Excitatory types hold Weight in [0,1]; INHIBITORY holds it in [-1,0).
type Synapse struct {
	mu sync.RWMutex

	ID       SynapseID
	SourceID ID
	TargetID ID
	Type     SynapseType
	Weight   float64

	CreatedAt       time.Time
	UpdatedAt       time.Time
	ActivationCount uint64
	LastActivated   time.Time
	Bidirectional   bool
}

func (s *Synapse) Lock()    { s.mu.Lock() }
func (s *Synapse) Unlock()  { s.mu.Unlock() }
func (s *Synapse) RLock()   { s.mu.RLock() }
func (s *Synapse) RUnlock() { s.mu.RUnlock() }

// NewSynapse constructs a synapse, clamping weight into its type's domain.
func NewSynapse(source, target ID, typ SynapseType, weight float64, bidirectional bool, now time.Time) *Synapse {
	return &Synapse{
		ID:            NewSynapseID(),
		SourceID:      source,
		TargetID:      target,
		Type:          typ,
		Weight:        clampForType(typ, weight),
		CreatedAt:     now,
		UpdatedAt:     now,
		Bidirectional: bidirectional,
	}
}

func clampForType(typ SynapseType, w float64) float64 {
	if typ.IsExcitatory() {
		if w < 0 {
			return 0
		}
		if w > 1 {
			return 1
		}
		return w
	}
	if w > -1e-9 {
		return -1e-9
	}
	if w < -1 {
		return -1
	}
	return w
}

// Activate records a co-activation/traversal hit.
func (s *Synapse) Activate(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ActivationCount++
	s.LastActivated = now
}
