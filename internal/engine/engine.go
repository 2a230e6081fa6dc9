// Package engine wires every subsystem (chunk store, neuron store, HNSW
// index, graph manager, journal, state-sync manager, compaction
// scheduler, event bus, ingest and query pipelines) into one long-lived
// handle, the way the teacher's cmd/qubicdb/main.go's run() wires
// persistence, registry, worker pool and API server together. Unlike the
// teacher, which keeps that wiring inline in main(), this engine exposes
// it as a reusable *Engine so both cmd/nmt and tests can construct one
// without duplicating the startup sequence.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/chunkstore"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/compaction"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/config"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/events"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/graph"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/hnsw"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/ingest"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/journal"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/merkle"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuron"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuronstore"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/query"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/statesync"
)

// Engine is the top-level handle over one data directory. All
// cross-subsystem orchestration (journaling a mutation, publishing the
// matching event, feeding the compaction scheduler) happens here rather
// than inside any one subsystem, so each subsystem package stays usable
// on its own.
type Engine struct {
	cfg *config.Config
	log zerolog.Logger

	chunks   *chunkstore.Store
	neurons  *neuronstore.Store
	index    *hnsw.Index
	graphMgr *graph.Manager
	journal  *journal.Journal
	sync     *statesync.Manager
	sched    *compaction.Scheduler
	bus      *events.Bus

	ingestPipe *ingest.Pipeline
	queryPipe  *query.Pipeline

	replicaID string
	now       func() time.Time
}

// Open constructs every subsystem rooted under cfg.Storage.DataPath and
// returns a ready-to-use Engine. Directory layout mirrors §6:
// <dataPath>/chunks, <dataPath>/neurons, <dataPath>/journal, each its own
// kvstore.Store instance so one subsystem's WAL never contends with
// another's.
func Open(cfg *config.Config, replicaID string, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create data path: %w", err)
	}

	chunks, err := chunkstore.Open(filepath.Join(cfg.Storage.DataPath, "chunks"))
	if err != nil {
		return nil, fmt.Errorf("engine: open chunk store: %w", err)
	}
	neurons, err := neuronstore.Open(filepath.Join(cfg.Storage.DataPath, "neurons"))
	if err != nil {
		return nil, fmt.Errorf("engine: open neuron store: %w", err)
	}
	jrnl, err := journal.Open(filepath.Join(cfg.Storage.DataPath, "journal"))
	if err != nil {
		return nil, fmt.Errorf("engine: open journal: %w", err)
	}

	index := hnsw.New(hnsw.Params{
		M:              cfg.HNSW.M,
		EfConstruction: cfg.HNSW.EfConstruction,
		EfSearch:       cfg.HNSW.EfSearch,
	}, rand.New(rand.NewSource(time.Now().UnixNano())))

	graphMgr := graph.New(neurons, index, graph.Config{
		SemanticThreshold: cfg.Graph.SemanticThreshold,
		AutoConnectK:      cfg.Graph.AutoConnectK,
		AutoConnect:       cfg.Graph.AutoConnect,
	})

	bus := events.New(log)
	embedder := ingest.NewHashEmbedder()

	ingestPipe := ingest.New(chunks, graphMgr, embedder, bus, log, ingest.Config{
		Chunking:    ingest.ChunkOptions{MaxWords: cfg.Chunking.Size, Overlap: cfg.Chunking.Overlap},
		BatchSize:   500,
		SourceType:  "text",
		AutoConnect: cfg.Graph.AutoConnect,
	})
	queryPipe := query.New(index, graphMgr, chunks, embedder, query.DefaultConfig())

	sched := compaction.New(index, chunks, cfg.Compaction.Interval, log)
	syncMgr := statesync.New(replicaID, jrnl, statesync.StrategyLastWriteWins)

	e := &Engine{
		cfg:        cfg,
		log:        log,
		chunks:     chunks,
		neurons:    neurons,
		index:      index,
		graphMgr:   graphMgr,
		journal:    jrnl,
		sync:       syncMgr,
		sched:      sched,
		bus:        bus,
		ingestPipe: ingestPipe,
		queryPipe:  queryPipe,
		replicaID:  replicaID,
		now:        time.Now,
	}
	return e, nil
}

// Start launches the background compaction scheduler. Call once after
// Open; safe to skip for short-lived CLI invocations that open, do one
// operation, and Close.
func (e *Engine) Start() { e.sched.Start() }

// Close stops background work and releases every underlying store.
// Errors are joined so a caller sees every failure, not just the first.
func (e *Engine) Close() error {
	e.sched.Stop()
	e.bus.Close()
	var errs []error
	if err := e.journal.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.neurons.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.chunks.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("engine: close: %v", errs)
	}
	return nil
}

// Checkpoint forces a durability checkpoint across every store.
func (e *Engine) Checkpoint() error {
	if err := e.chunks.Checkpoint(); err != nil {
		return err
	}
	if err := e.neurons.Checkpoint(); err != nil {
		return err
	}
	return e.journal.Checkpoint()
}

// Ingest runs one document through the ingest pipeline and records a
// neuron:created journal entry for newly created (non-duplicate)
// neurons. Returns the neuron and whether it was a pre-existing
// duplicate.
func (e *Engine) Ingest(ctx context.Context, text string, tags []string) (*neuron.Neuron, bool, error) {
	n, dup, err := e.ingestPipe.IngestText(ctx, text, tags)
	if err != nil {
		return nil, false, err
	}
	if !dup {
		if _, jerr := e.sync.RecordChange(journal.Entry{
			Type:       journal.OpNeuronCreated,
			EntityID:   string(n.ID),
			EntityKind: "neuron",
			Timestamp:  e.now(),
			Payload:    map[string]any{"chunkCount": len(n.ChunkHashes)},
		}); jerr != nil {
			e.log.Warn().Err(jerr).Str("neuronId", string(n.ID)).Msg("failed to journal neuron creation")
		}
	}
	return n, dup, nil
}

// IngestBatch runs a batch of documents through the ingest pipeline,
// reporting throttled progress over the event bus.
func (e *Engine) IngestBatch(ctx context.Context, docs []string, tags []string) (*ingest.Result, error) {
	tracker := events.NewProgressTracker(e.bus, "batch", len(docs), 250*time.Millisecond)
	return e.ingestPipe.IngestDocuments(ctx, docs, tags, tracker)
}

// Search runs a query through the search pipeline.
func (e *Engine) Search(ctx context.Context, text string, topK int) ([]query.Result, error) {
	return e.queryPipe.Search(ctx, text, topK)
}

// ListNeurons returns every neuron id currently in the store.
func (e *Engine) ListNeurons() []neuron.ID {
	return e.graphMgr.ListNeuronIDs()
}

// GetNeuron fetches a neuron by id and records an access.
func (e *Engine) GetNeuron(id neuron.ID) (*neuron.Neuron, error) {
	n, ok := e.graphMgr.GetNeuron(id)
	if !ok {
		return nil, nmterr.Wrap(nmterr.ErrNotFound, "engine: neuron %s not found", id)
	}
	n.Touch(e.now())
	return n, nil
}

// DeleteNeuron removes a neuron and journals the deletion.
func (e *Engine) DeleteNeuron(id neuron.ID) error {
	if err := e.graphMgr.DeleteNeuron(id); err != nil {
		return err
	}
	_, err := e.sync.RecordChange(journal.Entry{
		Type:       journal.OpNeuronDeleted,
		EntityID:   string(id),
		EntityKind: "neuron",
		Timestamp:  e.now(),
	})
	return err
}

// Connect manually forms a synapse between two existing neurons and
// journals the formation.
func (e *Engine) Connect(from, to neuron.ID, typ neuron.SynapseType, weight float64, bidirectional bool) error {
	if err := e.graphMgr.Connect(from, to, typ, weight, bidirectional); err != nil {
		return err
	}
	_, err := e.sync.RecordChange(journal.Entry{
		Type:       journal.OpSynapseFormed,
		EntityID:   string(from),
		EntityKind: "synapse",
		Timestamp:  e.now(),
		Payload:    map[string]any{"target": string(to), "type": string(typ), "weight": weight},
	})
	return err
}

// Traverse runs a graph traversal starting at id.
func (e *Engine) Traverse(start neuron.ID, opts graph.TraverseOptions) ([]graph.Visited, error) {
	return e.graphMgr.Traverse(start, opts)
}

// FindPath finds the shortest synapse path between two neurons.
func (e *Engine) FindPath(source, target neuron.ID, maxDepth int) ([]neuron.SynapseID, error) {
	return e.graphMgr.FindPath(source, target, maxDepth)
}

// PatternComplete converges a partial/noisy query embedding toward its
// nearest neighborhood's centroid.
func (e *Engine) PatternComplete(query []float32, k int) ([]float32, []neuron.ID, error) {
	return e.graphMgr.PatternComplete(query, k)
}

// EncodeEpisode links a temporally ordered sequence of neurons with
// TEMPORAL synapses.
func (e *Engine) EncodeEpisode(ids []neuron.ID) error {
	return e.graphMgr.EncodeEpisode(ids)
}

// PruneSynapses removes weak, rarely-activated synapses and returns how
// many it removed. The removals are not recorded in the change journal.
func (e *Engine) PruneSynapses(opts graph.PruneOptions) (int, error) {
	return e.graphMgr.PruneSynapses(opts)
}

// VerifyMerkleRoot recomputes the Merkle root over a neuron's chunk
// hashes and compares it against the persisted root, detecting silent
// corruption or tampering of either the chunk store or the neuron
// record.
func (e *Engine) VerifyMerkleRoot(id neuron.ID) (bool, error) {
	n, err := e.GetNeuron(id)
	if err != nil {
		return false, err
	}
	tree, err := merkle.BuildTree(n.ChunkHashes)
	if err != nil {
		return false, err
	}
	return tree.Root == n.MerkleRoot, nil
}

// Compact runs one compaction tick now rather than waiting for the
// scheduler's interval.
func (e *Engine) Compact() compaction.Result {
	return e.sched.Tick()
}

// Stats summarizes the engine's current size.
type Stats struct {
	Neurons    int
	Chunks     int
	Tombstones int
	Sequence   uint64
}

// Stats reports current engine-wide counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Neurons:    e.index.Len(),
		Chunks:     e.chunks.Len(),
		Tombstones: e.index.TombstoneCount(),
		Sequence:   e.journal.GetLatestSequence(),
	}
}

// Bus exposes the event bus so callers (e.g. a CLI `watch` subcommand)
// can subscribe to domain events.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Sync exposes the state-sync manager for replication tooling.
func (e *Engine) Sync() *statesync.Manager { return e.sync }
