// Package ingest is the text-to-neuron pipeline (component G): clean,
// chunk, embed, content-address the chunks into a Merkle-bound neuron,
// and register it with the graph manager. IngestDocuments handles one
// document at a time from the slice it is given; it does not split the
// work into BatchSize-sized batches. It caps the number of per-row errors
// it accumulates so one pathological batch can't grow an unbounded error
// slice.
package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/chunkstore"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/events"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/graph"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/merkle"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuron"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/sentiment"
)

// maxErrorsRecorded bounds how many per-document failures Ingest keeps
// in Result.Errors before it starts only counting them.
const maxErrorsRecorded = 1000

// defaultBatchSize is DefaultConfig's Config.BatchSize. The pipeline does
// not read BatchSize; progress events are throttled by the tracker's time
// interval instead.
const defaultBatchSize = 500

// Config tunes a Pipeline.
type Config struct {
	Chunking     ChunkOptions
	BatchSize    int
	SourceType   string
	AutoConnect  bool
}

// DefaultConfig matches §6's config.json chunking defaults.
func DefaultConfig() Config {
	return Config{Chunking: DefaultChunkOptions(), BatchSize: defaultBatchSize, SourceType: "text", AutoConnect: true}
}

// Pipeline wires the chunk store, embedder, and graph manager into the
// text -> neuron ingest path.
type Pipeline struct {
	chunks   *chunkstore.Store
	graphMgr *graph.Manager
	embedder Embedder
	bus      *events.Bus
	log      zerolog.Logger
	cfg      Config
	now      func() time.Time
}

// New constructs a Pipeline.
func New(chunks *chunkstore.Store, graphMgr *graph.Manager, embedder Embedder, bus *events.Bus, log zerolog.Logger, cfg Config) *Pipeline {
	return &Pipeline{chunks: chunks, graphMgr: graphMgr, embedder: embedder, bus: bus, log: log, cfg: cfg, now: time.Now}
}

// DocError records one document that failed to ingest without aborting
// the rest of the batch.
type DocError struct {
	Index int
	Err   error
}

// Result summarizes an IngestText/IngestDocuments call.
type Result struct {
	NeuronsCreated    int
	NeuronsDeduped    int
	ChunksWritten     int
	Errors            []DocError
	ErrorsTruncated   bool
}

func (r *Result) recordError(index int, err error) {
	if len(r.Errors) < maxErrorsRecorded {
		r.Errors = append(r.Errors, DocError{Index: index, Err: err})
	} else {
		r.ErrorsTruncated = true
	}
}

// IngestText runs one document through clean -> chunk -> embed ->
// content-address -> create-neuron, publishing a neuron:created event on
// success. A document whose Merkle root already exists as a neuron is
// treated as a duplicate (round-trip dedup law) and not recreated.
func (p *Pipeline) IngestText(ctx context.Context, text string, tags []string) (*neuron.Neuron, bool, error) {
	cleaned := CleanText(text)
	pieces := Chunk(cleaned, p.cfg.Chunking)
	if len(pieces) == 0 {
		return nil, false, nmterr.Wrap(nmterr.ErrEmptyInput, "ingest: document has no content after cleaning")
	}

	now := p.now()
	leafHashes := make([]hashutil.Hash, 0, len(pieces))
	for _, piece := range pieces {
		h, err := p.chunks.Put([]byte(piece), now)
		if err != nil {
			return nil, false, err
		}
		leafHashes = append(leafHashes, h)
	}

	tree, err := merkle.BuildTree(leafHashes)
	if err != nil {
		return nil, false, err
	}

	if dup, ok := p.graphMgr.FindDuplicate(tree.Root); ok {
		return dup, true, nil
	}

	for _, h := range leafHashes {
		if err := p.chunks.Retain(h); err != nil {
			return nil, false, err
		}
	}

	embedding, err := p.embedder.EmbedText(cleaned)
	if err != nil {
		return nil, false, err
	}

	mood := sentiment.Default().Analyze(cleaned)

	n, err := p.graphMgr.CreateNeuron(graph.CreateInput{
		Embedding:   embedding,
		ChunkHashes: leafHashes,
		MerkleRoot:  tree.Root,
		SourceType:  p.cfg.SourceType,
		Tags:        tags,
		Extra:       map[string]any{"sentiment": mood},
	})
	if err != nil {
		return nil, false, err
	}

	if p.bus != nil {
		p.bus.Publish(ctx, events.Event{
			Type:      events.TypeNeuronCreated,
			EntityID:  string(n.ID),
			Payload:   map[string]any{"chunkCount": len(leafHashes)},
			Timestamp: now,
		})
	}
	return n, false, nil
}

// IngestDocuments runs IngestText over a batch of documents, publishing
// throttled learning:progress events via tracker (nil disables
// progress). Per-document failures are recorded in Result.Errors rather
// than aborting the batch.
func (p *Pipeline) IngestDocuments(ctx context.Context, docs []string, tags []string, tracker *events.ProgressTracker) (*Result, error) {
	res := &Result{}
	for i, doc := range docs {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		n, dup, err := p.IngestText(ctx, doc, tags)
		if err != nil {
			res.recordError(i, err)
			if tracker != nil {
				tracker.Report(ctx, 1)
			}
			continue
		}
		if dup {
			res.NeuronsDeduped++
		} else {
			res.NeuronsCreated++
			res.ChunksWritten += len(n.ChunkHashes)
		}
		if tracker != nil {
			tracker.Report(ctx, 1)
		}
	}
	if tracker != nil {
		tracker.Finish(ctx)
	}
	return res, nil
}
