// Package query is the search pipeline (component H): embed the query,
// run ANN search over the HNSW index, rerank with graph-derived and
// sentiment-valence boosts, and reconstruct each result's content from
// the chunk store. Grounded on the teacher's pkg/engine.Searcher — same
// embed-then-score shape, trimmed of the organic energy/decay modifiers
// that searcher applies since this engine's neurons carry no energy or
// decay state, but keeping its sentiment-alignment boost.
package query

import (
	"context"
	"sort"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/chunkstore"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/graph"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/hnsw"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/ingest"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuron"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/sentiment"
)

// Config tunes the pipeline's scoring.
type Config struct {
	// AccessBoostWeight scales a small bonus for frequently-accessed
	// neurons (log-scaled access count), rewarding content the graph
	// already knows is useful without letting it dominate similarity.
	AccessBoostWeight float64
	// SynapseBoostWeight scales a bonus proportional to a result's
	// outgoing-synapse count, surfacing well-connected "hub" neurons
	// slightly above otherwise-equal isolated ones.
	SynapseBoostWeight float64
	// SentimentBoost applies sentiment.Boost between the query's and
	// each candidate's emotional valence as a multiplicative factor.
	SentimentBoost bool
}

// DefaultConfig matches the teacher's modest (not dominant) boost
// weights, adapted down from vector/keyword-blend alpha to access/graph
// blend weights since this engine has no keyword index of its own.
func DefaultConfig() Config {
	return Config{AccessBoostWeight: 0.05, SynapseBoostWeight: 0.02, SentimentBoost: true}
}

// Result is one ranked, reconstructed search hit.
type Result struct {
	Neuron     *neuron.Neuron
	Similarity float64
	Score      float64
	Content    string
}

// Pipeline wires the HNSW index, graph manager, chunk store and embedder
// into the query path.
type Pipeline struct {
	index    *hnsw.Index
	graphMgr *graph.Manager
	chunks   *chunkstore.Store
	embedder ingest.Embedder
	cfg      Config
}

// New constructs a query Pipeline.
func New(index *hnsw.Index, graphMgr *graph.Manager, chunks *chunkstore.Store, embedder ingest.Embedder, cfg Config) *Pipeline {
	return &Pipeline{index: index, graphMgr: graphMgr, chunks: chunks, embedder: embedder, cfg: cfg}
}

// Search embeds query, retrieves the topK nearest neurons by cosine
// similarity, reranks them with graph-derived boosts, and reconstructs
// each hit's content by concatenating its chunks in order.
func (p *Pipeline) Search(ctx context.Context, queryText string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 10
	}
	cleaned := ingest.CleanText(queryText)
	if cleaned == "" {
		return nil, nmterr.Wrap(nmterr.ErrEmptyInput, "query: search text is empty after cleaning")
	}

	vec, err := p.embedder.EmbedText(cleaned)
	if err != nil {
		return nil, err
	}

	hits := p.index.Search(vec, topK*3, 0)
	if len(hits) == 0 {
		return nil, nil
	}

	var queryLabel sentiment.Label
	if p.cfg.SentimentBoost {
		queryLabel = sentiment.Default().Analyze(cleaned).Label
	}

	var results []Result
	var coActivated []neuron.ID
	for _, hit := range hits {
		n, ok := p.graphMgr.GetNeuron(neuron.ID(hit.ID))
		if !ok {
			continue
		}
		content, err := p.reconstructContent(n)
		if err != nil {
			continue
		}
		score := hit.Similarity
		score += p.cfg.AccessBoostWeight * logScale(n.Metadata.AccessCount)
		score += p.cfg.SynapseBoostWeight * logScale(uint64(len(n.OutgoingSynapses)))
		if p.cfg.SentimentBoost {
			score *= sentiment.Boost(queryLabel, sentiment.ExtractLabel(n.Metadata.Extra))
		}

		results = append(results, Result{Neuron: n, Similarity: hit.Similarity, Score: score, Content: content})
		coActivated = append(coActivated, n.ID)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}

	if len(coActivated) > 1 {
		ids := coActivated
		if len(ids) > topK {
			ids = ids[:topK]
		}
		_ = p.graphMgr.ReinforceCoActivation(ids, 0.05)
	}

	return results, nil
}

func (p *Pipeline) reconstructContent(n *neuron.Neuron) (string, error) {
	var out []byte
	for i, h := range n.ChunkHashes {
		c, err := p.chunks.Get(h)
		if err != nil {
			return "", err
		}
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, c.Data...)
	}
	return string(out), nil
}

// logScale compresses an unbounded count into a small, diminishing-returns
// boost term: 0 at n=0, growing roughly as log2(n+1).
func logScale(n uint64) float64 {
	v := 0.0
	x := n + 1
	for x > 1 {
		x >>= 1
		v++
	}
	return v
}
