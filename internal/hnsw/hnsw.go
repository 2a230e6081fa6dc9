// Package hnsw implements a Hierarchical Navigable Small World
// approximate-nearest-neighbor index over L2-normalized float32 vectors.
//
// There is no working HNSW anywhere in the retrieved reference corpus (the
// one example that shares its name is a brute-force stub with the real
// algorithm left as TODOs), so the graph construction and search here are
// written directly from the specification's algorithm description. Doc
// density and the state-machine framing borrow from that stub's package
// comment style.
package hnsw

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

// Params configures graph shape and search breadth.
type Params struct {
	M              int     // max bidirectional connections per node, per layer >=1
	EfConstruction int     // beam width while inserting
	EfSearch       int     // default beam width while searching
	ML             float64 // layer-sampling multiplier; 0 means 1/ln(M)
}

// DefaultParams mirrors the commonly-cited HNSW defaults.
func DefaultParams() Params {
	m := 16
	return Params{
		M:              m,
		EfConstruction: 200,
		EfSearch:       64,
		ML:             1.0 / math.Log(float64(m)),
	}
}

type nodeState int

const (
	stateLive nodeState = iota
	stateTombstoned
)

type node struct {
	id          string
	embedding   []float32
	layer       int
	connections map[int]map[string]struct{} // layer -> neighbor ids
	state       nodeState
}

// Result is one hit from Search.
type Result struct {
	ID         string
	Similarity float64
}

// Index is a single-writer/multi-reader HNSW graph. All mutation methods
// assume the caller serializes writers (see the graph manager, which owns
// the single-writer discipline for the whole neuron subsystem); readers
// may call Search concurrently with no external locking since Index holds
// its own RWMutex.
type Index struct {
	mu sync.RWMutex

	params Params
	rng    *rand.Rand

	nodes      map[string]*node
	entryPoint string
	maxLayer   int

	tombstones       map[string]struct{}
	entryPointStale  bool
}

// New creates an empty index. rng may be nil, in which case a
// non-deterministic source is used; pass a seeded *rand.Rand for
// reproducible tests.
func New(params Params, rng *rand.Rand) *Index {
	if params.ML == 0 {
		params.ML = 1.0 / math.Log(float64(maxInt(params.M, 2)))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Index{
		params:     params,
		rng:        rng,
		nodes:      make(map[string]*node),
		tombstones: make(map[string]struct{}),
		maxLayer:   -1,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Len returns the number of nodes still tracked, live or tombstoned.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// TombstoneCount returns the number of tombstoned nodes awaiting compaction.
func (idx *Index) TombstoneCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.tombstones)
}

func (idx *Index) sampleLayer() int {
	u := idx.rng.Float64()
	for u <= 0 {
		u = idx.rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * idx.params.ML))
}

func (idx *Index) maxConnections(layer int) int {
	if layer == 0 {
		return 2 * idx.params.M
	}
	return idx.params.M
}

// Insert adds id with embedding to the graph. Fails with ErrDuplicate if id
// already exists, live or tombstoned.
func (idx *Index) Insert(id string, embedding []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.nodes[id]; exists {
		return nmterr.Wrap(nmterr.ErrDuplicate, "hnsw: id %q already present", id)
	}

	layer := idx.sampleLayer()
	n := &node{
		id:          id,
		embedding:   embedding,
		layer:       layer,
		connections: make(map[int]map[string]struct{}, layer+1),
		state:       stateLive,
	}
	for l := 0; l <= layer; l++ {
		n.connections[l] = make(map[string]struct{})
	}
	idx.nodes[id] = n

	if idx.entryPoint == "" {
		idx.entryPoint = id
		idx.maxLayer = layer
		return nil
	}

	entry := idx.entryPoint
	curLayer := idx.maxLayer

	// Greedy descent down to one layer above the new node's own layer.
	for curLayer > layer {
		entry = idx.greedyClosest(entry, embedding, curLayer)
		curLayer--
	}

	// Beam search + bidirectional linking on every layer the node occupies.
	for l := minInt(layer, idx.maxLayer); l >= 0; l-- {
		candidates := idx.searchLayer(embedding, entry, idx.params.EfConstruction, l, "")
		neighbors := selectNeighbors(candidates, idx.params.M, embedding, idx.nodeEmbedding)
		for _, c := range neighbors {
			idx.connect(id, c.id, l)
			idx.connect(c.id, id, l)
			idx.pruneConnections(c.id, l)
		}
		if len(candidates) > 0 {
			entry = candidates[0].id
		}
	}

	if layer > idx.maxLayer {
		idx.maxLayer = layer
		idx.entryPoint = id
		idx.entryPointStale = false
	}

	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (idx *Index) nodeEmbedding(id string) []float32 {
	if n, ok := idx.nodes[id]; ok {
		return n.embedding
	}
	return nil
}

func (idx *Index) connect(a, b string, layer int) {
	na := idx.nodes[a]
	if na == nil {
		return
	}
	if na.connections[layer] == nil {
		na.connections[layer] = make(map[string]struct{})
	}
	na.connections[layer][b] = struct{}{}
}

func (idx *Index) disconnect(a, b string, layer int) {
	if na := idx.nodes[a]; na != nil && na.connections[layer] != nil {
		delete(na.connections[layer], b)
	}
}

// pruneConnections trims node id's neighbor set at layer down to the
// configured maximum, keeping the strongest similarities.
func (idx *Index) pruneConnections(id string, layer int) {
	n := idx.nodes[id]
	if n == nil {
		return
	}
	max := idx.maxConnections(layer)
	neighbors := n.connections[layer]
	if len(neighbors) <= max {
		return
	}

	type scored struct {
		id  string
		sim float64
	}
	scoredList := make([]scored, 0, len(neighbors))
	for nb := range neighbors {
		sim := hashutil.Cosine(n.embedding, idx.nodeEmbedding(nb))
		scoredList = append(scoredList, scored{nb, sim})
	}
	sort.Slice(scoredList, func(i, j int) bool { return scoredList[i].sim > scoredList[j].sim })

	kept := make(map[string]struct{}, max)
	for i := 0; i < max && i < len(scoredList); i++ {
		kept[scoredList[i].id] = struct{}{}
	}
	// Back-edges that get pruned here must also be removed from the far
	// side so every remaining edge stays symmetric.
	for nb := range neighbors {
		if _, keep := kept[nb]; !keep {
			idx.disconnect(nb, id, layer)
		}
	}
	n.connections[layer] = kept
}

func (idx *Index) isTombstoned(id string) bool {
	_, ok := idx.tombstones[id]
	return ok
}

// greedyClosest performs single-best-hop greedy descent at layer,
// returning the closest node found starting from entry.
func (idx *Index) greedyClosest(entry string, query []float32, layer int) string {
	best := entry
	bestSim := hashutil.Cosine(query, idx.nodeEmbedding(entry))
	improved := true
	for improved {
		improved = false
		n := idx.nodes[best]
		if n == nil {
			break
		}
		for nb := range n.connections[layer] {
			if idx.isTombstoned(nb) {
				continue
			}
			sim := hashutil.Cosine(query, idx.nodeEmbedding(nb))
			if sim > bestSim {
				bestSim = sim
				best = nb
				improved = true
			}
		}
	}
	return best
}

type candidate struct {
	id  string
	sim float64
}

// searchLayer runs a beam search of width ef at layer, starting from
// entry, returning up to ef candidates sorted by descending similarity.
// Tombstoned nodes are skipped entirely (per 4.D, they never surface in
// traversal).
func (idx *Index) searchLayer(query []float32, entry string, ef int, layer int, _ string) []candidate {
	visited := map[string]struct{}{entry: {}}

	var candidates []candidate
	var results []candidate

	if !idx.isTombstoned(entry) {
		sim := hashutil.Cosine(query, idx.nodeEmbedding(entry))
		candidates = append(candidates, candidate{entry, sim})
		results = append(results, candidate{entry, sim})
	}

	for len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })
		cur := candidates[0]
		candidates = candidates[1:]

		if len(results) >= ef {
			worst := worstOf(results)
			if cur.sim < worst {
				break
			}
		}

		n := idx.nodes[cur.id]
		if n == nil {
			continue
		}
		for nb := range n.connections[layer] {
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}
			if idx.isTombstoned(nb) {
				continue
			}
			sim := hashutil.Cosine(query, idx.nodeEmbedding(nb))
			candidates = append(candidates, candidate{nb, sim})
			results = append(results, candidate{nb, sim})
			if len(results) > ef {
				sort.Slice(results, func(i, j int) bool { return results[i].sim > results[j].sim })
				results = results[:ef]
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].sim != results[j].sim {
			return results[i].sim > results[j].sim
		}
		return results[i].id < results[j].id
	})
	if len(results) > ef {
		results = results[:ef]
	}
	return results
}

func worstOf(results []candidate) float64 {
	worst := results[0].sim
	for _, r := range results {
		if r.sim < worst {
			worst = r.sim
		}
	}
	return worst
}

// selectNeighbors keeps the top m candidates by similarity to query.
func selectNeighbors(candidates []candidate, m int, query []float32, _ func(string) []float32) []candidate {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })
	if len(candidates) > m {
		candidates = candidates[:m]
	}
	return candidates
}

// Search returns up to k nearest neighbors to query. ef, when <= 0,
// defaults to max(params.EfSearch, k).
func (idx *Index) Search(query []float32, k int, ef int) []Result {
	idx.mu.RLock()
	if idx.entryPointStale || idx.isTombstoned(idx.entryPoint) {
		// refreshing rewrites the entry point, which needs the write lock.
		idx.mu.RUnlock()
		idx.mu.Lock()
		if idx.entryPointStale || idx.isTombstoned(idx.entryPoint) {
			idx.refreshEntryPointLocked()
		}
		idx.mu.Unlock()
		idx.mu.RLock()
	}
	defer idx.mu.RUnlock()

	if len(idx.nodes) == 0 || idx.entryPoint == "" {
		return nil
	}
	if ef <= 0 {
		ef = idx.params.EfSearch
	}
	if ef < k {
		ef = k
	}

	entry := idx.entryPoint

	curLayer := idx.maxLayer
	for curLayer > 0 {
		entry = idx.greedyClosest(entry, query, curLayer)
		curLayer--
	}

	candidates := idx.searchLayer(query, entry, ef, 0, "")
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Result{ID: c.id, Similarity: c.sim})
	}
	return out
}

// refreshEntryPointLocked scans live nodes for the one at the highest
// layer and installs it as the new entry point. It mutates
// entryPoint/maxLayer/entryPointStale, so the caller must hold idx.mu for
// writing.
func (idx *Index) refreshEntryPointLocked() string {
	best := ""
	bestLayer := -1
	for id, n := range idx.nodes {
		if idx.isTombstoned(id) {
			continue
		}
		if n.layer > bestLayer {
			bestLayer = n.layer
			best = id
		}
	}
	idx.entryPoint = best
	idx.maxLayer = bestLayer
	idx.entryPointStale = false
	return best
}

// Delete soft-deletes id: O(1) tombstone mark. If id was the entry point,
// the index is flagged for lazy entry-point refresh on the next Search.
func (idx *Index) Delete(id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.nodes[id]; !ok {
		return nmterr.Wrap(nmterr.ErrNotFound, "hnsw: id %q not found", id)
	}
	idx.tombstones[id] = struct{}{}
	idx.nodes[id].state = stateTombstoned
	if idx.entryPoint == id {
		idx.entryPointStale = true
	}
	return nil
}

// ForceDelete structurally removes id: unlinks every bidirectional edge,
// drops the node, and clears the entry point if it was this node
// (triggering a refresh).
func (idx *Index) ForceDelete(id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.forceDeleteLocked(id)
}

func (idx *Index) forceDeleteLocked(id string) error {
	n, ok := idx.nodes[id]
	if !ok {
		return nmterr.Wrap(nmterr.ErrNotFound, "hnsw: id %q not found", id)
	}
	for layer, neighbors := range n.connections {
		for nb := range neighbors {
			idx.disconnect(nb, id, layer)
		}
	}
	delete(idx.nodes, id)
	delete(idx.tombstones, id)

	if idx.entryPoint == id {
		idx.entryPointStale = true
		idx.refreshEntryPointLocked()
	}
	return nil
}

// Compact structurally removes every tombstoned node and refreshes the
// entry point. Returns the count removed.
func (idx *Index) Compact() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	ids := make([]string, 0, len(idx.tombstones))
	for id := range idx.tombstones {
		ids = append(ids, id)
	}
	for _, id := range ids {
		_ = idx.forceDeleteLocked(id)
	}
	return len(ids)
}

// Exists reports whether id is tracked, live or tombstoned.
func (idx *Index) Exists(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.nodes[id]
	return ok
}
