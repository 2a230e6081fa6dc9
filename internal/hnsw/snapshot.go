package hnsw

import "sort"

// NodeSnapshot is the portable, JSON-serializable form of one graph node.
type NodeSnapshot struct {
	ID          string              `json:"id"`
	Embedding   []float32           `json:"embedding"`
	Layer       int                 `json:"layer"`
	Connections map[int][]string    `json:"connections"`
	Tombstoned  bool                `json:"tombstoned"`
}

// Snapshot is the portable form of the whole index, matching the
// `index/main.json` layout named in the external-interfaces section:
// plain JSON, float arrays, no binary wrapping needed since an HNSW
// snapshot carries no byte blobs or timestamps.
type Snapshot struct {
	Params     Params         `json:"params"`
	Nodes      []NodeSnapshot `json:"nodes"`
	EntryPoint string         `json:"entryPoint"`
	MaxLayer   int            `json:"maxLayer"`
}

// Snapshot captures the index's current state for persistence. Live and
// tombstoned nodes are both included so Compact() remains the only way to
// structurally drop data; a reloaded index should behave identically to
// the one that produced the snapshot.
func (idx *Index) Snapshot() Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ids := make([]string, 0, len(idx.nodes))
	for id := range idx.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := make([]NodeSnapshot, 0, len(ids))
	for _, id := range ids {
		n := idx.nodes[id]
		conns := make(map[int][]string, len(n.connections))
		for layer, set := range n.connections {
			neighbors := make([]string, 0, len(set))
			for nb := range set {
				neighbors = append(neighbors, nb)
			}
			sort.Strings(neighbors)
			conns[layer] = neighbors
		}
		nodes = append(nodes, NodeSnapshot{
			ID:          id,
			Embedding:   n.embedding,
			Layer:       n.layer,
			Connections: conns,
			Tombstoned:  idx.isTombstoned(id),
		})
	}

	return Snapshot{
		Params:     idx.params,
		Nodes:      nodes,
		EntryPoint: idx.entryPoint,
		MaxLayer:   idx.maxLayer,
	}
}

// LoadSnapshot rebuilds an Index from a previously captured Snapshot. The
// RNG is reseeded fresh since layer assignment for existing nodes is
// already fixed by the snapshot; it only matters for subsequent inserts.
func LoadSnapshot(snap Snapshot) *Index {
	idx := New(snap.Params, nil)
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, ns := range snap.Nodes {
		n := &node{
			id:          ns.ID,
			embedding:   ns.Embedding,
			layer:       ns.Layer,
			connections: make(map[int]map[string]struct{}, len(ns.Connections)),
		}
		for layer, neighbors := range ns.Connections {
			set := make(map[string]struct{}, len(neighbors))
			for _, nb := range neighbors {
				set[nb] = struct{}{}
			}
			n.connections[layer] = set
		}
		if ns.Tombstoned {
			n.state = stateTombstoned
			idx.tombstones[ns.ID] = struct{}{}
		} else {
			n.state = stateLive
		}
		idx.nodes[ns.ID] = n
	}

	idx.entryPoint = snap.EntryPoint
	idx.maxLayer = snap.MaxLayer
	if idx.entryPoint != "" && idx.isTombstoned(idx.entryPoint) {
		idx.entryPointStale = true
	}

	return idx
}
