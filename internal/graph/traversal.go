package graph

import (
	"math/rand"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuron"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

// Strategy selects a graph-traversal algorithm.
type Strategy string

const (
	StrategyBFS        Strategy = "BFS"
	StrategyDFS        Strategy = "DFS"
	StrategyWeighted   Strategy = "WEIGHTED"
	StrategyRandomWalk Strategy = "RANDOM_WALK"
)

// TraverseOptions configures a single Traverse call.
type TraverseOptions struct {
	Strategy    Strategy
	MaxDepth    int
	MaxNodes    int
	MinWeight   float64 // edges with |weight| below this are not followed
	Rand        *rand.Rand // required for StrategyRandomWalk
}

// Visited is one node reached during traversal.
type Visited struct {
	ID    neuron.ID
	Depth int
	Via   neuron.SynapseID // zero value for the start node
}

type edge struct {
	synID  neuron.SynapseID
	target neuron.ID
	weight float64
	typ    neuron.SynapseType
}

func (m *Manager) neighborsOf(id neuron.ID, minWeight float64) ([]edge, error) {
	var edges []edge
	for _, synID := range m.store.OutgoingSynapseIDs(id) {
		syn, err := m.store.GetSynapse(synID)
		if err != nil {
			continue
		}
		if absf(syn.Weight) < minWeight {
			continue
		}
		edges = append(edges, edge{synID: synID, target: syn.TargetID, weight: syn.Weight, typ: syn.Type})
		if syn.Bidirectional {
			edges = append(edges, edge{synID: synID, target: syn.SourceID, weight: syn.Weight, typ: syn.Type})
		}
	}
	// Bidirectional synapses whose source is not id surface id as their
	// target; pick those up from the incoming index too.
	for _, synID := range m.store.IncomingSynapseIDs(id) {
		syn, err := m.store.GetSynapse(synID)
		if err != nil || !syn.Bidirectional {
			continue
		}
		if absf(syn.Weight) < minWeight {
			continue
		}
		edges = append(edges, edge{synID: synID, target: syn.SourceID, weight: syn.Weight, typ: syn.Type})
	}
	return edges, nil
}

// Traverse walks the graph from start per opts.Strategy, visiting each
// node at most once, bounded by opts.MaxDepth and opts.MaxNodes.
func (m *Manager) Traverse(start neuron.ID, opts TraverseOptions) ([]Visited, error) {
	if _, err := m.store.GetNeuron(start); err != nil {
		return nil, err
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = 1 << 20
	}

	switch opts.Strategy {
	case StrategyBFS:
		return m.traverseBFS(start, opts)
	case StrategyDFS:
		return m.traverseDFS(start, opts)
	case StrategyWeighted:
		return m.traverseWeighted(start, opts)
	case StrategyRandomWalk:
		return m.traverseRandomWalk(start, opts)
	default:
		return nil, nmterr.Wrap(nmterr.ErrInvalidArgument, "graph: unknown traversal strategy %q", opts.Strategy)
	}
}

func (m *Manager) traverseBFS(start neuron.ID, opts TraverseOptions) ([]Visited, error) {
	visited := map[neuron.ID]bool{start: true}
	queue := []Visited{{ID: start, Depth: 0}}
	out := []Visited{{ID: start, Depth: 0}}

	for len(queue) > 0 && len(out) < opts.MaxNodes {
		cur := queue[0]
		queue = queue[1:]
		if opts.MaxDepth > 0 && cur.Depth >= opts.MaxDepth {
			continue
		}
		edges, _ := m.neighborsOf(cur.ID, opts.MinWeight)
		for _, e := range edges {
			if visited[e.target] || len(out) >= opts.MaxNodes {
				continue
			}
			visited[e.target] = true
			v := Visited{ID: e.target, Depth: cur.Depth + 1, Via: e.synID}
			out = append(out, v)
			queue = append(queue, v)
		}
	}
	return out, nil
}

func (m *Manager) traverseDFS(start neuron.ID, opts TraverseOptions) ([]Visited, error) {
	visited := map[neuron.ID]bool{start: true}
	out := []Visited{{ID: start, Depth: 0}}

	var stack []Visited
	stack = append(stack, out[0])

	for len(stack) > 0 && len(out) < opts.MaxNodes {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if opts.MaxDepth > 0 && cur.Depth >= opts.MaxDepth {
			continue
		}
		edges, _ := m.neighborsOf(cur.ID, opts.MinWeight)
		for i := len(edges) - 1; i >= 0; i-- {
			e := edges[i]
			if visited[e.target] || len(out) >= opts.MaxNodes {
				continue
			}
			visited[e.target] = true
			v := Visited{ID: e.target, Depth: cur.Depth + 1, Via: e.synID}
			out = append(out, v)
			stack = append(stack, v)
		}
	}
	return out, nil
}

// traverseWeighted is a best-first search: the frontier always expands
// the unvisited edge with the highest |weight| reachable so far, ignoring
// depth bookkeeping beyond the cap.
func (m *Manager) traverseWeighted(start neuron.ID, opts TraverseOptions) ([]Visited, error) {
	visited := map[neuron.ID]bool{start: true}
	out := []Visited{{ID: start, Depth: 0}}

	frontierEdges := map[neuron.ID]edge{}
	frontierDepth := map[neuron.ID]int{}

	pushNeighbors := func(v Visited) {
		if opts.MaxDepth > 0 && v.Depth >= opts.MaxDepth {
			return
		}
		edges, _ := m.neighborsOf(v.ID, opts.MinWeight)
		for _, e := range edges {
			if visited[e.target] {
				continue
			}
			if prior, ok := frontierEdges[e.target]; !ok || absf(e.weight) > absf(prior.weight) {
				frontierEdges[e.target] = e
				frontierDepth[e.target] = v.Depth + 1
			}
		}
	}
	pushNeighbors(out[0])

	for len(frontierEdges) > 0 && len(out) < opts.MaxNodes {
		var bestID neuron.ID
		var bestEdge edge
		found := false
		for id, e := range frontierEdges {
			if !found || absf(e.weight) > absf(bestEdge.weight) {
				bestID, bestEdge, found = id, e, true
			}
		}
		delete(frontierEdges, bestID)
		// the depth recorded with the frontier edge: one more than the depth
		// of the visited node that produced it.
		depth := frontierDepth[bestID]
		delete(frontierDepth, bestID)
		if visited[bestID] {
			continue
		}
		visited[bestID] = true
		v := Visited{ID: bestID, Depth: depth, Via: bestEdge.synID}
		out = append(out, v)
		pushNeighbors(v)
	}
	return out, nil
}

// pickRoulette samples one edge from edges proportional to its weight,
// assuming every edge is excitatory (weight in [0,1]); falls back to a
// uniform pick when every weight is zero.
func pickRoulette(rng *rand.Rand, edges []edge) edge {
	var total float64
	for _, e := range edges {
		total += e.weight
	}
	if total <= 0 {
		return edges[rng.Intn(len(edges))]
	}
	target := rng.Float64() * total
	var acc float64
	for _, e := range edges {
		acc += e.weight
		if target < acc {
			return e
		}
	}
	return edges[len(edges)-1]
}

// traverseRandomWalk picks the next hop by roulette over excitatory
// synapse weights only, per 4.F: INHIBITORY links are never followed.
// Falls back to a uniform pick over all non-INHIBITORY edges when none
// carry positive weight (every remaining excitatory edge has weight 0),
// and stops the walk if no excitatory edge exists at all.
func (m *Manager) traverseRandomWalk(start neuron.ID, opts TraverseOptions) ([]Visited, error) {
	rng := opts.Rand
	if rng == nil {
		return nil, nmterr.Wrap(nmterr.ErrInvalidArgument, "graph: RANDOM_WALK requires a seeded Rand")
	}
	visited := map[neuron.ID]bool{start: true}
	out := []Visited{{ID: start, Depth: 0}}

	cur := start
	depth := 0
	for len(out) < opts.MaxNodes {
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			break
		}
		edges, _ := m.neighborsOf(cur, opts.MinWeight)
		var excitatory []edge
		for _, e := range edges {
			if e.typ.IsExcitatory() {
				excitatory = append(excitatory, e)
			}
		}
		if len(excitatory) == 0 {
			break
		}
		e := pickRoulette(rng, excitatory)
		depth++
		if !visited[e.target] {
			visited[e.target] = true
			out = append(out, Visited{ID: e.target, Depth: depth, Via: e.synID})
		}
		cur = e.target
	}
	return out, nil
}

// FindPath returns the shortest (fewest-hops) path from source to target
// as an ordered list of synapse ids, via plain BFS. Returns ErrNotFound
// if no path exists within maxDepth hops.
func (m *Manager) FindPath(source, target neuron.ID, maxDepth int) ([]neuron.SynapseID, error) {
	if source == target {
		return nil, nil
	}
	type frame struct {
		id   neuron.ID
		path []neuron.SynapseID
	}
	visited := map[neuron.ID]bool{source: true}
	queue := []frame{{id: source}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && len(cur.path) >= maxDepth {
			continue
		}
		edges, _ := m.neighborsOf(cur.id, 0)
		for _, e := range edges {
			if visited[e.target] {
				continue
			}
			path := append(append([]neuron.SynapseID{}, cur.path...), e.synID)
			if e.target == target {
				return path, nil
			}
			visited[e.target] = true
			queue = append(queue, frame{id: e.target, path: path})
		}
	}
	return nil, nmterr.Wrap(nmterr.ErrNotFound, "graph: no path from %s to %s within %d hops", source, target, maxDepth)
}
