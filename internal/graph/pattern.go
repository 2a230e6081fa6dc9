package graph

import (
	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuron"
)

// patternCompleteMaxIterations bounds the centroid-pull loop so a
// pathologically oscillating neighborhood can never spin forever.
const patternCompleteMaxIterations = 64

// patternCompleteConvergence is the delta threshold below which the
// centroid pull is considered converged (4.F).
const patternCompleteConvergence = 1e-4

// PatternComplete iteratively pulls a partial/noisy query embedding
// toward the centroid of its k nearest neighbors in the index, stopping
// once the squared distance between the current vector and the new
// centroid falls below patternCompleteConvergence or after
// patternCompleteMaxIterations
// rounds, whichever comes first. It returns the converged vector and the
// neighbor ids used in the final round.
func (m *Manager) PatternComplete(query []float32, k int) ([]float32, []neuron.ID, error) {
	if k <= 0 {
		k = 10
	}
	cur := make([]float32, len(query))
	copy(cur, query)

	var lastIDs []neuron.ID
	for iter := 0; iter < patternCompleteMaxIterations; iter++ {
		results := m.index.Search(cur, k, 0)
		if len(results) == 0 {
			return cur, nil, nil
		}
		lastIDs = lastIDs[:0]
		centroid := make([]float64, len(cur))
		for _, r := range results {
			n, ok := m.GetNeuron(neuron.ID(r.ID))
			if !ok {
				continue
			}
			lastIDs = append(lastIDs, n.ID)
			for i, x := range n.Embedding {
				if i < len(centroid) {
					centroid[i] += float64(x)
				}
			}
		}
		if len(lastIDs) == 0 {
			return cur, nil, nil
		}
		next := make([]float32, len(centroid))
		delta := 0.0
		for i, sum := range centroid {
			v := float32(sum / float64(len(lastIDs)))
			next[i] = v
			d := float64(v - cur[i])
			delta += d * d
		}
		cur = hashutil.Normalize(next)
		if delta < patternCompleteConvergence {
			break
		}
	}
	return cur, lastIDs, nil
}

// episodeMaxSynapseDistance bounds how far apart (in sequence position)
// two members of an episode may be and still receive a direct TEMPORAL
// synapse (4.F: maxDist=2).
const episodeMaxSynapseDistance = 2

// episodeMaxSynapsesPerNeuron caps the number of new TEMPORAL synapses
// any single neuron in the episode can accumulate from one
// EncodeEpisode call. The literal spec text leaves this uncapped, which
// lets a long episode give its interior neurons an unbounded fan-out
// (quadratic in the worst case, since every neuron within maxDist of
// every other qualifies). This resolves that open question: interior
// neurons keep their nearest episodeMaxSynapsesPerNeuron/2 forward and
// backward links and nothing past that, whatever the episode length.
const episodeMaxSynapsesPerNeuron = 8

// EncodeEpisode links a temporally ordered sequence of neuron ids with
// TEMPORAL synapses: every pair within episodeMaxSynapseDistance
// positions of each other gets a synapse at weight 0.3/distance if new,
// or a +0.05*(1-w) reinforcement if one already exists — subject to the
// per-neuron fan-out cap documented on episodeMaxSynapsesPerNeuron.
func (m *Manager) EncodeEpisode(ids []neuron.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	newForward := make(map[neuron.ID]int)
	newBackward := make(map[neuron.ID]int)

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids) && j-i <= episodeMaxSynapseDistance; j++ {
			dist := j - i
			a, b := ids[i], ids[j]

			if syn, ok := m.findOutgoing(a, b); ok {
				syn.Weight = clampExcitatory(syn.Weight + 0.05*(1-syn.Weight))
				syn.UpdatedAt = now
				syn.Activate(now)
				if err := m.store.PutSynapse(syn); err != nil {
					return err
				}
				continue
			}

			half := episodeMaxSynapsesPerNeuron / 2
			if newForward[a] >= half || newBackward[b] >= half {
				continue
			}
			weight := 0.3 / float64(dist)
			if err := m.connectLocked(a, b, neuron.SynapseTemporal, weight, true); err != nil {
				return err
			}
			newForward[a]++
			newBackward[b]++
		}
	}
	return nil
}
