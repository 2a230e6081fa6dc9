package graph

import (
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuron"
)

// clampExcitatory and clampInhibitory mirror the soft-ceiling contracts in
// 4.F's learning-rule table: excitatory weights stay in [0,1], inhibitory
// in [-1,0].
func clampExcitatory(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

func clampInhibitory(w float64) float64 {
	if w > 0 {
		return 0
	}
	if w < -1 {
		return -1
	}
	return w
}

// findOutgoing returns the synapse from source to target, if any.
func (m *Manager) findOutgoing(source, target neuron.ID) (*neuron.Synapse, bool) {
	for _, id := range m.store.OutgoingSynapseIDs(source) {
		syn, err := m.store.GetSynapse(id)
		if err != nil {
			continue
		}
		if syn.TargetID == target {
			return syn, true
		}
	}
	return nil, false
}

// ReinforceCoActivation strengthens the excitatory synapse between every
// pair of co-retrieved neurons in ids, in both directions where a
// synapse exists, with the soft-ceiling rule w <- w + eta*(1-w).
func (m *Manager) ReinforceCoActivation(ids []neuron.ID, eta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for i := 0; i < len(ids); i++ {
		for j := 0; j < len(ids); j++ {
			if i == j {
				continue
			}
			syn, ok := m.findOutgoing(ids[i], ids[j])
			if !ok || !syn.Type.IsExcitatory() {
				continue
			}
			syn.Weight = clampExcitatory(syn.Weight + eta*(1-syn.Weight))
			syn.UpdatedAt = now
			syn.Activate(now)
			if err := m.store.PutSynapse(syn); err != nil {
				return err
			}
		}
	}
	return nil
}

// InhibitCoActivation applies competitive inhibition between the top-3
// winners of rankedIds and every lower-ranked loser: an existing
// INHIBITORY synapse is weakened toward -1 with w <- w - eta*(1-|w|);
// when no INHIBITORY synapse exists between a winner and a loser, a new
// one is created at weight -0.05, regardless of any other synapse type
// already connecting that pair. An existing EXCITATORY or SEMANTIC
// synapse is never touched or reused for this — inhibition always lives
// on its own edge, per 4.F's "create INHIBITORY ... if absent" (absent
// meaning no existing inhibitory edge, not no edge at all). At most
// 3*(len(rankedIds)-1) synapses are ever touched or created, matching
// the bound in the testable properties.
func (m *Manager) InhibitCoActivation(rankedIds []neuron.ID, eta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	winnerCount := 3
	if winnerCount > len(rankedIds) {
		winnerCount = len(rankedIds)
	}
	winners := rankedIds[:winnerCount]
	losers := rankedIds[winnerCount:]

	for _, w := range winners {
		for _, l := range losers {
			if w == l {
				continue
			}
			var existing *neuron.Synapse
			for _, id := range m.store.OutgoingSynapseIDs(w) {
				if syn, err := m.store.GetSynapse(id); err == nil && syn.TargetID == l && syn.Type == neuron.SynapseInhibitory {
					existing = syn
					break
				}
			}
			if syn := existing; syn != nil {
				syn.Weight = clampInhibitory(syn.Weight - eta*(1-absf(syn.Weight)))
				syn.UpdatedAt = now
				syn.Activate(now)
				if err := m.store.PutSynapse(syn); err != nil {
					return err
				}
				continue
			}
			if err := m.connectLocked(w, l, neuron.SynapseInhibitory, -0.05, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// StrengthenSynapse applies w <- min(1, w+delta) to the named synapse,
// regardless of type.
func (m *Manager) StrengthenSynapse(id neuron.SynapseID, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	syn, err := m.store.GetSynapse(id)
	if err != nil {
		return err
	}
	w := syn.Weight + delta
	if w > 1 {
		w = 1
	}
	syn.Weight = w
	syn.UpdatedAt = m.now()
	return m.store.PutSynapse(syn)
}

// WeakenSynapse applies w <- max(0, w-delta) to the named synapse,
// regardless of type.
func (m *Manager) WeakenSynapse(id neuron.SynapseID, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	syn, err := m.store.GetSynapse(id)
	if err != nil {
		return err
	}
	w := syn.Weight - delta
	if w < 0 {
		w = 0
	}
	syn.Weight = w
	syn.UpdatedAt = m.now()
	return m.store.PutSynapse(syn)
}

// PruneOptions configures PruneSynapses.
type PruneOptions struct {
	MinWeight       float64
	MinActivations  uint64
	DryRun          bool
}

// DefaultPruneOptions matches the 4.F default thresholds.
func DefaultPruneOptions() PruneOptions {
	return PruneOptions{MinWeight: 0.05, MinActivations: 2}
}

// PruneSynapses deletes every synapse whose |weight| is below
// opts.MinWeight AND whose activation count is below
// opts.MinActivations. With DryRun set, it reports the count that would
// be removed without mutating anything.
func (m *Manager) PruneSynapses(opts PruneOptions) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, id := range m.store.AllSynapseIDs() {
		syn, err := m.store.GetSynapse(id)
		if err != nil {
			continue
		}
		if absf(syn.Weight) < opts.MinWeight && syn.ActivationCount < opts.MinActivations {
			removed++
			if !opts.DryRun {
				if err := m.store.DeleteSynapse(id); err != nil {
					return removed, err
				}
			}
		}
	}
	return removed, nil
}
