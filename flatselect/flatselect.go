// Package flatselect implements the non-cross-domain fallback selector:
// when a log group's replication scope is NODE, there is no domain
// hierarchy to balance across, so the entire eligible node pool is
// treated as a single domain and sampled directly.
package flatselect

import (
	"fmt"
	"sort"

	"github.com/couchbase/stellar-placement/clustering"
	"github.com/couchbase/stellar-placement/nodeset"
)

// Selector satisfies nodeset.Capability. It reuses nodeset's domain
// sampler and validator so that the NODE-scope case is semantically
// equal to, not merely similar to, the cross-domain path.
type Selector struct{}

var _ nodeset.Capability = Selector{}

func eligibleNodes(snapshot *clustering.Snapshot, opts nodeset.Options) []int {
	var indices []int
	for _, n := range snapshot.Nodes() {
		if !n.IncludeInNodesets {
			continue
		}
		indices = append(indices, n.NodeIndex)
	}
	sort.Ints(indices)

	if len(indices) == 0 {
		return indices
	}

	filtered := indices[:0:0]
	for _, idx := range indices {
		if opts.ExcludeNodes != nil {
			if _, excluded := opts.ExcludeNodes[idx]; excluded {
				continue
			}
		}
		filtered = append(filtered, idx)
	}
	return filtered
}

// Select draws a flat, non-domain-aware storage set of the log group's
// node-scope replication factor (or its size target, if larger).
func (Selector) Select(snapshot *clustering.Snapshot, logID string, previous []int, opts nodeset.Options) nodeset.Decision {
	lg, ok := snapshot.LogGroup(logID)
	if !ok {
		return nodeset.FailedDecision(fmt.Errorf("%w: %q", nodeset.ErrNotFound, logID))
	}

	rf := lg.Replication.SmallestScope()

	target := rf.Factor
	if opts.SizeTarget != nil {
		target = *opts.SizeTarget
	} else if size, ok := lg.NodesetSize(); ok {
		target = size
	}
	if target < rf.Factor {
		target = rf.Factor
	}

	eligible := eligibleNodes(snapshot, opts)

	byIndex := make(map[int]clustering.Node, len(snapshot.Nodes()))
	for _, n := range snapshot.Nodes() {
		byIndex[n.NodeIndex] = n
	}

	rng := nodeset.NewOptionsRNG(opts)

	sampled, err := nodeset.SampleFromDomain(rng, eligible, target, byIndex)
	if err != nil {
		return nodeset.FailedDecision(fmt.Errorf("%w: %v", nodeset.ErrNotEnoughInDomain, err))
	}
	sort.Ints(sampled)

	if !clustering.ValidStorageSet(snapshot.Nodes(), sampled, lg.Replication) {
		return nodeset.FailedDecision(fmt.Errorf("%w: log %q", nodeset.ErrInvalidWeights, logID))
	}

	if previous != nil && equalIntSlices(previous, sampled) {
		return nodeset.KeepDecision()
	}

	return nodeset.NeedsChangeDecision(sampled)
}

// StorageSetSize reports the size Select would choose for logID.
func (Selector) StorageSetSize(snapshot *clustering.Snapshot, logID string, opts nodeset.Options) (int, error) {
	lg, ok := snapshot.LogGroup(logID)
	if !ok {
		return 0, fmt.Errorf("%w: %q", nodeset.ErrNotFound, logID)
	}

	rf := lg.Replication.SmallestScope()
	target := rf.Factor
	if opts.SizeTarget != nil {
		target = *opts.SizeTarget
	} else if size, ok := lg.NodesetSize(); ok {
		target = size
	}
	if target < rf.Factor {
		target = rf.Factor
	}

	eligible := eligibleNodes(snapshot, opts)
	if len(eligible) < target {
		return 0, fmt.Errorf("%w: have %d, need %d", nodeset.ErrNotEnoughInDomain, len(eligible), target)
	}

	return target, nil
}

func equalIntSlices(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
