// Package nodeset implements the cross-domain storage-set selector: given
// a cluster snapshot whose nodes carry hierarchical location coordinates
// and a log group's replication requirement, it deterministically-by-seed
// chooses a balanced subset of storage nodes satisfying the cross-domain
// replication invariant.
//
// Select is a pure function of its inputs plus an injected rng; it
// performs no I/O and holds no state beyond the call.
package nodeset

import (
	"fmt"
	"sort"

	"github.com/couchbase/stellar-placement/clustering"
	"github.com/couchbase/stellar-placement/ratelimitlog"
	"github.com/couchbase/stellar-placement/topology"
	"go.uber.org/zap"
)

// Selector ties the domain map builder, size planner, and domain sampler
// together into the facade described by Select, delegating to flat when
// a log group's replication scope is NODE.
type Selector struct {
	flat    Capability
	logger  *ratelimitlog.Logger
	onPrune func(domainsPruned int)
}

// NewSelector builds a Selector. flat handles the scope == NODE case;
// logger receives rate-limited advisories from the size planner. A nil
// logger discards advisories.
func NewSelector(flat Capability, logger *ratelimitlog.Logger) *Selector {
	if logger == nil {
		logger = ratelimitlog.New(zap.NewNop(), 1, 10)
	}
	return &Selector{flat: flat, logger: logger}
}

// OnPrune registers a callback invoked after every Select call that
// pruned at least one domain, reporting how many were removed. Intended
// for the metrics package to drive a pruning counter; nil by default.
func (s *Selector) OnPrune(fn func(domainsPruned int)) {
	s.onPrune = fn
}

// Select implements the ten-step facade algorithm.
func (s *Selector) Select(snapshot *clustering.Snapshot, logID string, previous []int, opts Options) Decision {
	lg, ok := snapshot.LogGroup(logID)
	if !ok {
		return FailedDecision(fmt.Errorf("%w: %q", ErrNotFound, logID))
	}

	rf := lg.Replication.SmallestScope()

	if rf.Scope == topology.Node {
		return s.flat.Select(snapshot, logID, previous, opts)
	}
	if rf.Scope >= topology.Root {
		return FailedDecision(fmt.Errorf("%w: %s", ErrInvalidScope, rf.Scope))
	}

	dm, err := BuildDomainMap(snapshot, rf.Scope, opts)
	if err != nil {
		return FailedDecision(err)
	}

	target := 0
	if opts.SizeTarget != nil {
		target = *opts.SizeTarget
	} else if size, ok := lg.NodesetSize(); ok {
		target = size
	}

	numDomainsBefore := dm.NumDomains()
	chosenSize, prunedMap := planSize(dm, target, rf.Factor, s.logger)
	if chosenSize <= 0 {
		return FailedDecision(fmt.Errorf("%w: no domains eligible for log %q", ErrNotEnoughInDomain, logID))
	}

	if pruned := numDomainsBefore - prunedMap.NumDomains(); pruned > 0 && s.onPrune != nil {
		s.onPrune(pruned)
	}

	numDomains := prunedMap.NumDomains()
	q := chosenSize / numDomains

	byIndex := make(map[int]clustering.Node, len(snapshot.Nodes()))
	for _, n := range snapshot.Nodes() {
		byIndex[n.NodeIndex] = n
	}

	rng := newRNG(opts)

	var result []int
	for _, key := range prunedMap.Keys() {
		sampled, err := SampleFromDomain(rng, prunedMap.Nodes(key), q, byIndex)
		if err != nil {
			return FailedDecision(fmt.Errorf("%w: domain %q: %v", ErrNotEnoughInDomain, key, err))
		}
		result = append(result, sampled...)
	}

	sort.Ints(result)
	result = dedupSorted(result)

	if !clustering.ValidStorageSet(snapshot.Nodes(), result, lg.Replication) {
		return FailedDecision(fmt.Errorf("%w: log %q", ErrInvalidWeights, logID))
	}

	if previous != nil && equalIntSlices(previous, result) {
		return KeepDecision()
	}

	return NeedsChangeDecision(result)
}

// StorageSetSize reports the size Select would choose for logID without
// drawing a storage set, by running the domain map builder and size
// planner alone. Delegates to flat when the log group's scope is NODE.
func (s *Selector) StorageSetSize(snapshot *clustering.Snapshot, logID string, opts Options) (int, error) {
	lg, ok := snapshot.LogGroup(logID)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, logID)
	}

	rf := lg.Replication.SmallestScope()

	if rf.Scope == topology.Node {
		return s.flat.StorageSetSize(snapshot, logID, opts)
	}
	if rf.Scope >= topology.Root {
		return 0, fmt.Errorf("%w: %s", ErrInvalidScope, rf.Scope)
	}

	dm, err := BuildDomainMap(snapshot, rf.Scope, opts)
	if err != nil {
		return 0, err
	}

	target := 0
	if opts.SizeTarget != nil {
		target = *opts.SizeTarget
	} else if size, ok := lg.NodesetSize(); ok {
		target = size
	}

	chosenSize, _ := planSize(dm, target, rf.Factor, s.logger)
	if chosenSize <= 0 {
		return 0, fmt.Errorf("%w: no domains eligible for log %q", ErrNotEnoughInDomain, logID)
	}

	return chosenSize, nil
}

func dedupSorted(s []int) []int {
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
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
