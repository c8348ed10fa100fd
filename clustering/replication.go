package clustering

import "github.com/couchbase/stellar-placement/topology"

// ReplicationFactor is the number of distinct replicas required for a
// given scope of the location hierarchy.
type ReplicationFactor struct {
	Scope  topology.Scope
	Factor int
}

// ReplicationProperty is the set of (scope, factor) constraints attached
// to a log group. Only the smallest-scope entry matters to the
// cross-domain selector; the remaining entries exist for other consumers
// (e.g. a scope-aware read quorum) and are carried here unmodified.
type ReplicationProperty struct {
	factors []ReplicationFactor
}

// NewReplicationProperty builds a ReplicationProperty from an unordered
// set of (scope, factor) pairs.
func NewReplicationProperty(factors ...ReplicationFactor) ReplicationProperty {
	return ReplicationProperty{factors: append([]ReplicationFactor(nil), factors...)}
}

// SmallestScope returns the (scope, factor) pair with the finest scope,
// i.e. the constraint the cross-domain selector must satisfy. It panics if
// the property carries no factors at all, since that is a config error the
// caller should have rejected far earlier than here.
func (p ReplicationProperty) SmallestScope() ReplicationFactor {
	if len(p.factors) == 0 {
		panic("clustering: replication property has no factors")
	}

	smallest := p.factors[0]
	for _, f := range p.factors[1:] {
		if f.Scope < smallest.Scope {
			smallest = f
		}
	}
	return smallest
}

// Factors returns every (scope, factor) pair making up this property, in
// no particular order.
func (p ReplicationProperty) Factors() []ReplicationFactor {
	return append([]ReplicationFactor(nil), p.factors...)
}

// ReplicationFactorAt returns the factor required at exactly the given
// scope, if one was specified.
func (p ReplicationProperty) ReplicationFactorAt(scope topology.Scope) (int, bool) {
	for _, f := range p.factors {
		if f.Scope == scope {
			return f.Factor, true
		}
	}
	return 0, false
}
