package clustering

import "github.com/couchbase/stellar-placement/topology"

// Node describes a single storage node as it appears in a cluster
// snapshot. NodeIndex identifies it stably across snapshots; Location may
// be nil if the operator has not yet tagged the node with a physical
// position.
type Node struct {
	NodeIndex         int
	Address           string
	Location          *topology.Location
	IncludeInNodesets bool
	Weight            float64
}

// HasLocation reports whether the node carries any location information
// at all.
func (n Node) HasLocation() bool {
	return n.Location != nil
}

// Preferred reports whether the node should be prioritized during domain
// sampling: a positive weight marks a node as preferred, a zero weight
// marks it as a fallback that is only drawn from once the preferred pool
// runs dry.
func (n Node) Preferred() bool {
	return n.Weight > 0
}
