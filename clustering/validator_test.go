package clustering

import (
	"testing"

	"github.com/couchbase/stellar-placement/topology"
)

func rackNode(index int, rack string, weight float64) Node {
	loc := topology.NewLocation(map[topology.Scope]string{topology.Rack: rack})
	return Node{NodeIndex: index, Location: &loc, IncludeInNodesets: true, Weight: weight}
}

func TestValidStorageSetAcceptsSufficientPositiveWeightDomains(t *testing.T) {
	nodes := []Node{
		rackNode(1, "A", 1),
		rackNode(2, "B", 1),
		rackNode(3, "C", 1),
	}
	rp := NewReplicationProperty(ReplicationFactor{Scope: topology.Rack, Factor: 3})

	if !ValidStorageSet(nodes, []int{1, 2, 3}, rp) {
		t.Fatalf("expected storage set to be valid")
	}
}

func TestValidStorageSetRejectsTooFewPositiveWeightDomains(t *testing.T) {
	nodes := []Node{
		rackNode(1, "A", 1),
		rackNode(2, "B", 0),
		rackNode(3, "C", 0),
	}
	rp := NewReplicationProperty(ReplicationFactor{Scope: topology.Rack, Factor: 3})

	if ValidStorageSet(nodes, []int{1, 2, 3}, rp) {
		t.Fatalf("expected storage set to be rejected")
	}
}

func TestValidStorageSetNodeScopeCountsNodesDirectly(t *testing.T) {
	nodes := []Node{
		{NodeIndex: 1, Weight: 1, IncludeInNodesets: true},
		{NodeIndex: 2, Weight: 0, IncludeInNodesets: true},
		{NodeIndex: 3, Weight: 1, IncludeInNodesets: true},
	}
	rp := NewReplicationProperty(ReplicationFactor{Scope: topology.Node, Factor: 2})

	if !ValidStorageSet(nodes, []int{1, 2, 3}, rp) {
		t.Fatalf("expected 2 positive-weight nodes to satisfy factor 2")
	}
	if ValidStorageSet(nodes, []int{1, 2}, rp) {
		t.Fatalf("expected only 1 positive-weight node to fail factor 2")
	}
}
