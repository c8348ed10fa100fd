package nodeset

import (
	"errors"
	"testing"

	"github.com/couchbase/stellar-placement/clustering"
	"github.com/couchbase/stellar-placement/topology"
)

func TestBuildDomainMapSkipsExcludedAndNotIncluded(t *testing.T) {
	locA := topology.NewLocation(map[topology.Scope]string{topology.Rack: "A"})
	nodes := []clustering.Node{
		{NodeIndex: 1, Location: &locA, IncludeInNodesets: true, Weight: 1},
		{NodeIndex: 2, Location: &locA, IncludeInNodesets: true, Weight: 1},
		{NodeIndex: 3, Location: &locA, IncludeInNodesets: false, Weight: 1},
	}

	dm, err := BuildDomainMap(snapshotOf(nodes), topology.Rack, Options{ExcludeNodes: map[int]struct{}{2: {}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := dm.Nodes(locA.DomainKey(topology.Rack))
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only node 1 to remain, got %v", got)
	}
}

func TestBuildDomainMapFailsFastOnMissingLocationBeforeExclusion(t *testing.T) {
	nodes := []clustering.Node{
		{NodeIndex: 1, Location: nil, IncludeInNodesets: true, Weight: 1},
	}

	_, err := BuildDomainMap(snapshotOf(nodes), topology.Rack, Options{ExcludeNodes: map[int]struct{}{1: {}}})
	if !errors.Is(err, ErrMissingLocation) {
		t.Fatalf("expected ErrMissingLocation, got %v", err)
	}
}

func TestBuildDomainMapFailsOnUnspecifiedScope(t *testing.T) {
	loc := topology.NewLocation(map[topology.Scope]string{topology.Rack: "A"})
	nodes := []clustering.Node{
		{NodeIndex: 1, Location: &loc, IncludeInNodesets: true, Weight: 1},
	}

	_, err := BuildDomainMap(snapshotOf(nodes), topology.Row, Options{})
	if !errors.Is(err, ErrScopeNotSpecified) {
		t.Fatalf("expected ErrScopeNotSpecified, got %v", err)
	}
}

func TestDomainMapDeterministicKeyOrder(t *testing.T) {
	dm := buildDomains(t, map[string]int{"C": 1, "A": 1, "B": 1})
	keys := dm.Keys()
	if keys[0] != "A" || keys[1] != "B" || keys[2] != "C" {
		t.Fatalf("expected sorted key order, got %v", keys)
	}
}

func snapshotOf(nodes []clustering.Node) *clustering.Snapshot {
	return clustering.NewSnapshot([]uint64{1}, nodes, nil)
}
