package topology

import "testing"

func TestLocationIsEmpty(t *testing.T) {
	if !(Location{}).IsEmpty() {
		t.Fatalf("zero-value location should be empty")
	}

	loc := NewLocation(map[Scope]string{Rack: "rack1"})
	if loc.IsEmpty() {
		t.Fatalf("location with a rack label should not be empty")
	}
}

func TestLocationScopeSpecified(t *testing.T) {
	loc := NewLocation(map[Scope]string{
		Rack:       "rack1",
		DataCenter: "dc1",
	})

	if !loc.ScopeSpecified(Rack) {
		t.Fatalf("expected rack to be specified")
	}
	if !loc.ScopeSpecified(DataCenter) {
		t.Fatalf("expected data center to be specified")
	}
	if loc.ScopeSpecified(Row) {
		t.Fatalf("did not expect row to be specified")
	}
	if loc.ScopeSpecified(Region) {
		t.Fatalf("did not expect region to be specified")
	}
	if loc.ScopeSpecified(Node) {
		t.Fatalf("node is never a specifiable scope")
	}
	if loc.ScopeSpecified(Root) {
		t.Fatalf("root is never a specifiable scope")
	}
}

func TestLocationDomainKeyDistinguishesCoarserContext(t *testing.T) {
	east := NewLocation(map[Scope]string{DataCenter: "east", Rack: "A"})
	west := NewLocation(map[Scope]string{DataCenter: "west", Rack: "A"})

	if east.DomainKey(Rack) == west.DomainKey(Rack) {
		t.Fatalf("rack A in two different data centers must not collide")
	}

	// but two nodes in the same data center must collide at DATA_CENTER
	// scope, whatever their finer (row, rack) labels.
	east2 := NewLocation(map[Scope]string{DataCenter: "east", Rack: "A", Row: "1"})
	if east.DomainKey(DataCenter) != east2.DomainKey(DataCenter) {
		t.Fatalf("expected matching domain keys at DATA_CENTER scope regardless of finer labels")
	}
}

func TestLocationDomainKeyAtDifferentScopes(t *testing.T) {
	loc := NewLocation(map[Scope]string{
		Region:     "us",
		DataCenter: "east",
		Rack:       "A",
	})

	if loc.DomainKey(DataCenter) == loc.DomainKey(Rack) {
		t.Fatalf("domain keys at different scopes should differ when a finer label is present")
	}
}

func TestLocationString(t *testing.T) {
	if got := (Location{}).String(); got != "<empty>" {
		t.Fatalf("expected <empty>, got %q", got)
	}

	loc := NewLocation(map[Scope]string{DataCenter: "east", Rack: "A"})
	got := loc.String()
	if got != "DATA_CENTER=east/RACK=A" {
		t.Fatalf("unexpected String() output: %q", got)
	}
}
