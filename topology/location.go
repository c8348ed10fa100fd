package topology

import "strings"

// Location is an ordered tuple of labels aligned to the scope ladder
// (Rack, Row, Cluster, DataCenter, Region), possibly partial. A Location
// is considered empty if it carries no labels at all.
//
// Labels are indexed by Scope, so labels[Rack] is the rack label. Node
// itself never has a label; Root never has a label either, it is the
// sentinel "everything" scope.
type Location struct {
	labels [NumScopes]string
	set    [NumScopes]bool
}

// NewLocation builds a Location from a map of scope to label. Scopes that
// are absent from the map are left unspecified.
func NewLocation(labels map[Scope]string) Location {
	var loc Location
	for scope, label := range labels {
		if scope <= Node || scope >= Root {
			continue
		}
		loc.labels[scope] = label
		loc.set[scope] = true
	}
	return loc
}

// IsEmpty reports whether the location carries no labels whatsoever.
func (l Location) IsEmpty() bool {
	for _, set := range l.set {
		if set {
			return false
		}
	}
	return true
}

// ScopeSpecified reports whether the location carries a label at scope s.
func (l Location) ScopeSpecified(s Scope) bool {
	if s <= Node || s >= Root {
		return false
	}
	return l.set[s]
}

// Domain returns the label for scope s, or the empty string if unspecified.
func (l Location) Domain(s Scope) string {
	if s <= Node || s >= Root {
		return ""
	}
	return l.labels[s]
}

// DomainKey returns a stable, collision-resistant string key identifying the
// domain this location belongs to at scope s: the concatenation of every
// label from Region down to s, inclusive. Two locations produce the same
// key at scope s iff they share the same domain at that scope.
//
// The key intentionally includes every coarser label, not just the label at
// s, so that e.g. rack "A" in datacenter "east" does not collide with rack
// "A" in datacenter "west".
func (l Location) DomainKey(s Scope) string {
	var b strings.Builder
	for scope := Region; scope >= s && scope > Node; scope-- {
		b.WriteString(l.labels[scope])
		b.WriteByte('\x00')
	}
	return b.String()
}

// String renders the location as a slash-separated path from the coarsest
// specified scope down to the finest, for diagnostics.
func (l Location) String() string {
	if l.IsEmpty() {
		return "<empty>"
	}

	var parts []string
	for scope := Region; scope > Node; scope-- {
		if l.set[scope] {
			parts = append(parts, ScopeNames[scope]+"="+l.labels[scope])
		}
	}
	return strings.Join(parts, "/")
}
