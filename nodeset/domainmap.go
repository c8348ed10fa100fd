package nodeset

import (
	"fmt"
	"sort"

	"github.com/couchbase/stellar-placement/clustering"
	"github.com/couchbase/stellar-placement/topology"
)

// DomainMap buckets eligible node indices by the domain key they fall
// into at a given scope. Iteration over its contents must be deterministic
// by domain key; Keys returns that order.
type DomainMap struct {
	domains map[string][]int
	order   []string
}

func newDomainMap() *DomainMap {
	return &DomainMap{domains: make(map[string][]int)}
}

func (m *DomainMap) append(key string, nodeIndex int) {
	if _, ok := m.domains[key]; !ok {
		m.order = append(m.order, key)
	}
	m.domains[key] = append(m.domains[key], nodeIndex)
}

// Keys returns the domain keys in deterministic (sorted) order.
func (m *DomainMap) Keys() []string {
	keys := append([]string(nil), m.order...)
	sort.Strings(keys)
	return keys
}

// Nodes returns the node indices bucketed under key, in ascending index
// order.
func (m *DomainMap) Nodes(key string) []int {
	return m.domains[key]
}

// NumDomains returns the number of distinct domains currently present.
func (m *DomainMap) NumDomains() int {
	return len(m.domains)
}

// ClusterSize returns the total number of eligible nodes across every
// domain.
func (m *DomainMap) ClusterSize() int {
	total := 0
	for _, nodes := range m.domains {
		total += len(nodes)
	}
	return total
}

// MinDomainSize returns the size of the smallest domain. Callers must not
// call this on an empty map.
func (m *DomainMap) MinDomainSize() int {
	min := -1
	for _, nodes := range m.domains {
		if min == -1 || len(nodes) < min {
			min = len(nodes)
		}
	}
	return min
}

// removeAtSize deletes every domain whose size equals n, returning a new
// DomainMap (the planner's pruning step never mutates a map it might still
// need for best-so-far comparison).
func (m *DomainMap) removeAtSize(n int) *DomainMap {
	pruned := newDomainMap()
	for _, key := range m.order {
		nodes := m.domains[key]
		if len(nodes) == n {
			continue
		}
		pruned.order = append(pruned.order, key)
		pruned.domains[key] = nodes
	}
	return pruned
}

// clone returns a shallow copy sharing the same node-index slices; safe
// because those slices are never mutated after BuildDomainMap returns.
func (m *DomainMap) clone() *DomainMap {
	c := newDomainMap()
	c.order = append([]string(nil), m.order...)
	for k, v := range m.domains {
		c.domains[k] = v
	}
	return c
}

// BuildDomainMap materializes a DomainMap from every node in snapshot
// eligible to serve at scope. Nodes are walked in ascending NodeIndex
// order, matching the deterministic iteration the rest of the selector
// relies on.
//
// Fails fast (before any exclusion or inclusion check) if a node lacks a
// location or a label at scope - a malformed cluster configuration is
// never silently tolerated, even for a node that would otherwise be
// excluded.
func BuildDomainMap(snapshot *clustering.Snapshot, scope topology.Scope, opts Options) (*DomainMap, error) {
	nodes := append([]clustering.Node(nil), snapshot.Nodes()...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeIndex < nodes[j].NodeIndex })

	m := newDomainMap()
	for _, n := range nodes {
		if !n.HasLocation() {
			return nil, fmt.Errorf("%w: node %d (%s)", ErrMissingLocation, n.NodeIndex, n.Address)
		}
		if !n.Location.ScopeSpecified(scope) {
			return nil, fmt.Errorf("%w: node %d (%s) lacks %s label", ErrScopeNotSpecified, n.NodeIndex, n.Address, scope)
		}

		if opts.excludes(n.NodeIndex) {
			continue
		}
		if !n.IncludeInNodesets {
			continue
		}

		m.append(n.Location.DomainKey(scope), n.NodeIndex)
	}

	return m, nil
}
