package clustering

import "github.com/couchbase/stellar-placement/topology"

// ValidStorageSet reports whether storageSet, drawn from allNodes, still
// satisfies replication once zero-weight nodes are excluded. The
// cross-domain selector picks nodes by domain membership alone and does
// not weigh writability into its choice, so a nodeset that looks
// perfectly balanced by domain can still fail to provide enough
// positive-weight replicas per scope if too many of its members happen to
// carry zero weight. This is the external check that catches that case.
func ValidStorageSet(allNodes []Node, storageSet []int, replication ReplicationProperty) bool {
	byIndex := make(map[int]Node, len(allNodes))
	for _, n := range allNodes {
		byIndex[n.NodeIndex] = n
	}

	for _, factor := range replication.Factors() {
		if !hasEnoughPositiveWeightDomains(byIndex, storageSet, factor) {
			return false
		}
	}

	return true
}

func hasEnoughPositiveWeightDomains(byIndex map[int]Node, storageSet []int, factor ReplicationFactor) bool {
	if factor.Scope == topology.Node {
		count := 0
		for _, idx := range storageSet {
			if n, ok := byIndex[idx]; ok && n.Preferred() {
				count++
			}
		}
		return count >= factor.Factor
	}

	domains := make(map[string]struct{})
	for _, idx := range storageSet {
		n, ok := byIndex[idx]
		if !ok || !n.Preferred() || !n.HasLocation() {
			continue
		}
		if !n.Location.ScopeSpecified(factor.Scope) {
			continue
		}
		domains[n.Location.DomainKey(factor.Scope)] = struct{}{}
	}

	return len(domains) >= factor.Factor
}
