/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package clustering

// The JSON/YAML representation of Snapshot is intentionally terse so that
// it can be distributed cheaply over etcd watch events or a small config
// file.

// Snapshot is an immutable, read-only view of the cluster's storage nodes
// and log groups at a point in time. It is the "cluster configuration
// snapshot" and "log group attribute" collaborator the nodeset selector
// consumes; the selector never mutates it.
type Snapshot struct {
	Revision  []uint64
	nodes     []Node
	logGroups map[string]*LogGroup
}

// NewSnapshot builds a Snapshot from an already-ordered node list (by
// ascending NodeIndex) and a set of log groups.
func NewSnapshot(revision []uint64, nodes []Node, logGroups []*LogGroup) *Snapshot {
	lgMap := make(map[string]*LogGroup, len(logGroups))
	for _, lg := range logGroups {
		lgMap[lg.ID] = lg
	}

	return &Snapshot{
		Revision:  revision,
		nodes:     append([]Node(nil), nodes...),
		logGroups: lgMap,
	}
}

// Nodes returns every node in the snapshot, in ascending NodeIndex order.
// Callers must not mutate the returned slice.
func (s *Snapshot) Nodes() []Node {
	return s.nodes
}

// LogGroup looks up a log group by id.
func (s *Snapshot) LogGroup(id string) (*LogGroup, bool) {
	lg, ok := s.logGroups[id]
	return lg, ok
}

// LogGroupIDs returns the ids of every log group tracked by this snapshot,
// in no particular order. Useful for callers (e.g. the placement manager)
// that want to recompute storage sets for the whole fleet of log groups.
func (s *Snapshot) LogGroupIDs() []string {
	ids := make([]string, 0, len(s.logGroups))
	for id := range s.logGroups {
		ids = append(ids, id)
	}
	return ids
}
