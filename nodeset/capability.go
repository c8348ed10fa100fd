package nodeset

import "github.com/couchbase/stellar-placement/clustering"

// Capability is the interface the selector facade delegates to for the
// non-cross-domain case (replication scope == NODE). flatselect.Selector
// is the concrete implementation; the facade's contract requires
// semantic equivalence with the cross-domain path in that case, so this
// is not a stand-in but an equal partner.
type Capability interface {
	Select(snapshot *clustering.Snapshot, logID string, previous []int, opts Options) Decision
	StorageSetSize(snapshot *clustering.Snapshot, logID string, opts Options) (int, error)
}
