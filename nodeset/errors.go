package nodeset

import "errors"

// Sentinel errors identifying why Select failed. Callers compare against
// these with errors.Is; the returned error is always wrapped with
// additional context via fmt.Errorf("%w: ...").
var (
	// ErrNotFound means the requested log group does not exist in the
	// snapshot.
	ErrNotFound = errors.New("nodeset: log group not found")

	// ErrMissingLocation means a candidate node has no location at all.
	ErrMissingLocation = errors.New("nodeset: node missing location")

	// ErrScopeNotSpecified means a candidate node's location omits the
	// label required at the replication scope.
	ErrScopeNotSpecified = errors.New("nodeset: node location missing required scope label")

	// ErrInvalidScope means the replication property's scope is ROOT or
	// higher, which can never be satisfied.
	ErrInvalidScope = errors.New("nodeset: invalid replication scope")

	// ErrNotEnoughInDomain means a domain has fewer preferred+fallback
	// nodes than its planned quota.
	ErrNotEnoughInDomain = errors.New("nodeset: not enough nodes in domain")

	// ErrInvalidWeights means the sampled storage set does not carry
	// enough positive-weight members to satisfy replication.
	ErrInvalidWeights = errors.New("nodeset: storage set has insufficient positive-weight members")

	// ErrFailed is a catch-all for failures no more specific sentinel
	// fits. Select itself always reports one of the sentinels above;
	// planner exhaustion is reported as ErrNotEnoughInDomain.
	ErrFailed = errors.New("nodeset: selection failed")
)
