package nodeset

import (
	"math"

	"github.com/couchbase/stellar-placement/ratelimitlog"
	"go.uber.org/zap"
)

// planSize resolves the final per-domain quota and prunes bottleneck
// domains, mirroring the retry/best-so-far loop of the original selector
// exactly. It returns the chosen total size and the domain map it was
// drawn from; a chosenSize of -1 means no plan was ever recorded (the
// domain map was empty to begin with), which the caller must treat as a
// failure.
func planSize(dm *DomainMap, target int, replicationFactor int, logger *ratelimitlog.Logger) (int, *DomainMap) {
	bestSize := -1
	bestMap := dm
	current := dm

	for {
		numDomains := current.NumDomains()
		if numDomains == 0 {
			break
		}

		clusterSize := current.ClusterSize()
		minDomainSize := current.MinDomainSize()

		t := target
		if t <= 0 {
			t = clusterSize
		}

		q, retry, reason := chooseQuota(t, numDomains, replicationFactor, clusterSize, minDomainSize)
		if reason != "" {
			logger.Warn("nodeset: size target overridden",
				zap.Int("requestedTarget", target),
				zap.Int("chosenSize", q*numDomains),
				zap.String("reason", reason))
		}

		size := q * numDomains
		if bestSize == -1 || size > bestSize+numDomains {
			bestSize = size
			bestMap = current
		}

		if !retry {
			break
		}

		pruned := current.removeAtSize(minDomainSize)
		if pruned.NumDomains() == current.NumDomains() {
			// nothing shrank; refuse to loop forever.
			break
		}
		current = pruned
	}

	return bestSize, bestMap
}

// chooseQuota implements the q_min/q_max/q clamp-and-round arithmetic for
// coercing a requested storage-set size down to one that evenly divides
// across domains. reason is empty when the caller's target is already
// valid (divisible, in range, not bottlenecked) and q is used verbatim.
func chooseQuota(target, numDomains, replicationFactor, clusterSize, minDomainSize int) (q int, retry bool, reason string) {
	reason = invalidTargetReason(target, numDomains, replicationFactor, clusterSize, minDomainSize)
	if reason == "" {
		return target / numDomains, false, ""
	}

	qMin := ceilDiv(replicationFactor, numDomains)
	qMax := clusterSize / numDomains
	q = clampInt(roundDiv(target, numDomains), qMin, qMax)

	if q > minDomainSize {
		q = minDomainSize
		retry = true
	}

	return q, retry, reason
}

// invalidTargetReason returns the single reason the target is invalid, in
// priority order (non-divisible, too small, too large, small-domain
// bottleneck), or "" if the target is already valid.
func invalidTargetReason(target, numDomains, replicationFactor, clusterSize, minDomainSize int) string {
	switch {
	case target%numDomains != 0:
		return "target size is not divisible by the number of domains"
	case target < replicationFactor:
		return "target size is below the replication factor"
	case target > clusterSize:
		return "target size exceeds the eligible cluster size"
	case target > minDomainSize*numDomains:
		return "small-domain bottleneck: target exceeds min domain size times domain count"
	default:
		return ""
	}
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func roundDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return int(math.Round(float64(a) / float64(b)))
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return hi
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
