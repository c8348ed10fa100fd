package nodeset

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/couchbase/stellar-placement/clustering"
)

// SampleFromDomain draws k distinct node indices from domainNodes,
// preferring positive-weight nodes and topping up from zero-weight
// fallbacks only when the preferred pool runs short. Draws are uniform
// within each pool via a partial Fisher-Yates shuffle, so the same rng
// state always reproduces the same draw.
func SampleFromDomain(rng *rand.Rand, domainNodes []int, k int, byIndex map[int]clustering.Node) ([]int, error) {
	var preferred, fallback []int
	for _, idx := range domainNodes {
		n, ok := byIndex[idx]
		if ok && n.Preferred() {
			preferred = append(preferred, idx)
		} else {
			fallback = append(fallback, idx)
		}
	}

	if len(preferred)+len(fallback) < k {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughInDomain, len(preferred)+len(fallback), k)
	}

	drawn := partialShuffleDraw(rng, preferred, min(k, len(preferred)))

	remaining := k - len(drawn)
	if remaining > 0 {
		drawn = append(drawn, partialShuffleDraw(rng, fallback, remaining)...)
	}

	sort.Ints(drawn)
	return drawn, nil
}

// partialShuffleDraw returns the first k elements of a partial
// Fisher-Yates shuffle of pool, leaving pool itself untouched.
func partialShuffleDraw(rng *rand.Rand, pool []int, k int) []int {
	if k <= 0 {
		return nil
	}

	work := append([]int(nil), pool...)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(work)-i)
		work[i], work[j] = work[j], work[i]
	}

	return append([]int(nil), work[:k]...)
}
