package nodeset

import (
	"math/rand"
	"time"
)

// newRNG returns a seeded rand.Rand: the options' seed if one was given,
// otherwise a source seeded from process entropy. Either way the returned
// generator reproduces its sequence given the same seed.
func newRNG(opts Options) *rand.Rand {
	var seed int64
	if opts.RNGSeed != nil {
		seed = *opts.RNGSeed
	} else {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// NewOptionsRNG exposes newRNG for other Capability implementations (e.g.
// flatselect) that need the same seed-or-entropy behavior Select uses.
func NewOptionsRNG(opts Options) *rand.Rand {
	return newRNG(opts)
}
