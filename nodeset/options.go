package nodeset

// Options carries the caller-supplied knobs recognized by Select. The
// zero value means "no exclusions, process-level entropy seed."
type Options struct {
	// ExcludeNodes lists node indices that must never appear in the
	// result, regardless of eligibility.
	ExcludeNodes map[int]struct{}

	// RNGSeed, when non-nil, makes domain sampling reproducible: the same
	// seed plus the same snapshot always yields the same storage set.
	RNGSeed *int64

	// SizeTarget overrides the log group's own NodesetSize, when set.
	// Mirrors the facade allowing a caller-provided target distinct from
	// the log group's stored attribute.
	SizeTarget *int
}

func (o Options) excludes(nodeIndex int) bool {
	if o.ExcludeNodes == nil {
		return false
	}
	_, excluded := o.ExcludeNodes[nodeIndex]
	return excluded
}
