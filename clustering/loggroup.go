package clustering

// LogGroup carries the attributes the selector needs from a log group:
// its replication requirements and, optionally, an operator-chosen
// nodeset size target.
type LogGroup struct {
	ID                  string
	Replication         ReplicationProperty
	NodesetSizeTarget   *int
}

// NodesetSize returns the operator-supplied nodeset size target, if any.
func (lg *LogGroup) NodesetSize() (int, bool) {
	if lg.NodesetSizeTarget == nil {
		return 0, false
	}
	return *lg.NodesetSizeTarget, true
}
