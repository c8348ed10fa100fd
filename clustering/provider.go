/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package clustering

import "context"

// Provider is the source of truth for cluster topology: the set of
// storage nodes and the log groups that need storage sets. The placement
// manager drives every recomputation off of a Provider's Watch channel.
type Provider interface {
	Get(ctx context.Context) (*Snapshot, error)
	Watch(ctx context.Context) (chan *Snapshot, error)
}
