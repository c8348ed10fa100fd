/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package leaderelect provides a thin etcd-lease-based leader election
// primitive: every daemon replica joins a key prefix under its own lease,
// and the replica holding the lexicographically-first live key is the
// leader. It exists purely to gate placement.Manager's recomputation
// loop - it is not part of the nodeset core's contract.
package leaderelect

import (
	"context"
	"sort"
	"sync"

	"github.com/couchbase/stellar-placement/contrib/etcdmemberlist"
	etcd "go.etcd.io/etcd/client/v3"
)

// Options configures an Elector.
type Options struct {
	EtcdClient *etcd.Client
	KeyPrefix  string
	MemberID   string
}

// Elector tracks which member of a key prefix currently holds the
// lexicographically-first live lease, and reports whether this process is
// that member.
type Elector struct {
	ml         *etcdmemberlist.MemberList
	membership *etcdmemberlist.Membership
	memberID   string

	mu       sync.RWMutex
	isLeader bool

	changes chan bool
}

// Join starts participating in the election: it joins the key prefix
// under a lease and begins watching the member list for changes. The
// returned Elector must be closed via Close when no longer needed.
func Join(ctx context.Context, opts Options) (*Elector, error) {
	ml, err := etcdmemberlist.NewMemberList(etcdmemberlist.MemberListOptions{
		EtcdClient: opts.EtcdClient,
		KeyPrefix:  opts.KeyPrefix,
	})
	if err != nil {
		return nil, err
	}

	membership, err := ml.Join(ctx, &etcdmemberlist.JoinOptions{MemberID: opts.MemberID})
	if err != nil {
		return nil, err
	}

	e := &Elector{
		ml:         ml,
		membership: membership,
		memberID:   opts.MemberID,
		changes:    make(chan bool, 1),
	}

	watchCh, err := ml.WatchMembers(ctx)
	if err != nil {
		return nil, err
	}

	go e.run(watchCh)

	return e, nil
}

func (e *Elector) run(watchCh chan *etcdmemberlist.MembersSnapshot) {
	for snap := range watchCh {
		e.update(snap)
	}
}

func (e *Elector) update(snap *etcdmemberlist.MembersSnapshot) {
	leader := firstLiveMember(snap)

	e.mu.Lock()
	wasLeader := e.isLeader
	e.isLeader = leader == e.memberID
	changed := wasLeader != e.isLeader
	isLeader := e.isLeader
	e.mu.Unlock()

	if changed {
		select {
		case e.changes <- isLeader:
		default:
			// a change notification is already pending; replace it with
			// the latest value. run is the only sender, so the send after
			// draining cannot block.
			select {
			case <-e.changes:
			default:
			}
			e.changes <- isLeader
		}
	}
}

func firstLiveMember(snap *etcdmemberlist.MembersSnapshot) string {
	if snap == nil || len(snap.Members) == 0 {
		return ""
	}

	ids := make([]string, 0, len(snap.Members))
	for _, m := range snap.Members {
		ids = append(ids, m.MemberID)
	}
	sort.Strings(ids)
	return ids[0]
}

// IsLeader reports whether this replica currently holds leadership.
func (e *Elector) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isLeader
}

// Changes returns a channel that receives the new IsLeader() value every
// time leadership transitions for this replica. The channel is buffered
// by one and coalesces bursts of membership churn into the latest value.
func (e *Elector) Changes() <-chan bool {
	return e.changes
}

// Close releases this replica's membership, allowing another live
// member to become leader.
func (e *Elector) Close(ctx context.Context) error {
	return e.membership.Leave(ctx)
}
