package leaderelect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchbase/stellar-placement/contrib/etcdmemberlist"
	"github.com/google/uuid"
	etcd "go.etcd.io/etcd/client/v3"
)

func TestFirstLiveMemberPicksLexicographicallyFirst(t *testing.T) {
	snap := &etcdmemberlist.MembersSnapshot{
		Members: []*etcdmemberlist.Member{
			{MemberID: "replica-3"},
			{MemberID: "replica-1"},
			{MemberID: "replica-2"},
		},
	}

	if got := firstLiveMember(snap); got != "replica-1" {
		t.Fatalf("expected replica-1, got %q", got)
	}
}

func TestFirstLiveMemberEmptySnapshot(t *testing.T) {
	if got := firstLiveMember(&etcdmemberlist.MembersSnapshot{}); got != "" {
		t.Fatalf("expected empty string for no members, got %q", got)
	}
	if got := firstLiveMember(nil); got != "" {
		t.Fatalf("expected empty string for nil snapshot, got %q", got)
	}
}

var globalTestEtcdClient *etcd.Client
var globalEtcdDisabled bool

func makeTestEtcdClient(t *testing.T) *etcd.Client {
	connectTimeout := 5 * time.Second

	if globalEtcdDisabled {
		t.Fatalf("etcd unavailable: previous connect attempt failed")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), connectTimeout)
	defer waitCancel()

	etcdClient, err := etcd.New(etcd.Config{
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: connectTimeout,
	})
	if err != nil {
		globalEtcdDisabled = true
		t.Fatalf("failed to connect to etcd: %s", err)
	}

	_, err = etcdClient.Get(waitCtx, "invalid-key")
	if errors.Is(err, context.DeadlineExceeded) {
		globalEtcdDisabled = true
		t.Fatal("failed to connect to etcd: timeout")
	}

	return etcdClient
}

func getTestEtcdClient(t *testing.T) *etcd.Client {
	if globalTestEtcdClient != nil {
		return globalTestEtcdClient
	}

	etcdClient := makeTestEtcdClient(t)

	globalTestEtcdClient = etcdClient
	return etcdClient
}

func genTestPrefix() string {
	return "testing/" + uuid.NewString()
}

func TestJoinSoleMemberBecomesLeader(t *testing.T) {
	etcdClient := getTestEtcdClient(t)
	prefix := genTestPrefix()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	e, err := Join(ctx, Options{
		EtcdClient: etcdClient,
		KeyPrefix:  prefix,
		MemberID:   "replica-a",
	})
	if err != nil {
		t.Fatalf("failed to join election: %s", err)
	}
	defer e.Close(context.Background())

	select {
	case leader := <-e.Changes():
		if !leader {
			t.Fatalf("expected to become leader, got false")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for leadership")
	}

	if !e.IsLeader() {
		t.Fatalf("expected IsLeader() true after becoming sole member")
	}
}

func TestJoinSecondMemberDoesNotBecomeLeader(t *testing.T) {
	etcdClient := getTestEtcdClient(t)
	prefix := genTestPrefix()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, err := Join(ctx, Options{
		EtcdClient: etcdClient,
		KeyPrefix:  prefix,
		MemberID:   "replica-a",
	})
	if err != nil {
		t.Fatalf("failed to join election: %s", err)
	}
	defer first.Close(context.Background())

	select {
	case <-first.Changes():
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for first replica's leadership")
	}

	second, err := Join(ctx, Options{
		EtcdClient: etcdClient,
		KeyPrefix:  prefix,
		MemberID:   "replica-b",
	})
	if err != nil {
		t.Fatalf("failed to join election: %s", err)
	}
	defer second.Close(context.Background())

	time.Sleep(2 * time.Second)

	if second.IsLeader() {
		t.Fatalf("replica-b should not have become leader while replica-a is alive")
	}
	if !first.IsLeader() {
		t.Fatalf("replica-a should have remained leader")
	}
}
