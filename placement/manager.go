// Package placement drives the cross-domain selector against a live
// cluster snapshot: it watches a clustering.Provider, and on every
// change recomputes nodeset.Select for every tracked log group,
// publishing the decisions that require a storage-set change and the
// ones that failed. Recomputation only runs while this replica holds
// leadership.
package placement

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/couchbase/stellar-placement/clustering"
	"github.com/couchbase/stellar-placement/nodeset"
	"github.com/couchbase/stellar-placement/pkg/metrics"
	"github.com/couchbase/stellar-placement/utils/channelmerge"
	"github.com/couchbase/stellar-placement/utils/latestonlychannel"
	"github.com/couchbase/stellar-placement/utils/revisionarr"
	"github.com/couchbase/stellar-placement/utils/sliceutils"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LogDecision pairs a log group ID with the decision Select reached
// for it on the most recent snapshot.
type LogDecision struct {
	LogID    string
	Decision nodeset.Decision
}

// Elector reports whether this replica currently holds placement
// leadership. leaderelect.Elector satisfies this interface.
type Elector interface {
	IsLeader() bool
}

// Options configures a Manager.
type Options struct {
	Provider clustering.Provider
	Selector *nodeset.Selector
	Elector  Elector
	Metrics  *metrics.PlacementMetrics
	Logger   *zap.Logger

	// LogIDs lists additional log groups to recompute on every snapshot
	// beyond whatever the snapshot itself reports via LogGroupIDs; most
	// callers leave this empty and let the snapshot drive discovery.
	// Entries can also be added or removed later via TrackLog/UntrackLog.
	LogIDs []string
}

// Manager watches a cluster snapshot provider and recomputes storage
// sets for every tracked log group whenever the snapshot changes and
// this replica is leader.
type Manager struct {
	provider clustering.Provider
	selector *nodeset.Selector
	elector  Elector
	metrics  *metrics.PlacementMetrics
	logger   *zap.Logger

	mu             sync.Mutex
	trackedLogIDs  map[string]struct{}
	lastStorageSet map[string][]int
	lastRevision   []uint64

	decisions chan LogDecision
}

// NewManager builds a Manager. A nil Elector means this replica always
// considers itself the leader, which is useful for single-replica
// deployments and tests.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tracked := make(map[string]struct{}, len(opts.LogIDs))
	for _, id := range opts.LogIDs {
		tracked[id] = struct{}{}
	}

	m := &Manager{
		provider:       opts.Provider,
		selector:       opts.Selector,
		elector:        opts.Elector,
		metrics:        opts.Metrics,
		logger:         logger,
		trackedLogIDs:  tracked,
		lastStorageSet: make(map[string][]int),
		decisions:      make(chan LogDecision, 16),
	}

	if m.selector != nil {
		m.selector.OnPrune(func(domainsPruned int) {
			if m.metrics != nil {
				m.metrics.DomainsPruned.Add(context.Background(), int64(domainsPruned))
			}
		})
	}

	return m
}

// TrackLog adds a log group to the set recomputed on every snapshot.
func (m *Manager) TrackLog(logID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackedLogIDs[logID] = struct{}{}
}

// UntrackLog removes a log group from recomputation and forgets its
// last-known storage set.
func (m *Manager) UntrackLog(logID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trackedLogIDs, logID)
	delete(m.lastStorageSet, logID)
}

// Decisions returns the channel on which NeedsChange and Failed
// decisions are published. Keep decisions are not published, since
// they carry nothing actionable.
func (m *Manager) Decisions() <-chan LogDecision {
	return m.decisions
}

func (m *Manager) isLeader() bool {
	if m.elector == nil {
		return true
	}
	return m.elector.IsLeader()
}

// changeNotifier is satisfied by an Elector that can push leadership
// transitions instead of only being polled. leaderelect.Elector
// implements it; Managers built against a plain Elector (or none) fall
// back to a single static leadership value for the merged stream below.
type changeNotifier interface {
	Changes() <-chan bool
}

func (m *Manager) leadershipChannel() <-chan bool {
	ch := make(chan bool, 1)
	ch <- m.isLeader()

	cn, ok := m.elector.(changeNotifier)
	if !ok {
		return ch
	}

	go func() {
		for v := range cn.Changes() {
			ch <- v
		}
	}()

	return ch
}

// Run watches the snapshot provider until ctx is cancelled, recomputing
// every tracked log group's storage set whenever the snapshot changes
// or this replica's leadership status changes, while it is leader. A
// snapshot whose revision is not newer than the last one recomputed is
// skipped, so regaining leadership without a newer snapshot recomputes
// nothing. It returns when the provider's watch channel closes or ctx is
// cancelled.
func (m *Manager) Run(ctx context.Context) error {
	snapCh, err := m.provider.Watch(ctx)
	if err != nil {
		return err
	}

	debounced := latestonlychannel.Wrap(snapCh)
	merged := channelmerge.Merge(debounced, m.leadershipChannel())

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-merged:
			if !ok {
				return nil
			}
			if !update.B {
				continue
			}
			m.recomputeAll(ctx, update.A)
		}
	}
}

func (m *Manager) recomputeAll(ctx context.Context, snap *clustering.Snapshot) {
	if !m.isLeader() {
		return
	}

	m.mu.Lock()
	stale := revisionarr.Compare(snap.Revision, m.lastRevision) <= 0 && m.lastRevision != nil
	if !stale {
		m.lastRevision = snap.Revision
	}
	m.mu.Unlock()
	if stale {
		return
	}

	logIDs := snap.LogGroupIDs()

	m.mu.Lock()
	for id := range m.trackedLogIDs {
		logIDs = append(logIDs, id)
	}
	m.mu.Unlock()

	for _, logID := range sliceutils.RemoveDuplicates(logIDs) {
		m.recomputeOne(ctx, snap, logID)
	}
}

func (m *Manager) recomputeOne(ctx context.Context, snap *clustering.Snapshot, logID string) {
	m.mu.Lock()
	previous := m.lastStorageSet[logID]
	m.mu.Unlock()

	seed := snapshotSeed(snap, logID)

	start := time.Now()
	decision := m.selector.Select(snap, logID, previous, nodeset.Options{RNGSeed: &seed})
	if m.metrics != nil {
		m.metrics.SelectDuration.Record(ctx, time.Since(start).Seconds())
		m.metrics.Decisions.Add(ctx, 1, otelmetric.WithAttributes(metrics.DecisionAttr(decision.Kind.String())))
	}

	switch decision.Kind {
	case nodeset.Keep:
		return
	case nodeset.NeedsChange:
		m.mu.Lock()
		m.lastStorageSet[logID] = decision.StorageSet
		m.mu.Unlock()
	case nodeset.Failed:
		m.logger.Warn("failed to select storage set",
			zap.String("logID", logID), zap.Error(decision.Err))
		if m.metrics != nil {
			m.metrics.Failures.Add(ctx, 1, otelmetric.WithAttributes(metrics.FailureAttr(errorKind(decision.Err))))
		}
	}

	select {
	case m.decisions <- LogDecision{LogID: logID, Decision: decision}:
	case <-ctx.Done():
	}
}

// snapshotSeed derives a stable rng seed from a snapshot's node content
// and a log group id, so that recomputing a log group whose eligible
// nodes are unchanged always redraws the same storage set instead of
// reshuffling it for no reason, even across a revision bump that
// touched an unrelated part of the cluster config.
func snapshotSeed(snap *clustering.Snapshot, logID string) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s", logID)
	for _, n := range snap.Nodes() {
		loc := "<nil>"
		if n.Location != nil {
			loc = n.Location.String()
		}
		fmt.Fprintf(h, "\x00%d:%s:%v:%g:%s", n.NodeIndex, n.Address, n.IncludeInNodesets, n.Weight, loc)
	}
	return int64(h.Sum64())
}

// errorKind maps a Select failure to its sentinel name for use as a
// low-cardinality metric label; unrecognized errors fall back to the
// catch-all sentinel's name.
func errorKind(err error) string {
	switch {
	case errors.Is(err, nodeset.ErrNotFound):
		return "ErrNotFound"
	case errors.Is(err, nodeset.ErrMissingLocation):
		return "ErrMissingLocation"
	case errors.Is(err, nodeset.ErrScopeNotSpecified):
		return "ErrScopeNotSpecified"
	case errors.Is(err, nodeset.ErrInvalidScope):
		return "ErrInvalidScope"
	case errors.Is(err, nodeset.ErrNotEnoughInDomain):
		return "ErrNotEnoughInDomain"
	case errors.Is(err, nodeset.ErrInvalidWeights):
		return "ErrInvalidWeights"
	default:
		return "ErrFailed"
	}
}
