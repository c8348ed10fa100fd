/*
Copyright 2023-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package metrics instruments the placement daemon with OpenTelemetry
// counters: a decisions counter labelled by Decision kind, a failure
// counter broken down by error kind, and a counter for planner-driven
// domain pruning.
package metrics

import (
	"sync"

	"github.com/couchbase/stellar-placement/internal/buildversion"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PlacementMetrics holds every counter the placement pipeline reports.
type PlacementMetrics struct {
	Decisions      metric.Int64Counter
	Failures       metric.Int64Counter
	DomainsPruned  metric.Int64Counter
	SelectDuration metric.Float64Histogram
}

var (
	placementMetrics     *PlacementMetrics
	placementMetricsLock sync.Mutex
)

// GetPlacementMetrics returns the process-wide PlacementMetrics,
// constructing it on first use.
func GetPlacementMetrics() *PlacementMetrics {
	placementMetricsLock.Lock()
	defer placementMetricsLock.Unlock()

	if placementMetrics != nil {
		return placementMetrics
	}

	placementMetrics = newPlacementMetrics()
	return placementMetrics
}

var buildVersion = buildversion.GetVersion("github.com/couchbase/stellar-placement")

func newPlacementMetrics() *PlacementMetrics {
	meter := otel.Meter(
		"com.couchbase.stellar-placement",
		metric.WithInstrumentationVersion(buildVersion))

	decisions, _ := meter.Int64Counter("placement_decisions_total")
	failures, _ := meter.Int64Counter("placement_failures_total")
	domainsPruned, _ := meter.Int64Counter("placement_domains_pruned_total")
	selectDuration, _ := meter.Float64Histogram("placement_select_duration_seconds")

	return &PlacementMetrics{
		Decisions:      decisions,
		Failures:       failures,
		DomainsPruned:  domainsPruned,
		SelectDuration: selectDuration,
	}
}

// DecisionAttr labels a decisions_total increment by its outcome kind.
func DecisionAttr(kind string) attribute.KeyValue {
	return attribute.String("decision", kind)
}

// FailureAttr labels a failures_total increment by the sentinel error
// kind that caused it (e.g. "ErrNotEnoughInDomain").
func FailureAttr(kind string) attribute.KeyValue {
	return attribute.String("error_kind", kind)
}
