// Copyright Contributors to the testsys project

package controller

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
)

var (
	// TestsTotal is a gauge tracking the number of Tests by namespace and
	// agent task state.
	TestsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "testsys_tests_total",
			Help: "Number of Tests by namespace and agent task state",
		},
		[]string{"namespace", "state"},
	)

	// ResourcesTotal is a gauge tracking the number of Resources by
	// namespace and creation task state.
	ResourcesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "testsys_resources_total",
			Help: "Number of Resources by namespace and creation task state",
		},
		[]string{"namespace", "state"},
	)

	// JobDurationSeconds is a histogram tracking how long a Test or
	// Resource agent Job ran before exiting, bucketed by role.
	JobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "testsys_job_duration_seconds",
			Help:    "Duration an agent Job ran before exiting, in seconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10s, 20s, 40s, ... 5120s (~1.4h)
		},
		[]string{"namespace", "role"},
	)

	// JobPathologiesTotal counts job pathologies detected by the
	// reconcilers (JobStart, JobExited, JobFailed, ...), per spec.md §7.
	JobPathologiesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testsys_job_pathologies_total",
			Help: "Count of job pathologies detected per namespace and pathology kind",
		},
		[]string{"namespace", "pathology"},
	)

	// ReconcileErrorsTotal counts reconciliation errors per controller
	// kind, distinct from agent-reported job pathologies.
	ReconcileErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testsys_reconcile_errors_total",
			Help: "Count of reconciliation errors by controller kind",
		},
		[]string{"kind"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		TestsTotal,
		ResourcesTotal,
		JobDurationSeconds,
		JobPathologiesTotal,
		ReconcileErrorsTotal,
	)
}

// taskStates enumerates every TaskState ResourcesTotal/TestsTotal report a
// series for. Objects not yet past InitializeStatus carry the zero TaskState
// value and are left out of all series until their status is initialized.
var taskStates = []v1alpha1.TaskState{
	v1alpha1.TaskStateUnknown,
	v1alpha1.TaskStateRunning,
	v1alpha1.TaskStateCompleted,
	v1alpha1.TaskStateError,
}

// recordResourcesTotal recomputes ResourcesTotal for namespace from the
// live Resource list, so the gauge reflects current counts per state
// instead of drifting via per-event increments/decrements.
func recordResourcesTotal(ctx context.Context, c client.Client, namespace string) {
	var list v1alpha1.ResourceList
	if err := c.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return
	}
	counts := map[v1alpha1.TaskState]float64{}
	for _, r := range list.Items {
		counts[r.Status.Creation.State]++
	}
	for _, state := range taskStates {
		ResourcesTotal.WithLabelValues(namespace, string(state)).Set(counts[state])
	}
}

// recordTestsTotal is the Test-side equivalent of recordResourcesTotal.
func recordTestsTotal(ctx context.Context, c client.Client, namespace string) {
	var list v1alpha1.TestList
	if err := c.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return
	}
	counts := map[v1alpha1.TaskState]float64{}
	for _, t := range list.Items {
		counts[t.Status.Agent.State]++
	}
	for _, state := range taskStates {
		TestsTotal.WithLabelValues(namespace, string(state)).Set(counts[state])
	}
}
