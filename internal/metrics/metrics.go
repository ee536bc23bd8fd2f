/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package metrics exports builder counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bennypowers.dev/kiln/builder"
)

const namespace = "kiln"

// Metrics implements builder.Observer on top of a Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	ShapeChecks      *prometheus.CounterVec
	ReferenceEdges   *prometheus.CounterVec
	AffectedFiles    *prometheus.HistogramVec
	EmittedFiles     prometheus.Counter
	EmittedArtifacts prometheus.Counter
	ChangeBatches    prometheus.Counter
	BatchDuration    prometheus.Histogram
}

var _ builder.Observer = (*Metrics)(nil)

// New registers kiln's collectors, together with the Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ShapeChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "shape_checks_total",
			Help:      "Shape signature computations by outcome",
		}, []string{"changed"}),
		ReferenceEdges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "reference_edges_total",
			Help:      "Reference graph edges added and removed",
		}, []string{"change"}),
		AffectedFiles: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "affected_files",
			Help:      "Size of affected file sets",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"strategy", "shape_changed"}),
		EmittedFiles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emit",
			Name:      "files_total",
			Help:      "Files emitted",
		}),
		EmittedArtifacts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emit",
			Name:      "artifacts_total",
			Help:      "Output files written",
		}),
		ChangeBatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "batches_total",
			Help:      "Change batches applied",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "batch_duration_seconds",
			Help:      "Time to apply one change batch, emits included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ShapeChecked implements builder.Observer.
func (m *Metrics) ShapeChecked(changed bool) {
	m.ShapeChecks.WithLabelValues(boolLabel(changed)).Inc()
}

// ReferencesUpdated implements builder.Observer.
func (m *Metrics) ReferencesUpdated(added, removed int) {
	m.ReferenceEdges.WithLabelValues("added").Add(float64(added))
	m.ReferenceEdges.WithLabelValues("removed").Add(float64(removed))
}

// Affected implements builder.Observer.
func (m *Metrics) Affected(strategy string, count int, shapeChanged bool) {
	m.AffectedFiles.WithLabelValues(strategy, boolLabel(shapeChanged)).Observe(float64(count))
}

// Emitted implements builder.Observer.
func (m *Metrics) Emitted(_ builder.Path, artifacts int) {
	m.EmittedFiles.Inc()
	m.EmittedArtifacts.Add(float64(artifacts))
}

// BatchApplied records one applied change batch.
func (m *Metrics) BatchApplied(seconds float64) {
	m.ChangeBatches.Inc()
	m.BatchDuration.Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
