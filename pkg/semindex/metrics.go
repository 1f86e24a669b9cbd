// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semindex

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the indexing pipeline. Registered against
// the default registry so a CLI command only needs to mount
// promhttp.Handler() to expose these; see cmd/semindex's --metrics-addr
// flag.
var (
	filesIndexedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "semindex",
		Name:      "files_indexed_total",
		Help:      "Files processed by the indexing pipeline, by language and outcome.",
	}, []string{"language", "outcome"})

	indexPhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "semindex",
		Name:      "phase_duration_seconds",
		Help:      "Wall-clock duration of each orchestrator phase.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})

	symbolsIndexedTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "semindex",
		Name:      "symbols_indexed",
		Help:      "Total symbols discovered in the most recently completed run.",
	})

	recursiveChainsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "semindex",
		Name:      "recursive_call_chains",
		Help:      "Recursive call chains found in the most recently completed run.",
	})
)

// observePhase records phase's elapsed duration, already computed in
// seconds by the caller, against indexPhaseDuration.
func observePhase(phase string, seconds float64) {
	indexPhaseDuration.WithLabelValues(phase).Observe(seconds)
}
