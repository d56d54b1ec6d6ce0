// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess  = "success"
	resultBlocked  = "blocked"
	resultWaiting  = "waiting"
	resultRejected = "rejected"
)

var (
	lifecycleEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nna_lifecycle_events_total",
			Help: "Lifecycle events handled, by event and result",
		},
		[]string{"event", "result"},
	)

	controllerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nna_controller_state",
			Help: "1 for the controller's current state, 0 for the others",
		},
		[]string{"state"},
	)

	reconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nna_reconcile_duration_seconds",
			Help:    "Time spent handling a lifecycle event as leader",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event"},
	)
)

func setStateGauge(current State) {
	for _, s := range States {
		v := 0.0
		if s == current {
			v = 1
		}
		controllerState.WithLabelValues(string(s)).Set(v)
	}
}
