// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsDispatched tracks completed RPC dispatches by outcome.
	CallsDispatched = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calls",
			Name:      "dispatched_total",
			Help:      "Total number of RPC calls dispatched",
		},
		[]string{"service", "outcome"}, // ok, exception, rejected
	)

	// CallDuration tracks dispatch latency per service.
	CallDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "calls",
			Name:      "duration_seconds",
			Help:      "RPC call dispatch duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
		[]string{"service"},
	)

	// DelegateInvocations tracks reverse (server-to-client) delegate calls.
	DelegateInvocations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calls",
			Name:      "delegate_invocations_total",
			Help:      "Total number of reverse delegate invocations sent to clients",
		},
		[]string{"delegate_type"},
	)
)
