// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the Prometheus instrumentation emitted by the
// connection pool and its connections: occupancy, rental latency, decode
// failures, and raw pump byte counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/rcore/internal/appinfo"
)

var (
	// PoolSize reports the number of connections currently held by a
	// named pool, split between idle and rented.
	PoolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: appinfo.App,
			Subsystem: "pool",
			Name:      "size",
			Help:      "number of connections currently held by the pool",
		},
		[]string{"name", "state"},
	)

	// RentalsTotal counts rental attempts by outcome: "reused" (an idle
	// connection was handed out), "new" (a fresh, undialed connection was
	// constructed), "timeout", or "canceled".
	RentalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: appinfo.App,
			Subsystem: "pool",
			Name:      "rentals_total",
			Help:      "total connection rentals from the pool",
		},
		[]string{"name", "outcome"},
	)

	// RentalWaitSeconds measures how long a caller waited for the
	// pool's semaphore before obtaining (or failing to obtain) a
	// connection.
	RentalWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: appinfo.App,
			Subsystem: "pool",
			Name:      "rental_wait_seconds",
			Help:      "time spent waiting for a connection to become available",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"name"},
	)

	// DecodeErrorsTotal counts RESP protocol errors observed while
	// decoding replies, by connection name and error kind.
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: appinfo.App,
			Subsystem: "conn",
			Name:      "decode_errors_total",
			Help:      "total RESP decode errors observed on a connection",
		},
		[]string{"name", "kind"},
	)

	// PumpBytesTotal counts raw bytes moved by a connection's send and
	// receive pumps.
	PumpBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: appinfo.App,
			Subsystem: "conn",
			Name:      "pump_bytes_total",
			Help:      "total bytes moved across a connection's I/O pumps",
		},
		[]string{"name", "direction"},
	)
)
