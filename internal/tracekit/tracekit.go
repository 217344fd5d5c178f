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

// Package tracekit extracts a caller's distributed-tracing identity from a
// context.Context so it can be attached to connection logs, without this
// module taking on a tracing SDK or exporter dependency of its own.
package tracekit

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// IDFromContext returns the hex-encoded trace ID of the span carried by
// ctx, if the caller's own instrumentation attached one via the standard
// otel context propagation. ok is false when ctx carries no span context,
// which is the common case for callers that never set up tracing.
func IDFromContext(ctx context.Context) (id string, ok bool) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return "", false
	}
	return sc.TraceID().String(), true
}
