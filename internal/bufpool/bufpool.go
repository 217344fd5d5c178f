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

// Package bufpool hands out pooled byte buffers sized to a connection's
// read/write chunk size, so a Pipe's steady-state operation does not churn
// the allocator once warmed up.
package bufpool

import "github.com/valyala/bytebufferpool"

var pool bytebufferpool.Pool

// Get returns a pooled buffer grown to exactly size bytes, ready to be
// handed to a socket Read/Write call. Its contents are unspecified.
func Get(size int) *bytebufferpool.ByteBuffer {
	buf := pool.Get()
	if cap(buf.B) < size {
		buf.B = make([]byte, size)
	} else {
		buf.B = buf.B[:size]
	}
	return buf
}

// Put returns buf to the pool. Callers must not retain a reference to
// buf.B (or any slice of it) after calling Put, since DropBefore may not
// yet have released every chain segment aliasing it — the pipe's AdvanceTo
// contract is what actually governs reuse safety, not this pool.
func Put(buf *bytebufferpool.ByteBuffer) {
	pool.Put(buf)
}
