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

package pool

import (
	"context"
	"sync"

	"github.com/packetd/rcore/conn"
	"github.com/packetd/rcore/resp"
)

// Rental is an exclusive loan of one pooled Connection. It must be closed
// exactly once; Close returns the underlying Connection to its pool's idle
// queue when it is still healthy, or discards it and frees its slot for a
// fresh dial otherwise.
type Rental struct {
	pool *namedPool
	conn *conn.Connection

	closeOnce sync.Once
}

// Issue writes one RESP command on the rental's Connection and returns the
// single reply Value the server sends back. See conn.Connection.Issue for
// the single-outstanding-command contract this forwards to.
func (r *Rental) Issue(ctx context.Context, args ...[]byte) (resp.Value, error) {
	return r.conn.Issue(ctx, args...)
}

// Connection returns the rental's underlying Connection, for callers that
// need its ID, State, or address accessors.
func (r *Rental) Connection() *conn.Connection { return r.conn }

// Close releases the rental back to its pool. It is safe to call more
// than once; only the first call has an effect.
func (r *Rental) Close() error {
	r.closeOnce.Do(func() {
		r.pool.release(r.conn)
	})
	return nil
}
