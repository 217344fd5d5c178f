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

// Package pool composes conn.Connection into a named, bounded pool: one
// pool per distinct Configuration.Name, lazily created on first Rent,
// handing out connections fairly and returning them to an idle queue
// instead of tearing them down on every round trip.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/packetd/rcore/config"
	"github.com/packetd/rcore/conn"
	"github.com/packetd/rcore/internal/fasttime"
	"github.com/packetd/rcore/logger"
	"github.com/packetd/rcore/metrics"
)

// token is what travels through a namedPool's semaphore channel: either an
// idle Connection ready for reuse (Ready, or still New if it was never
// dialed), or a bare slot (conn == nil) for which the receiver constructs
// a fresh, undialed Connection. idleSince is a
// fasttime.UnixTimestamp() snapshot taken when the connection was returned
// to idle, used to evict connections that sat unused past the
// Configuration's IdleTimeout.
type token struct {
	conn      *conn.Connection
	idleSince int64
}

// namedPool is the bounded multiset of connections behind one
// Configuration.Name. Its semaphore channel capacity never changes after
// creation and always equals Configuration.MaxConnections; every rented
// Connection holds exactly one token outside the channel, while idle
// Connections wait inside it as tokens.
type namedPool struct {
	name string
	cfg  *config.Configuration
	sem  chan token
}

func newNamedPool(cfg *config.Configuration) *namedPool {
	p := &namedPool{
		name: cfg.Name,
		cfg:  cfg,
		sem:  make(chan token, cfg.MaxConnections),
	}
	for i := 0; i < cfg.MaxConnections; i++ {
		p.sem <- token{}
	}
	return p
}

// rent blocks until a token becomes available (an idle connection or a
// free slot), bounded by timeout when timeout > 0, then returns a Rental
// wrapping either a reused idle connection or a fresh, undialed one.
func (p *namedPool) rent(ctx context.Context, timeout time.Duration) (*Rental, error) {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	select {
	case tok := <-p.sem:
		metrics.RentalWaitSeconds.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
		return p.acquire(ctx, tok)
	case <-waitCtx.Done():
		metrics.RentalWaitSeconds.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
		if ctx.Err() != nil {
			metrics.RentalsTotal.WithLabelValues(p.name, "canceled").Inc()
			return nil, ErrCanceled
		}
		metrics.RentalsTotal.WithLabelValues(p.name, "timeout").Inc()
		return nil, ErrPoolTimeout
	}
}

// acquire turns tok into a Rental. A fresh connection is handed back
// unconnected: dialing and the HELLO handshake happen lazily on its first
// Issue call, so a rental that never issues a command never pays for
// either. ctx is currently unused.
func (p *namedPool) acquire(_ context.Context, tok token) (*Rental, error) {
	c := tok.conn
	if c != nil && p.idleExpired(tok) {
		logger.Debugf("pool[%s]: discarding idle connection %s past idle timeout", p.name, c.ID())
		metrics.PoolSize.WithLabelValues(p.name, "idle").Dec()
		c.Dispose()
		c = nil
	}

	if c == nil {
		c = conn.New(p.cfg)
		metrics.RentalsTotal.WithLabelValues(p.name, "new").Inc()
	} else {
		metrics.RentalsTotal.WithLabelValues(p.name, "reused").Inc()
		metrics.PoolSize.WithLabelValues(p.name, "idle").Dec()
	}
	metrics.PoolSize.WithLabelValues(p.name, "rented").Inc()
	return &Rental{pool: p, conn: c}, nil
}

// idleExpired reports whether tok's connection has sat idle longer than
// the pool's configured IdleTimeout. A zero IdleTimeout disables eviction.
func (p *namedPool) idleExpired(tok token) bool {
	if p.cfg.IdleTimeout <= 0 {
		return false
	}
	return fasttime.UnixTimestamp()-tok.idleSince > int64(p.cfg.IdleTimeout/time.Second)
}

// release takes a Connection back from a finished Rental. A Ready
// connection, or one still in its initial New state (a rental that was
// closed without ever issuing a command, so Issue's lazy connect never
// ran), returns to the idle queue for reuse; anything else is discarded
// and its slot freed for a fresh dial.
func (p *namedPool) release(c *conn.Connection) {
	metrics.PoolSize.WithLabelValues(p.name, "rented").Dec()

	switch c.State() {
	case conn.StateReady, conn.StateNew:
		metrics.PoolSize.WithLabelValues(p.name, "idle").Inc()
		p.sem <- token{conn: c, idleSince: fasttime.UnixTimestamp()}
		return
	}

	logger.Debugf("pool[%s]: discarding connection %s in state %s", p.name, c.ID(), c.State())
	c.Dispose()
	p.sem <- token{}
}

// slot is the registry's CAS unit: the first goroutine to LoadOrStore a
// slot for a given name wins the right to build that name's namedPool;
// every other concurrent caller blocks on the same sync.Once instead of
// racing to build it twice.
type slot struct {
	once sync.Once
	pool *namedPool
	err  error
}

var registry sync.Map // string -> *slot

// getOrCreate returns the namedPool for cfg.Name, creating and freezing
// cfg on the first call for that name. Later calls for the same name
// reuse the pool built from whichever Configuration arrived first; cfg is
// ignored on the idempotent path, matching the "options are immutable
// after first use" contract.
func getOrCreate(cfg *config.Configuration) (*namedPool, error) {
	v, _ := registry.LoadOrStore(cfg.Name, &slot{})
	s := v.(*slot)
	s.once.Do(func() {
		if err := cfg.Freeze(); err != nil {
			s.err = err
			return
		}
		s.pool = newNamedPool(cfg)
	})
	if s.pool != nil {
		// Compare against a defaulted copy so an unset field (e.g. a
		// caller that never set MaxConnections) doesn't look like a
		// mismatch against the first registration's defaulted value.
		check := *cfg
		check.Freeze()
		if s.pool.cfg.Fingerprint() != check.Fingerprint() {
			logger.Warnf("pool[%s]: ignoring connection parameters that differ from the first registration for this name", cfg.Name)
		}
	}
	return s.pool, s.err
}

// Rent checks out a connection from the named pool identified by
// cfg.Name, creating that pool on first use. timeout bounds how long the
// call waits for a permit or an idle connection when the pool is at
// capacity; zero means wait indefinitely (still subject to ctx).
func Rent(ctx context.Context, cfg *config.Configuration, timeout time.Duration) (*Rental, error) {
	p, err := getOrCreate(cfg)
	if err != nil {
		return nil, err
	}
	return p.rent(ctx, timeout)
}
