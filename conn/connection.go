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

// Package conn implements one Connection: a TCP socket paired with a send
// pipe and a receive pipe, the two background pumps that shuttle bytes
// between them, and the HELLO handshake performed the first time a fresh
// Connection is dialed. Package pool composes many Connections into a
// bounded, named pool.
package conn

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/packetd/rcore/config"
	"github.com/packetd/rcore/internal/bufchain"
	"github.com/packetd/rcore/internal/idset"
	"github.com/packetd/rcore/internal/tracekit"
	"github.com/packetd/rcore/logger"
	"github.com/packetd/rcore/metrics"
	"github.com/packetd/rcore/pipe"
	"github.com/packetd/rcore/resp"
)

// Connection owns one TCP socket and the send/receive pipe pair driving
// it. A Connection is created once per pool slot by New and is dialed at
// most once, by Connect (called directly or lazily by the first Issue);
// once Failed or Closed it must be discarded, never reused.
type Connection struct {
	id  string
	cfg *config.Configuration

	state atomic.Int32

	netConn net.Conn

	sendPipe *pipe.Pipe
	recvPipe *pipe.Pipe

	recvReader *pipe.Reader
	protoVer   atomic.Int32

	pumpCtx    context.Context
	pumpCancel context.CancelFunc
	wg         sync.WaitGroup

	disposeOnce sync.Once
}

// New returns a fresh, unconnected Connection bound to cfg. cfg must
// already be frozen (see config.Configuration.Freeze).
func New(cfg *config.Configuration) *Connection {
	c := &Connection{
		id:  idset.New(),
		cfg: cfg,
	}
	c.state.Store(int32(StateNew))
	c.protoVer.Store(2)
	return c
}

// ID returns the Connection's opaque identifier, stable for its lifetime.
func (c *Connection) ID() string { return c.id }

// State returns the Connection's current lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

// LocalAddr returns the local endpoint of the underlying socket, or nil
// before Connect succeeds.
func (c *Connection) LocalAddr() net.Addr {
	if c.netConn == nil {
		return nil
	}
	return c.netConn.LocalAddr()
}

// RemoteAddr returns the remote endpoint of the underlying socket, or nil
// before Connect succeeds.
func (c *Connection) RemoteAddr() net.Addr {
	if c.netConn == nil {
		return nil
	}
	return c.netConn.RemoteAddr()
}

func (c *Connection) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s {
		logger.Debugf("conn[%s] %s: %s -> %s", c.cfg.Name, c.id, old, s)
	}
}

func (c *Connection) compareAndSwapState(old, new State) bool {
	return c.state.CompareAndSwap(int32(old), int32(new))
}

// Connect resolves cfg's endpoint (redone on every call, never cached, so
// DNS changes for a name endpoint are picked up by the next reconnect),
// dials it, applies NoDelay, starts the send/receive pumps, and performs
// the HELLO handshake. It is only legal to call once, on a New Connection.
func (c *Connection) Connect(ctx context.Context) error {
	if !c.compareAndSwapState(StateNew, StateConnecting) {
		return ErrOperationInvalidInState
	}

	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	netConn, err := dialer.DialContext(ctx, c.cfg.Network, c.cfg.Address)
	if err != nil {
		c.setState(StateFailed)
		return newTransportError(err)
	}
	if tcpConn, ok := netConn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(c.cfg.NoDelay)
	}
	c.netConn = netConn

	c.sendPipe = pipe.New(c.cfg.PipeCapacity)
	c.recvPipe = pipe.New(c.cfg.PipeCapacity)
	c.recvReader = c.recvPipe.Reader()

	c.pumpCtx, c.pumpCancel = context.WithCancel(context.Background())
	c.wg.Add(2)
	go c.runSendPump()
	go c.runRecvPump()

	c.setState(StateHandshaking)
	if err := c.handshake(ctx); err != nil {
		c.fail(err)
		return err
	}

	c.setState(StateReady)
	return nil
}

// Issue writes one RESP command (already split into its arguments) and
// returns the single reply Value the server sends back. It is only legal
// to call on a Ready or New Connection; the Connection is
// single-outstanding, so concurrent callers must not share one Connection
// without external serialization (the pool hands each rental its own
// Connection for exactly this reason). A New Connection (the pool hands
// out fresh connections undialed — see pool.acquire) is connected lazily
// on this first call, so a rental that never issues a command never pays
// for a dial or handshake.
func (c *Connection) Issue(ctx context.Context, args ...[]byte) (resp.Value, error) {
	if c.State() == StateNew {
		if err := c.Connect(ctx); err != nil {
			return resp.Value{}, err
		}
	}

	if !c.compareAndSwapState(StateReady, StateBusy) {
		switch c.State() {
		case StateFailed, StateClosed:
			return resp.Value{}, ErrConnectionBroken
		default:
			return resp.Value{}, ErrOperationInvalidInState
		}
	}

	if traceID, ok := tracekit.IDFromContext(ctx); ok {
		logger.Debugf("conn[%s]: issue trace=%s", c.id, traceID)
	}

	v, err := c.roundTrip(ctx, args...)
	if err != nil {
		c.fail(err)
		return resp.Value{}, err
	}

	c.setState(StateReady)
	return v, nil
}

// roundTrip writes args as one command and reads back exactly one reply
// Value. Unlike Issue it performs no state-machine guard, since it is also
// used from the Handshaking state.
func (c *Connection) roundTrip(ctx context.Context, args ...[]byte) (resp.Value, error) {
	writeCtx := ctx
	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}
	if err := c.writeCommand(writeCtx, args...); err != nil {
		return resp.Value{}, err
	}

	readCtx := ctx
	if c.cfg.ReadTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, c.cfg.ReadTimeout)
		defer cancel()
	}
	return c.readReply(readCtx)
}

func (c *Connection) writeCommand(ctx context.Context, args ...[]byte) error {
	sink := newPipeSink(ctx, c.sendPipe.Writer())
	enc := resp.NewEncoder(sink)
	if err := enc.WriteCommand(args...); err != nil {
		return err
	}
	return enc.Flush()
}

// readReply decodes exactly one top-level RESP Value off the receive
// pipe, appending newly-arrived bytes into a scratch bufchain.Chain as
// they show up and releasing them from the pipe only once a whole Value
// has been recognized (the decoder's token-boundary-atomic contract,
// lifted to the Value level).
func (c *Connection) readReply(ctx context.Context) (resp.Value, error) {
	var chain bufchain.Chain
	r := bufchain.NewReader(&chain)
	dec := resp.NewDecoder(r)
	dec.SetProtocolVersion(int(c.protoVer.Load()))
	vr := resp.NewValueReader(dec)

	seq, err := c.recvReader.Read(ctx)
	if err != nil {
		return resp.Value{}, classifyReadErr(err)
	}

	appended := 0
	for {
		if seq.Len() > appended {
			delta := seq.Sub(appended, seq.Len())
			delta.ForEachSegment(func(b []byte) { chain.Append(b) })
			appended = seq.Len()
		}

		v, found, derr := vr.TryReadValue()
		if derr != nil {
			metrics.DecodeErrorsTotal.WithLabelValues(c.cfg.Name, errKind(derr)).Inc()
			return resp.Value{}, derr
		}
		if found {
			c.recvReader.AdvanceTo(seq.Sub(0, r.CommittedPos().Global()).End())
			return v, nil
		}

		seq, err = c.recvReader.ReadMore(ctx, appended)
		if err != nil {
			return resp.Value{}, classifyReadErr(err)
		}
	}
}

func classifyReadErr(err error) error {
	if pe, ok := err.(*resp.ProtocolError); ok {
		return pe
	}
	if errors.Is(err, resp.ErrArgumentOutOfRange) {
		return err
	}
	return newTransportError(err)
}

func errKind(err error) string {
	if pe, ok := err.(*resp.ProtocolError); ok {
		return string(pe.Kind)
	}
	if errors.Is(err, resp.ErrArgumentOutOfRange) {
		return "ArgumentOutOfRange"
	}
	return "unknown"
}

// fail transitions the Connection to Failed (unless it is already Failed
// or Closed) and tears down its sockets and pumps. A Failed Connection
// must never be reused; the pool discards it instead of returning it to
// the idle queue.
func (c *Connection) fail(err error) {
	for {
		old := c.State()
		if old == StateFailed || old == StateClosed {
			return
		}
		if c.compareAndSwapState(old, StateFailed) {
			logger.Warnf("conn[%s] %s: failed: %v", c.cfg.Name, c.id, err)
			c.teardown()
			return
		}
	}
}

// teardown cancels the pumps and closes the socket, without touching
// State. Safe to call more than once.
func (c *Connection) teardown() {
	c.disposeOnce.Do(func() {
		if c.pumpCancel != nil {
			c.pumpCancel()
		}
		if c.netConn != nil {
			_ = c.netConn.Close()
		}
		if c.sendPipe != nil {
			c.sendPipe.Writer().Cancel(ErrConnectionBroken)
		}
		if c.recvPipe != nil {
			c.recvPipe.Writer().Cancel(ErrConnectionBroken)
		}
		c.wg.Wait()
	})
}

// Dispose closes the socket, cancels both pumps, and marks the Connection
// Closed. It is idempotent and safe to call regardless of current state.
func (c *Connection) Dispose() {
	c.setState(StateClosed)
	c.teardown()
}
