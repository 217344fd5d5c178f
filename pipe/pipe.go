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

// Package pipe implements a bounded, single-producer/single-consumer byte
// pipe used to connect a connection's socket-facing pump goroutine to its
// RESP-decoding goroutine (or vice versa for writes) without an extra copy.
// The producer writes directly into pooled memory it is handed, and the
// consumer reads a zero-copy view over whatever has accumulated; back-
// pressure is enforced by bounding how far the producer may run ahead of
// the consumer's last acknowledged position.
package pipe

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/rcore/internal/bufchain"
	"github.com/packetd/rcore/internal/bufpool"
)

// ErrClosed is returned by Writer/Reader operations performed after the
// pipe has already been completed or cancelled.
var ErrClosed = errors.New("pipe: closed")

type pendingBuf struct {
	buf *bytebufferpool.ByteBuffer
	end int
}

// Pipe is the shared state between one Writer and one Reader. It must not
// be used by more than one goroutine on the write side or more than one on
// the read side at a time.
type Pipe struct {
	mu       sync.Mutex
	chain    bufchain.Chain
	consumed bufchain.Position
	pending  []pendingBuf

	capacity int

	done    bool
	doneErr error // nil on a clean Complete, non-nil on Cancel

	dataSignal  chan struct{}
	spaceSignal chan struct{}
}

// New returns a Pipe bounded to capacity unconsumed bytes.
func New(capacity int) *Pipe {
	return &Pipe{
		capacity:    capacity,
		dataSignal:  make(chan struct{}),
		spaceSignal: make(chan struct{}),
	}
}

// Writer returns the producer-side handle.
func (p *Pipe) Writer() *Writer { return &Writer{p: p} }

// Reader returns the consumer-side handle.
func (p *Pipe) Reader() *Reader { return &Reader{p: p} }

func (p *Pipe) unconsumedLocked() int {
	return p.chain.End().Global() - p.consumed.Global()
}

// broadcast wakes every goroutine currently waiting on ch by closing it and
// installing a fresh channel in its place, under the pipe's lock.
func broadcast(ch *chan struct{}) {
	close(*ch)
	*ch = make(chan struct{})
}

// Writer is the producer-side handle on a Pipe.
type Writer struct{ p *Pipe }

// GetMemory blocks until at least one byte of write capacity is free (or
// the pipe closes, or ctx is done), then returns a pooled buffer sized to
// at most hint bytes and at most the currently free capacity. The caller
// fills some prefix of the returned buffer and commits it with Advance.
func (w *Writer) GetMemory(ctx context.Context, hint int) (*bytebufferpool.ByteBuffer, error) {
	p := w.p
	p.mu.Lock()
	for {
		if p.done {
			err := p.doneErr
			p.mu.Unlock()
			if err == nil {
				err = ErrClosed
			}
			return nil, err
		}
		if room := p.capacity - p.unconsumedLocked(); room > 0 {
			if hint > room {
				hint = room
			}
			p.mu.Unlock()
			return bufpool.Get(hint), nil
		}
		ch := p.spaceSignal
		p.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		p.mu.Lock()
	}
}

// Advance commits the first n bytes of buf (previously returned by
// GetMemory) into the pipe, making them visible to the Reader. The pipe
// takes ownership of buf and returns it to the pool once the Reader has
// acknowledged past it via AdvanceTo.
func (w *Writer) Advance(buf *bytebufferpool.ByteBuffer, n int) error {
	p := w.p
	p.mu.Lock()
	if p.done {
		err := p.doneErr
		p.mu.Unlock()
		if err == nil {
			err = ErrClosed
		}
		return err
	}
	if n > 0 {
		p.chain.Append(buf.B[:n])
		p.pending = append(p.pending, pendingBuf{buf: buf, end: p.chain.End().Global()})
	}
	broadcast(&p.dataSignal)
	p.mu.Unlock()
	return nil
}

// Flush re-signals the Reader without committing new bytes, for a producer
// that wants to ensure a waiting consumer wakes promptly (for example after
// a socket read returned zero bytes but the connection is still alive).
func (w *Writer) Flush() {
	p := w.p
	p.mu.Lock()
	broadcast(&p.dataSignal)
	p.mu.Unlock()
}

// Complete marks the pipe as cleanly finished: the Reader will observe
// io.EOF once it has drained every byte already committed.
func (w *Writer) Complete() {
	w.closeWith(nil)
}

// Cancel aborts the pipe with err; both sides observe err from every
// subsequent operation.
func (w *Writer) Cancel(err error) {
	if err == nil {
		err = ErrClosed
	}
	w.closeWith(err)
}

func (w *Writer) closeWith(err error) {
	p := w.p
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.doneErr = err
	broadcast(&p.dataSignal)
	broadcast(&p.spaceSignal)
	p.mu.Unlock()
}

// Reader is the consumer-side handle on a Pipe.
type Reader struct{ p *Pipe }

// Read blocks until at least one unconsumed byte is available (or the pipe
// closes, or ctx is done) and returns a zero-copy Sequence spanning every
// byte committed so far that the Reader has not yet acknowledged via
// AdvanceTo. It returns io.EOF once Complete was called and every byte has
// been consumed, or the Cancel error if the pipe was aborted.
func (r *Reader) Read(ctx context.Context) (bufchain.Sequence, error) {
	p := r.p
	p.mu.Lock()
	for {
		if p.unconsumedLocked() > 0 {
			seq := p.chain.Slice(p.consumed, p.chain.End())
			p.mu.Unlock()
			return seq, nil
		}
		if p.done {
			err := p.doneErr
			p.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return bufchain.Sequence{}, err
		}
		ch := p.dataSignal
		p.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return bufchain.Sequence{}, ctx.Err()
		}
		p.mu.Lock()
	}
}

// ReadMore blocks until the Reader's view would span more than minLen
// bytes (or the pipe closes, or ctx is done), then returns it exactly like
// Read. It is the primitive a decode loop uses to wait for fresh bytes
// after Read/ReadMore already returned minLen of them but they did not add
// up to a complete token: calling Read again would return the same
// Sequence immediately, since those bytes are still unconsumed.
func (r *Reader) ReadMore(ctx context.Context, minLen int) (bufchain.Sequence, error) {
	p := r.p
	p.mu.Lock()
	for {
		if p.unconsumedLocked() > minLen {
			seq := p.chain.Slice(p.consumed, p.chain.End())
			p.mu.Unlock()
			return seq, nil
		}
		if p.done {
			err := p.doneErr
			p.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return bufchain.Sequence{}, err
		}
		ch := p.dataSignal
		p.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return bufchain.Sequence{}, ctx.Err()
		}
		p.mu.Lock()
	}
}

// AdvanceTo acknowledges that the Reader no longer needs any byte before
// pos (a position previously obtained from a Sequence returned by Read via
// its owning Chain), releasing the underlying pooled buffers back to
// bufpool and freeing write capacity for the Writer.
func (r *Reader) AdvanceTo(pos bufchain.Position) {
	p := r.p
	p.mu.Lock()
	p.chain.DropBefore(pos)
	p.consumed = pos
	i := 0
	for i < len(p.pending) && p.pending[i].end <= pos.Global() {
		bufpool.Put(p.pending[i].buf)
		i++
	}
	p.pending = p.pending[i:]
	broadcast(&p.spaceSignal)
	p.mu.Unlock()
}

// Cancel aborts the pipe from the consumer side with err; the Writer's
// GetMemory/Advance calls will subsequently fail with err.
func (r *Reader) Cancel(err error) {
	w := Writer{p: r.p}
	w.Cancel(err)
}
