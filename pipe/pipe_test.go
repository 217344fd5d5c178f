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

package pipe

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeWriteThenRead(t *testing.T) {
	p := New(64)
	w := p.Writer()
	r := p.Reader()
	ctx := context.Background()

	buf, err := w.GetMemory(ctx, 5)
	require.NoError(t, err)
	n := copy(buf.B, "hello")
	require.NoError(t, w.Advance(buf, n))

	seq, err := r.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(seq.Bytes()))
}

func TestPipeCompleteYieldsEOFAfterDrain(t *testing.T) {
	p := New(64)
	w := p.Writer()
	r := p.Reader()
	ctx := context.Background()

	buf, err := w.GetMemory(ctx, 3)
	require.NoError(t, err)
	n := copy(buf.B, "abc")
	require.NoError(t, w.Advance(buf, n))
	w.Complete()

	seq, err := r.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(seq.Bytes()))

	r.AdvanceTo(seq.End())
	_, err = r.Read(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPipeCancelPropagatesToWriter(t *testing.T) {
	p := New(64)
	w := p.Writer()
	r := p.Reader()
	ctx := context.Background()

	boom := assertErr("boom")
	r.Cancel(boom)

	_, err := w.GetMemory(ctx, 4)
	assert.ErrorIs(t, err, boom)
}

func TestPipeGetMemoryBlocksUntilSpaceFreed(t *testing.T) {
	p := New(4)
	w := p.Writer()
	r := p.Reader()
	ctx := context.Background()

	buf, err := w.GetMemory(ctx, 4)
	require.NoError(t, err)
	require.NoError(t, w.Advance(buf, 4))

	done := make(chan struct{})
	go func() {
		buf2, err := w.GetMemory(ctx, 4)
		require.NoError(t, err)
		require.NoError(t, w.Advance(buf2, 2))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("GetMemory should have blocked while pipe is full")
	case <-time.After(30 * time.Millisecond):
	}

	seq, err := r.Read(ctx)
	require.NoError(t, err)
	r.AdvanceTo(seq.End())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("GetMemory did not unblock after AdvanceTo freed space")
	}
}

func TestPipeReadRespectsContextCancellation(t *testing.T) {
	p := New(64)
	r := p.Reader()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Read(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
