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

package bufchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadLineAcrossSegments(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{name: "SingleSegment", parts: []string{"+OK\r\n"}, want: "+OK\r\n"},
		{name: "SplitOnTerminator", parts: []string{"+OK\r", "\n"}, want: "+OK\r\n"},
		{name: "ByteAtATime", parts: []string{"+", "O", "K", "\r", "\n"}, want: "+OK\r\n"},
		{name: "MultipleSegmentsBeforeCRLF", parts: []string{"+He", "llo,", " Wor", "ld\r\n"}, want: "+Hello, World\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Chain
			r := NewReader(&c)

			var line Sequence
			var ok bool
			for _, p := range tt.parts {
				c.Append([]byte(p))
				line, ok = r.ReadLine()
				if ok {
					break
				}
			}
			assert.True(t, ok)
			assert.Equal(t, tt.want, string(line.Bytes()))
			r.Commit()
			assert.Equal(t, len(tt.want), r.CommittedPos().Global())
		})
	}
}

func TestReadLineNeedsMoreDataDoesNotAdvance(t *testing.T) {
	var c Chain
	r := NewReader(&c)

	c.Append([]byte("+OK"))
	mark := r.Mark()
	_, ok := r.ReadLine()
	assert.False(t, ok)
	r.ResetTo(mark)

	c.Append([]byte("\r\n"))
	line, ok := r.ReadLine()
	assert.True(t, ok)
	assert.Equal(t, "+OK\r\n", string(line.Bytes()))
}

func TestReadNAcrossSegments(t *testing.T) {
	var c Chain
	c.Append([]byte("abc"))
	c.Append([]byte("def"))
	c.Append([]byte("gh"))

	r := NewReader(&c)
	seq, ok := r.ReadN(8)
	assert.True(t, ok)
	assert.Equal(t, "abcdefgh", string(seq.Bytes()))

	b, ok := seq.ByteAt(3)
	assert.True(t, ok)
	assert.Equal(t, byte('d'), b)

	_, ok = seq.ByteAt(8)
	assert.False(t, ok)
}

func TestReadNInsufficientBytesLeavesPositionUntouched(t *testing.T) {
	var c Chain
	c.Append([]byte("abc"))

	r := NewReader(&c)
	mark := r.Mark()
	_, ok := r.ReadN(5)
	assert.False(t, ok)
	assert.Equal(t, mark, r.Mark())
}

func TestDropBeforeReleasesConsumedSegments(t *testing.T) {
	var c Chain
	c.Append([]byte("hello "))
	c.Append([]byte("world"))

	r := NewReader(&c)
	_, ok := r.ReadN(6)
	assert.True(t, ok)
	r.Commit()

	c.DropBefore(r.CommittedPos())
	assert.Equal(t, 11, c.Len())
	assert.Equal(t, "world", string(c.Slice(c.Start(), c.End()).Bytes()))
}

func TestSequenceForEachSegmentDoesNotCopy(t *testing.T) {
	var c Chain
	a := []byte("foo")
	b := []byte("bar")
	c.Append(a)
	c.Append(b)

	seq := c.Slice(c.Start(), c.End())
	var parts [][]byte
	seq.ForEachSegment(func(b []byte) { parts = append(parts, b) })
	assert.Len(t, parts, 2)
	assert.Same(t, &a[0], &parts[0][0])
	assert.Same(t, &b[0], &parts[1][0])
}
