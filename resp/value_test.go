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

package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/rcore/internal/bufchain"
)

// readWhole feeds the entire input in one shot and returns the single
// assembled Value.
func readWhole(t *testing.T, in string) Value {
	t.Helper()
	var c bufchain.Chain
	c.Append([]byte(in))
	vr := NewValueReader(NewDecoder(bufchain.NewReader(&c)))
	v, found, err := vr.TryReadValue()
	require.NoError(t, err)
	require.True(t, found)
	return v
}

func TestValueReaderSimpleString(t *testing.T) {
	v := readWhole(t, "+OK\r\n")
	assert.Equal(t, KindSimpleString, v.Kind)
	assert.Equal(t, "OK", string(v.Str))
}

func TestValueReaderError(t *testing.T) {
	v := readWhole(t, "-ERR unknown command\r\n")
	assert.Equal(t, KindError, v.Kind)
	assert.Equal(t, "ERR unknown command", string(v.Str))
}

func TestValueReaderBulkString(t *testing.T) {
	v := readWhole(t, "$5\r\nhello\r\n")
	assert.Equal(t, KindBulkString, v.Kind)
	assert.False(t, v.Null)
	assert.Equal(t, "hello", string(v.Str))
}

func TestValueReaderNullBulkString(t *testing.T) {
	v := readWhole(t, "$-1\r\n")
	assert.True(t, v.Null)
}

func TestValueReaderEmptyArray(t *testing.T) {
	v := readWhole(t, "*0\r\n")
	assert.Equal(t, KindArray, v.Kind)
	assert.Empty(t, v.Elems)
}

func TestValueReaderNullArray(t *testing.T) {
	v := readWhole(t, "*-1\r\n")
	assert.True(t, v.Null)
}

func TestValueReaderFlatArray(t *testing.T) {
	v := readWhole(t, "*3\r\n:1\r\n:2\r\n:3\r\n")
	require.Len(t, v.Elems, 3)
	assert.Equal(t, int64(1), v.Elems[0].Int)
	assert.Equal(t, int64(2), v.Elems[1].Int)
	assert.Equal(t, int64(3), v.Elems[2].Int)
}

func TestValueReaderNestedArray(t *testing.T) {
	// *2\r\n *2\r\n :1\r\n :2\r\n $3\r\nfoo\r\n
	v := readWhole(t, "*2\r\n*2\r\n:1\r\n:2\r\n$3\r\nfoo\r\n")
	require.Len(t, v.Elems, 2)

	inner := v.Elems[0]
	assert.Equal(t, KindArray, inner.Kind)
	require.Len(t, inner.Elems, 2)
	assert.Equal(t, int64(1), inner.Elems[0].Int)
	assert.Equal(t, int64(2), inner.Elems[1].Int)

	assert.Equal(t, "foo", string(v.Elems[1].Str))
}

func TestValueReaderMap(t *testing.T) {
	var c bufchain.Chain
	c.Append([]byte("%2\r\n+first\r\n:1\r\n+second\r\n:2\r\n"))
	vr := NewValueReader(NewDecoder(bufchain.NewReader(&c)))
	vr.dec.SetProtocolVersion(3)

	v, found, err := vr.TryReadValue()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, KindMap, v.Kind)
	require.Len(t, v.Pairs, 2)
	assert.Equal(t, "first", string(v.Pairs[0].Key.Str))
	assert.Equal(t, int64(1), v.Pairs[0].Value.Int)
	assert.Equal(t, "second", string(v.Pairs[1].Key.Str))
	assert.Equal(t, int64(2), v.Pairs[1].Value.Int)
}

func TestValueReaderBoolean(t *testing.T) {
	var c bufchain.Chain
	c.Append([]byte("#f\r\n"))
	vr := NewValueReader(NewDecoder(bufchain.NewReader(&c)))
	vr.dec.SetProtocolVersion(3)

	v, found, err := vr.TryReadValue()
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, v.Bool)
}

// TestValueReaderFragmentedNestedValue proves a deeply nested reply
// assembles correctly when delivered one byte at a time, with container
// frame state surviving across many "need more data" rounds.
func TestValueReaderFragmentedNestedValue(t *testing.T) {
	whole := "*2\r\n$3\r\nfoo\r\n*2\r\n:7\r\n$3\r\nbar\r\n"

	var c bufchain.Chain
	vr := NewValueReader(NewDecoder(bufchain.NewReader(&c)))

	var got Value
	for i := 0; i < len(whole); i++ {
		c.Append([]byte{whole[i]})
		v, found, err := vr.TryReadValue()
		require.NoError(t, err)
		if found {
			got = v
			break
		}
	}

	require.Len(t, got.Elems, 2)
	assert.Equal(t, "foo", string(got.Elems[0].Str))
	inner := got.Elems[1]
	require.Len(t, inner.Elems, 2)
	assert.Equal(t, int64(7), inner.Elems[0].Int)
	assert.Equal(t, "bar", string(inner.Elems[1].Str))
}

func TestValueReaderPreservesOwnedBytesAfterChainReuse(t *testing.T) {
	var c bufchain.Chain
	buf := []byte("$3\r\nfoo\r\n")
	c.Append(buf)
	vr := NewValueReader(NewDecoder(bufchain.NewReader(&c)))

	v, found, err := vr.TryReadValue()
	require.NoError(t, err)
	require.True(t, found)

	// Mutate the original backing array the way a reused network buffer
	// would; the materialized Value must not observe it.
	copy(buf, "$3\r\nbaz\r\n")
	assert.Equal(t, "foo", string(v.Str))
}
