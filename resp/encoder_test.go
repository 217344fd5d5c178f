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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderWriteCommand(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)

	err := e.WriteCommand([]byte("SET"), []byte("foo"), []byte("bar"))
	require.NoError(t, err)

	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n", buf.String())
}

func TestEncoderWriteSimpleString(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.WriteSimpleString("OK"))
	assert.Equal(t, "+OK\r\n", buf.String())
}

func TestEncoderWriteSimpleStringRejectsNewline(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	err := e.WriteSimpleString("bad\r\nvalue")
	assert.Error(t, err)
}

func TestEncoderWriteInteger(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.WriteInteger(-42))
	assert.Equal(t, ":-42\r\n", buf.String())
}

func TestEncoderWriteArrayStartNull(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.WriteArrayStart(-1))
	assert.Equal(t, "*-1\r\n", buf.String())
}

func TestEncoderReset(t *testing.T) {
	var a, b bytes.Buffer
	e := NewEncoder(&a)
	require.NoError(t, e.WriteSimpleString("x"))
	e.Reset(&b)
	require.NoError(t, e.WriteSimpleString("y"))
	assert.Equal(t, "+x\r\n", a.String())
	assert.Equal(t, "+y\r\n", b.String())
}
