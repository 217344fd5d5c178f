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
	"strconv"
)

// Sink is anything an Encoder can append wire bytes to. *bytebufferpool.ByteBuffer
// and *bytes.Buffer both satisfy it.
type Sink interface {
	Write(p []byte) (int, error)
}

// maxBulkStringLength bounds what WriteBulkString will accept: 512 MiB,
// the documented limit on a bulk string's declared length.
const maxBulkStringLength = 512 * 1024 * 1024

// Encoder serializes RESP values into a Sink. It is not safe for concurrent
// use; callers serialize one command (and its reply framing) per Encoder at
// a time, matching the per-connection send pump's ownership.
type Encoder struct {
	sink Sink

	// SkipValidation disables the bulk-string-length, simple-string-
	// newline, and array-length checks below, for callers (such as command pre-encoding at
	// startup) that already know their input is well-formed and want to
	// avoid the scan.
	SkipValidation bool

	scratch [24]byte
}

// NewEncoder returns an Encoder that writes to sink.
func NewEncoder(sink Sink) *Encoder {
	return &Encoder{sink: sink}
}

// Reset rebinds the encoder to a new sink, so a single Encoder can be
// pooled and reused across commands.
func (e *Encoder) Reset(sink Sink) { e.sink = sink }

func (e *Encoder) writeRaw(b []byte) error {
	_, err := e.sink.Write(b)
	return err
}

// WriteRaw writes pre-encoded RESP bytes verbatim. Used for pipelining a
// command whose wire form was computed once and cached.
func (e *Encoder) WriteRaw(b []byte) error {
	return e.writeRaw(b)
}

func (e *Encoder) writeCRLF() error {
	return e.writeRaw(crlf)
}

var crlf = []byte("\r\n")

func (e *Encoder) formatInt(v int64) []byte {
	return strconv.AppendInt(e.scratch[:0], v, 10)
}

// WriteSimpleString writes a RESP Simple String ("+OK\r\n"). s must not
// contain '\r' or '\n' unless SkipValidation is set.
func (e *Encoder) WriteSimpleString(s string) error {
	if !e.SkipValidation && (bytes.ContainsRune([]byte(s), '\r') || bytes.ContainsRune([]byte(s), '\n')) {
		return newEncodingError(KindSimpleStringContainsNewline)
	}
	if err := e.writeRaw([]byte{'+'}); err != nil {
		return err
	}
	if err := e.writeRaw([]byte(s)); err != nil {
		return err
	}
	return e.writeCRLF()
}

// WriteInteger writes a RESP Integer (":123\r\n").
func (e *Encoder) WriteInteger(v int64) error {
	if err := e.writeRaw([]byte{':'}); err != nil {
		return err
	}
	if err := e.writeRaw(e.formatInt(v)); err != nil {
		return err
	}
	return e.writeCRLF()
}

// WriteBulkString writes a RESP Bulk String header and payload
// ("$<len>\r\n<payload>\r\n").
func (e *Encoder) WriteBulkString(b []byte) error {
	if !e.SkipValidation && len(b) > maxBulkStringLength {
		return newEncodingError(KindBulkStringTooLarge)
	}
	if err := e.writeRaw([]byte{'$'}); err != nil {
		return err
	}
	if err := e.writeRaw(e.formatInt(int64(len(b)))); err != nil {
		return err
	}
	if err := e.writeCRLF(); err != nil {
		return err
	}
	if err := e.writeRaw(b); err != nil {
		return err
	}
	return e.writeCRLF()
}

// WriteBulkStringByte writes a Bulk String whose payload is a single byte,
// avoiding an allocation for the common one-byte-argument case.
func (e *Encoder) WriteBulkStringByte(b byte) error {
	var buf [1]byte
	buf[0] = b
	return e.WriteBulkString(buf[:])
}

// WriteArrayStart writes a RESP Array header ("*<n>\r\n"). The caller is
// responsible for following it with exactly n encoded values.
func (e *Encoder) WriteArrayStart(n int64) error {
	if !e.SkipValidation && n < -1 {
		return newEncodingError(KindArrayLengthInvalid)
	}
	if err := e.writeRaw([]byte{'*'}); err != nil {
		return err
	}
	if err := e.writeRaw(e.formatInt(n)); err != nil {
		return err
	}
	return e.writeCRLF()
}

// WriteCommand writes a complete RESP command: an array header sized to
// len(args) followed by each argument as a bulk string. This is the shape
// every Redis request takes on the wire, regardless of the command name.
func (e *Encoder) WriteCommand(args ...[]byte) error {
	if err := e.WriteArrayStart(int64(len(args))); err != nil {
		return err
	}
	for _, a := range args {
		if err := e.WriteBulkString(a); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying sink if it exposes a Flush method (for
// example a bufio.Writer-backed sink). Sinks without buffering, such as
// bytebufferpool.ByteBuffer, make this a no-op.
func (e *Encoder) Flush() error {
	type flusher interface {
		Flush() error
	}
	if f, ok := e.sink.(flusher); ok {
		return f.Flush()
	}
	return nil
}
