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
	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	format = "resp: " + format
	return errors.Errorf(format, args...)
}

// ProtocolErrorKind classifies a decoding failure.
type ProtocolErrorKind string

const (
	KindUnexpectedControlByte  ProtocolErrorKind = "UnexpectedControlByte"
	KindUnterminatedLine       ProtocolErrorKind = "UnterminatedLine"
	KindUnterminatedBulkString ProtocolErrorKind = "UnterminatedBulkString"
	KindInvalidIntegerDigit    ProtocolErrorKind = "InvalidIntegerDigit"
	KindIntegerOverflow        ProtocolErrorKind = "IntegerOverflow"
	KindLengthOutOfRange       ProtocolErrorKind = "LengthOutOfRange"
	KindUnexpectedNull         ProtocolErrorKind = "UnexpectedNull"
)

// ProtocolError reports a malformed RESP frame. ByteOffset locates the
// offending byte within the unit being parsed: the token line for framing
// errors, the digit run for integer and length errors, and the payload for
// a bulk string's missing terminator. Error omits it when it is negative.
type ProtocolError struct {
	Kind       ProtocolErrorKind
	ByteOffset int
}

func (e *ProtocolError) Error() string {
	if e.ByteOffset >= 0 {
		return errors.Errorf("resp: protocol error %s at offset %d", e.Kind, e.ByteOffset).Error()
	}
	return errors.Errorf("resp: protocol error %s", e.Kind).Error()
}

func newProtocolError(kind ProtocolErrorKind, offset int) error {
	return &ProtocolError{Kind: kind, ByteOffset: offset}
}

// EncodingErrorKind classifies an encoder validation failure.
type EncodingErrorKind string

const (
	KindSimpleStringContainsNewline EncodingErrorKind = "SimpleStringContainsNewline"
	KindBulkStringTooLarge          EncodingErrorKind = "BulkStringTooLarge"
	KindArrayLengthInvalid          EncodingErrorKind = "ArrayLengthInvalid"
)

// ProtocolEncodingError reports that the encoder was asked to write a value
// that cannot be represented on the wire.
type ProtocolEncodingError struct {
	Kind EncodingErrorKind
}

func (e *ProtocolEncodingError) Error() string {
	return errors.Errorf("resp: encoding error %s", e.Kind).Error()
}

func newEncodingError(kind EncodingErrorKind) error {
	return &ProtocolEncodingError{Kind: kind}
}

// ErrArgumentOutOfRange is returned when a caller-supplied argument (e.g. a
// bulk string length) falls outside the protocol's legal range.
var ErrArgumentOutOfRange = newError("argument out of range")
