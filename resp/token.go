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

import "github.com/packetd/rcore/internal/bufchain"

// Kind identifies the wire type of a decoded Token. The RESP2 set is the
// first group; RESP3 adds the remainder.
type Kind byte

const (
	KindSimpleString Kind = '+'
	KindError        Kind = '-'
	KindInteger      Kind = ':'
	KindBulkString   Kind = '$'
	KindArray        Kind = '*'

	KindMap            Kind = '%'
	KindSet            Kind = '~'
	KindPush           Kind = '>'
	KindDouble         Kind = ','
	KindBoolean        Kind = '#'
	KindBigNumber      Kind = '('
	KindVerbatimString Kind = '='
	KindNull           Kind = '_'
)

// IsContainer reports whether the Kind introduces a header whose payload is
// a count of further values rather than raw bytes.
func (k Kind) IsContainer() bool {
	switch k {
	case KindArray, KindMap, KindSet, KindPush:
		return true
	default:
		return false
	}
}

// IsRESP3 reports whether the Kind is only legal once a connection has
// negotiated protocol version 3 via HELLO.
func (k Kind) IsRESP3() bool {
	switch k {
	case KindMap, KindSet, KindPush, KindDouble, KindBoolean, KindBigNumber, KindVerbatimString, KindNull:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "SimpleString"
	case KindError:
		return "Error"
	case KindInteger:
		return "Integer"
	case KindBulkString:
		return "BulkString"
	case KindArray:
		return "Array"
	case KindMap:
		return "Map"
	case KindSet:
		return "Set"
	case KindPush:
		return "Push"
	case KindDouble:
		return "Double"
	case KindBoolean:
		return "Boolean"
	case KindBigNumber:
		return "BigNumber"
	case KindVerbatimString:
		return "VerbatimString"
	case KindNull:
		return "Null"
	default:
		return "Unknown"
	}
}

// Token is one recognized, token-boundary-atomic unit of RESP input: either
// a complete line-delimited scalar (SimpleString, Error, Integer, Boolean,
// Double, BigNumber, Null) or a header that announces the length of a
// payload to follow (BulkString, VerbatimString) or a count of child values
// to follow (the container kinds).
type Token struct {
	Kind Kind

	// Line is the raw payload of a line-delimited token, CRLF excluded.
	// Populated for SimpleString, Error, Integer, Boolean, Double, and
	// BigNumber. A VerbatimString header leaves it empty; its
	// format-prefixed body is read with TryReadBulkPayload like a bulk
	// string's.
	Line bufchain.Sequence

	// Length is the declared byte length for BulkString/VerbatimString
	// headers, or -1 for a null bulk string.
	Length int64

	// Count is the declared number of child values for a container
	// header, or -1 for a null array.
	Count int64
}

// IsNull reports whether the token represents RESP's null bulk string
// (RESP2 "$-1\r\n"), null array ("*-1\r\n"), or RESP3 null ("_\r\n").
func (t Token) IsNull() bool {
	if t.Kind == KindNull {
		return true
	}
	if t.Kind == KindBulkString || t.Kind == KindVerbatimString {
		return t.Length == -1
	}
	if t.Kind.IsContainer() {
		return t.Count == -1
	}
	return false
}
