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

// Decoder recognizes one RESP token at a time from a bufchain.Reader. It
// never blocks: if the chain does not yet hold a full token, TryRead rolls
// the reader's working position back to where it started and reports
// (Token{}, false, nil) so the caller can wait for more bytes and retry. A
// Decoder never commits the reader past a token boundary, so a caller that
// stops calling TryRead mid-value can always resume from the last commit.
type Decoder struct {
	r       *bufchain.Reader
	version int
}

// NewDecoder returns a Decoder reading from r, initially speaking RESP2.
func NewDecoder(r *bufchain.Reader) *Decoder {
	return &Decoder{r: r, version: 2}
}

// SetProtocolVersion records the RESP version negotiated by HELLO (2 or 3),
// gating acceptance of the RESP3-only Kinds.
func (d *Decoder) SetProtocolVersion(v int) { d.version = v }

// Reset rebinds the decoder to a new reader, preserving the negotiated
// protocol version.
func (d *Decoder) Reset(r *bufchain.Reader) { d.r = r }

// TryRead attempts to recognize the next token. found is false (with a nil
// error) when the chain does not yet hold a complete token; the caller
// should wait for more bytes to arrive and call TryRead again. For
// BulkString and VerbatimString headers, the token's payload (unless it is
// null) must be retrieved separately via TryReadBulkPayload before the next
// call to TryRead.
func (d *Decoder) TryRead() (tok Token, found bool, err error) {
	mark := d.r.Mark()

	line, ok := d.r.ReadLine()
	if !ok {
		d.r.ResetTo(mark)
		return Token{}, false, nil
	}

	raw := line.Bytes()
	if len(raw) < 3 || raw[len(raw)-1] != '\n' || raw[len(raw)-2] != '\r' {
		return Token{}, false, newProtocolError(KindUnterminatedLine, 0)
	}

	kind := Kind(raw[0])
	body := line.Sub(1, len(raw)-2)

	if kind.IsRESP3() && d.version < 3 {
		return Token{}, false, newProtocolError(KindUnexpectedControlByte, 0)
	}

	switch kind {
	case KindSimpleString, KindError, KindDouble, KindBigNumber:
		d.r.Commit()
		return Token{Kind: kind, Line: body}, true, nil

	case KindNull:
		d.r.Commit()
		return Token{Kind: kind}, true, nil

	case KindBoolean:
		b := body.Bytes()
		if len(b) != 1 || (b[0] != 't' && b[0] != 'f') {
			return Token{}, false, newProtocolError(KindInvalidIntegerDigit, 1)
		}
		d.r.Commit()
		return Token{Kind: kind, Line: body}, true, nil

	case KindInteger:
		v, perr := ParseInteger(body.Bytes())
		if perr != nil {
			return Token{}, false, perr
		}
		d.r.Commit()
		return Token{Kind: kind, Line: body, Length: v}, true, nil

	case KindBulkString, KindVerbatimString:
		n, perr := ParseLength(body.Bytes())
		if perr != nil {
			return Token{}, false, perr
		}
		if n != -1 && n > maxBulkStringLength {
			return Token{}, false, ErrArgumentOutOfRange
		}
		d.r.Commit()
		return Token{Kind: kind, Length: n}, true, nil

	case KindArray, KindMap, KindSet, KindPush:
		n, perr := ParseLength(body.Bytes())
		if perr != nil {
			return Token{}, false, perr
		}
		d.r.Commit()
		return Token{Kind: kind, Count: n}, true, nil

	default:
		return Token{}, false, newProtocolError(KindUnexpectedControlByte, 0)
	}
}

// TryReadBulkPayload reads the length-delimited payload that follows a
// BulkString (or VerbatimString encoded as one) header of the given
// declared length, including its trailing CRLF. Call it only after TryRead
// has returned a non-null BulkString/VerbatimString token. found is false
// when the chain does not yet hold the full payload plus CRLF.
func (d *Decoder) TryReadBulkPayload(length int64) (seq bufchain.Sequence, found bool, err error) {
	mark := d.r.Mark()

	payload, ok := d.r.ReadN(int(length))
	if !ok {
		d.r.ResetTo(mark)
		return bufchain.Sequence{}, false, nil
	}

	term, ok := d.r.ReadN(2)
	if !ok {
		d.r.ResetTo(mark)
		return bufchain.Sequence{}, false, nil
	}
	if !term.Equal(crlf) {
		return bufchain.Sequence{}, false, newProtocolError(KindUnterminatedBulkString, int(length))
	}

	d.r.Commit()
	return payload, true, nil
}
