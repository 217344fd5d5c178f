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

// Value is a complete, materialized RESP reply. Unlike Token, which names
// one wire-level unit, a Value is a full tree: a container's Elems/Pairs
// are themselves fully-formed Values, not further tokens to decode.
//
// Str holds owned bytes (copied out of the decode buffer) for every
// kind that carries a payload: SimpleString, Error, BulkString,
// VerbatimString, Double, and BigNumber are all kept in their wire text
// form and left for the caller to further parse if needed.
type Value struct {
	Kind  Kind
	Null  bool
	Str   []byte
	Int   int64
	Bool  bool
	Elems []Value
	Pairs []MapEntry
}

// MapEntry is one key/value pair of a RESP3 Map value.
type MapEntry struct {
	Key   Value
	Value Value
}

// frame tracks one container Value still awaiting children. remaining
// counts outstanding child Values (a Map frame counts key and value
// slots separately, so remaining is doubled at push time).
type frame struct {
	v         *Value
	remaining int64
	isMap     bool
	mapKey    *Value
}

// ValueReader assembles complete top-level RESP Values out of a Decoder's
// token stream, tracking nested container state (array-of-arrays,
// map-of-sets, and so on) across however many TryRead calls it takes for
// the bytes to arrive. It mirrors the teacher decoder's stack/register
// idiom, generalized from counting raw bytes to building an actual value
// tree.
type ValueReader struct {
	dec   *Decoder
	stack []frame

	pendingKind Kind
	pendingLen  int64
	hasPending  bool
}

// NewValueReader returns a ValueReader pulling tokens from dec.
func NewValueReader(dec *Decoder) *ValueReader {
	return &ValueReader{dec: dec}
}

// TryReadValue attempts to assemble the next complete top-level Value.
// found is false (with a nil error) when the underlying Decoder does not
// yet have enough bytes buffered; the caller should wait for more I/O and
// call TryReadValue again — all partially-assembled container state is
// preserved across calls.
func (vr *ValueReader) TryReadValue() (Value, bool, error) {
	for {
		if vr.hasPending {
			seq, found, err := vr.dec.TryReadBulkPayload(vr.pendingLen)
			if err != nil {
				return Value{}, false, err
			}
			if !found {
				return Value{}, false, nil
			}
			v := Value{Kind: vr.pendingKind, Str: append([]byte(nil), seq.Bytes()...)}
			vr.hasPending = false
			if done, result := vr.attach(v); done {
				return result, true, nil
			}
			continue
		}

		tok, found, err := vr.dec.TryRead()
		if err != nil {
			return Value{}, false, err
		}
		if !found {
			return Value{}, false, nil
		}

		v, isContainer, needsPayload := vr.valueFromToken(tok)

		if needsPayload {
			vr.pendingKind = tok.Kind
			vr.pendingLen = tok.Length
			vr.hasPending = true
			continue
		}

		if isContainer {
			if done, result := vr.pushContainer(tok, v); done {
				return result, true, nil
			}
			continue
		}

		if done, result := vr.attach(v); done {
			return result, true, nil
		}
	}
}

// valueFromToken converts a non-container, non-pending-payload token
// directly into its Value. For BulkString/VerbatimString tokens that carry
// a real (non-null) payload, needsPayload is true and the caller must defer
// construction until TryReadBulkPayload succeeds.
func (vr *ValueReader) valueFromToken(tok Token) (v Value, isContainer, needsPayload bool) {
	if tok.Kind.IsContainer() {
		return Value{}, true, false
	}

	switch tok.Kind {
	case KindBulkString, KindVerbatimString:
		if tok.IsNull() {
			return Value{Kind: tok.Kind, Null: true}, false, false
		}
		return Value{}, false, true

	case KindNull:
		return Value{Kind: tok.Kind, Null: true}, false, false

	case KindInteger:
		return Value{Kind: tok.Kind, Int: tok.Length}, false, false

	case KindBoolean:
		return Value{Kind: tok.Kind, Bool: tok.Line.Equal([]byte("t"))}, false, false

	default: // SimpleString, Error, Double, BigNumber
		return Value{Kind: tok.Kind, Str: append([]byte(nil), tok.Line.Bytes()...)}, false, false
	}
}

// pushContainer starts a new container frame, or short-circuits to an
// already-complete empty/null container Value.
func (vr *ValueReader) pushContainer(tok Token, _ Value) (done bool, result Value) {
	if tok.Count == -1 {
		return vr.attach(Value{Kind: tok.Kind, Null: true})
	}

	isMap := tok.Kind == KindMap
	remaining := tok.Count
	if isMap {
		remaining *= 2
	}

	v := &Value{Kind: tok.Kind}
	if isMap {
		v.Pairs = make([]MapEntry, 0, tok.Count)
	} else {
		v.Elems = make([]Value, 0, tok.Count)
	}

	if remaining == 0 {
		return vr.attach(*v)
	}

	vr.stack = append(vr.stack, frame{v: v, remaining: remaining, isMap: isMap})
	return false, Value{}
}

// attach places a completed child Value into its parent frame (or returns
// it as the finished top-level result if the stack is empty), then pops
// any ancestor frames that become complete as a result.
func (vr *ValueReader) attach(v Value) (done bool, result Value) {
	for {
		if len(vr.stack) == 0 {
			return true, v
		}

		top := &vr.stack[len(vr.stack)-1]
		if top.isMap {
			if top.mapKey == nil {
				k := v
				top.mapKey = &k
			} else {
				top.v.Pairs = append(top.v.Pairs, MapEntry{Key: *top.mapKey, Value: v})
				top.mapKey = nil
			}
		} else {
			top.v.Elems = append(top.v.Elems, v)
		}
		top.remaining--

		if top.remaining > 0 {
			return false, Value{}
		}

		completed := *top.v
		vr.stack = vr.stack[:len(vr.stack)-1]
		v = completed
	}
}
