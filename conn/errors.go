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

package conn

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	format = "conn: " + format
	return errors.Errorf(format, args...)
}

// ErrConnectionBroken is returned by any operation attempted on a
// Connection that has already transitioned to Failed or Closed.
var ErrConnectionBroken = newError("connection is broken")

// ErrOperationInvalidInState is returned when a caller invokes an
// operation that is only legal from a particular State (for example
// Issue on a Connection that is still Connecting or Handshaking, or is
// Busy).
var ErrOperationInvalidInState = newError("operation invalid in current connection state")

// TransportError wraps a socket dial, read, or write failure.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return newError("transport error: %v", e.Cause).Error()
}

func (e *TransportError) Unwrap() error { return e.Cause }

func newTransportError(cause error) error {
	return &TransportError{Cause: cause}
}

// HandshakeFailedError reports that the server rejected the HELLO
// handshake (or the AUTH/SELECT that followed it) with an Error reply.
type HandshakeFailedError struct {
	ServerMessage string
}

func (e *HandshakeFailedError) Error() string {
	if e.ServerMessage == "" {
		return newError("handshake failed").Error()
	}
	return newError("handshake failed: %s", e.ServerMessage).Error()
}
