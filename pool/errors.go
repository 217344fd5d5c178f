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

package pool

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	format = "pool: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrPoolTimeout is returned by Rent when the wait for a permit or an
	// idle connection exceeds the caller's timeout.
	ErrPoolTimeout = errors.New("pool: timed out waiting for a connection")

	// ErrCanceled is returned by Rent when ctx is done before a permit or
	// an idle connection becomes available.
	ErrCanceled = errors.New("pool: rental canceled")
)
