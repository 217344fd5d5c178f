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

import (
	"bytes"
	"context"

	"github.com/packetd/rcore/pipe"
)

// pipeSink adapts a pipe.Writer to the resp.Sink interface. It buffers
// everything an Encoder writes for one command in memory and only pushes
// it into the pipe's segmented buffer on Flush, matching the encoder's own
// contract of never committing a partial token.
type pipeSink struct {
	ctx context.Context
	w   *pipe.Writer
	buf bytes.Buffer
}

func newPipeSink(ctx context.Context, w *pipe.Writer) *pipeSink {
	return &pipeSink{ctx: ctx, w: w}
}

func (s *pipeSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Flush copies the buffered command into the pipe in as many chunks as the
// pipe's free capacity allows, back-pressuring on GetMemory when the pipe
// is full, then re-signals the reader.
func (s *pipeSink) Flush() error {
	data := s.buf.Bytes()
	for len(data) > 0 {
		mem, err := s.w.GetMemory(s.ctx, len(data))
		if err != nil {
			return err
		}
		n := copy(mem.B, data)
		if err := s.w.Advance(mem, n); err != nil {
			return err
		}
		data = data[n:]
	}
	s.buf.Reset()
	s.w.Flush()
	return nil
}
