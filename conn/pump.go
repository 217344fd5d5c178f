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
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/packetd/rcore/internal/bufchain"
	"github.com/packetd/rcore/internal/bufpool"
	"github.com/packetd/rcore/internal/rescue"
	"github.com/packetd/rcore/metrics"
	"github.com/packetd/rcore/pipe"
)

const recvChunkHint = 4096

// runSendPump drains the send pipe and writes whatever has accumulated to
// the socket, in wire order, until the pipe is cancelled or completed.
func (c *Connection) runSendPump() {
	defer c.wg.Done()
	defer rescue.HandleCrash()

	r := c.sendPipe.Reader()
	for {
		seq, err := r.Read(c.pumpCtx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			c.fail(newTransportError(err))
			return
		}
		if seq.Empty() {
			continue
		}

		n, werr := writeSequenceToSocket(c.netConn, seq)
		if n > 0 {
			metrics.PumpBytesTotal.WithLabelValues(c.cfg.Name, "send").Add(float64(n))
		}
		if werr != nil {
			c.fail(newTransportError(werr))
			return
		}
		r.AdvanceTo(seq.Sub(0, n).End())
	}
}

// writeSequenceToSocket writes seq to conn in one call: a single Write
// when the sequence is backed by one segment, or one vectored net.Buffers
// write when it spans several, so a command that straddled two pipe
// chunks does not cost two separate syscalls.
func writeSequenceToSocket(conn net.Conn, seq bufchain.Sequence) (int, error) {
	var bufs net.Buffers
	seq.ForEachSegment(func(b []byte) { bufs = append(bufs, b) })

	switch len(bufs) {
	case 0:
		return 0, nil
	case 1:
		return conn.Write(bufs[0])
	default:
		n64, err := bufs.WriteTo(conn)
		return int(n64), err
	}
}

// runRecvPump reads from the socket and feeds the receive pipe until the
// peer closes the connection or an error occurs.
func (c *Connection) runRecvPump() {
	defer c.wg.Done()
	defer rescue.HandleCrash()

	w := c.recvPipe.Writer()
	for {
		if c.cfg.AllocateReceiveBufferOnDemand {
			if err := waitReadable(c.netConn); err != nil {
				c.finishRecv(w, err)
				return
			}
		}

		buf, err := w.GetMemory(c.pumpCtx, recvChunkHint)
		if err != nil {
			return
		}

		n, rerr := c.netConn.Read(buf.B)
		if n > 0 {
			if err := w.Advance(buf, n); err != nil {
				return
			}
			metrics.PumpBytesTotal.WithLabelValues(c.cfg.Name, "recv").Add(float64(n))
		} else {
			bufpool.Put(buf)
		}

		if rerr != nil {
			c.finishRecv(w, rerr)
			return
		}
		w.Flush()
	}
}

func (c *Connection) finishRecv(w *pipe.Writer, err error) {
	if errors.Is(err, io.EOF) {
		w.Complete()
		return
	}
	w.Cancel(err)
	c.fail(newTransportError(err))
}

// waitReadable blocks until conn has at least one byte waiting to be read
// without consuming it, when conn exposes a raw file descriptor; on
// platforms or connection types where that is not possible it returns
// immediately and the pump falls through to its normal blocking Read.
func waitReadable(conn net.Conn) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil
	}

	var peekErr error
	opErr := raw.Read(func(fd uintptr) bool {
		var b [1]byte
		n, _, rerr := syscall.Recvfrom(int(fd), b[:], syscall.MSG_PEEK)
		if rerr == syscall.EAGAIN {
			return false
		}
		if rerr != nil {
			peekErr = rerr
			return true
		}
		if n == 0 {
			peekErr = io.EOF
		}
		return true
	})
	if opErr != nil {
		return opErr
	}
	return peekErr
}
