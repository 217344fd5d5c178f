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
	"context"
	"strconv"
	"strings"

	"github.com/packetd/rcore/config"
	"github.com/packetd/rcore/resp"
)

// handshake performs the HELLO negotiation (or, on a server that refuses
// RESP3, the RESP2 AUTH/PING fallback) immediately after the socket is
// dialed, then selects the configured database. It runs while the
// Connection is in StateHandshaking, before Issue ever becomes legal.
func (c *Connection) handshake(ctx context.Context) error {
	if !c.cfg.PreferRESP3 {
		return c.handshakeResp2(ctx)
	}

	// The reply to HELLO 3 is itself a RESP3 Map, so the decoder must
	// already accept RESP3 kinds while reading it.
	c.protoVer.Store(3)
	v, err := c.roundTrip(ctx, helloArgs(c.cfg)...)
	if err != nil {
		return err
	}
	if v.Kind == resp.KindError {
		if strings.HasPrefix(string(v.Str), "NOPROTO") {
			return c.handshakeResp2(ctx)
		}
		return &HandshakeFailedError{ServerMessage: string(v.Str)}
	}

	return c.selectDB(ctx)
}

// helloArgs builds the argument list for "HELLO 3 [AUTH user pass]". The
// HELLO form of AUTH always takes both a username and a password; a
// config that only sets Password authenticates as the "default" user,
// matching Redis's own ACL convention.
func helloArgs(cfg *config.Configuration) [][]byte {
	args := [][]byte{[]byte("HELLO"), []byte("3")}
	if cfg.Password != "" {
		username := cfg.Username
		if username == "" {
			username = "default"
		}
		args = append(args, []byte("AUTH"), []byte(username), []byte(cfg.Password))
	}
	return args
}

func (c *Connection) handshakeResp2(ctx context.Context) error {
	c.protoVer.Store(2)

	if c.cfg.Password != "" {
		v, err := c.roundTrip(ctx, authArgs(c.cfg.Username, c.cfg.Password)...)
		if err != nil {
			return err
		}
		if v.Kind == resp.KindError {
			return &HandshakeFailedError{ServerMessage: string(v.Str)}
		}
	}

	v, err := c.roundTrip(ctx, []byte("PING"))
	if err != nil {
		return err
	}
	if v.Kind == resp.KindError {
		return &HandshakeFailedError{ServerMessage: string(v.Str)}
	}

	return c.selectDB(ctx)
}

func (c *Connection) selectDB(ctx context.Context) error {
	if c.cfg.DB == 0 {
		return nil
	}
	v, err := c.roundTrip(ctx, []byte("SELECT"), []byte(strconv.Itoa(c.cfg.DB)))
	if err != nil {
		return err
	}
	if v.Kind == resp.KindError {
		return &HandshakeFailedError{ServerMessage: string(v.Str)}
	}
	return nil
}

func authArgs(username, password string) [][]byte {
	if username == "" {
		return [][]byte{[]byte("AUTH"), []byte(password)}
	}
	return [][]byte{[]byte("AUTH"), []byte(username), []byte(password)}
}
