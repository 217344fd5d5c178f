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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantAddr    string
		wantMaxConn int
		wantErr     bool
	}{
		{name: "bare endpoint", in: "127.0.0.1:6379", wantAddr: "127.0.0.1:6379", wantMaxConn: DefaultMaxConnections},
		{name: "endpoint plus MaxPoolSize", in: "127.0.0.1:6379,MaxPoolSize=5", wantAddr: "127.0.0.1:6379", wantMaxConn: 5},
		{name: "case-insensitive key", in: "127.0.0.1:6379,maxpoolsize=7", wantAddr: "127.0.0.1:6379", wantMaxConn: 7},
		{name: "unknown key ignored", in: "127.0.0.1:6379,Foo=bar", wantAddr: "127.0.0.1:6379", wantMaxConn: DefaultMaxConnections},
		{name: "multiple endpoints, first wins", in: "127.0.0.1:6379,127.0.0.1:6380", wantAddr: "127.0.0.1:6379", wantMaxConn: DefaultMaxConnections},
		{name: "no endpoint", in: "MaxPoolSize=5", wantErr: true},
		{name: "missing port", in: "127.0.0.1", wantErr: true},
		{name: "bad MaxPoolSize", in: "127.0.0.1:6379,MaxPoolSize=nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConnectionString("test", tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, cfg.Address)
			assert.Equal(t, tt.wantMaxConn, cfg.MaxConnections)
		})
	}
}

func TestFreezeAppliesDefaultsAndIsIdempotent(t *testing.T) {
	cfg := &Configuration{Name: "test", Address: "127.0.0.1:6379"}
	require.NoError(t, cfg.Freeze())

	assert.Equal(t, "tcp", cfg.Network)
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, DefaultMaxConnections, cfg.MaxConnections)
	assert.True(t, cfg.Frozen())

	cfg.MaxConnections = 999
	require.NoError(t, cfg.Freeze())
	assert.Equal(t, 999, cfg.MaxConnections, "Freeze must be a no-op once frozen")
}

func TestFreezeRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Configuration
	}{
		{name: "missing name", cfg: &Configuration{Address: "127.0.0.1:6379"}},
		{name: "missing address", cfg: &Configuration{Name: "test"}},
		{name: "bad network", cfg: &Configuration{Name: "test", Address: "127.0.0.1:6379", Network: "udp"}},
		{name: "bad tcp address", cfg: &Configuration{Name: "test", Address: "not-a-host-port", Network: "tcp"}},
		{name: "negative db", cfg: &Configuration{Name: "test", Address: "127.0.0.1:6379", DB: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Freeze())
		})
	}
}

func TestFreezeReportsAllValidationErrorsTogether(t *testing.T) {
	cfg := &Configuration{Network: "udp", DB: -1}
	err := cfg.Freeze()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "address is required")
	assert.Contains(t, msg, "unsupported network")
	assert.Contains(t, msg, "db must be non-negative")
}

func TestFingerprintDistinguishesConnectionParameters(t *testing.T) {
	base := New("test", "127.0.0.1:6379")
	require.NoError(t, base.Freeze())

	same := New("test", "127.0.0.1:6379")
	require.NoError(t, same.Freeze())
	assert.Equal(t, base.Fingerprint(), same.Fingerprint())

	different := New("test", "127.0.0.1:6380")
	require.NoError(t, different.Freeze())
	assert.NotEqual(t, base.Fingerprint(), different.Fingerprint())
}

func TestFromOptions(t *testing.T) {
	opts := map[string]any{
		"address":        "127.0.0.1:6379",
		"maxConnections": "12",
		"connectTimeout": "2s",
		"preferResp3":    true,
	}
	cfg, err := FromOptions("test", opts)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6379", cfg.Address)
	assert.Equal(t, 12, cfg.MaxConnections)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.True(t, cfg.PreferRESP3)
}

func TestNewAppliesDocumentedDefaults(t *testing.T) {
	cfg := New("test", "127.0.0.1:6379")
	assert.Equal(t, "tcp", cfg.Network)
	assert.True(t, cfg.PreferRESP3)
	assert.True(t, cfg.NoDelay)
	assert.True(t, cfg.AllocateReceiveBufferOnDemand)
	assert.Equal(t, DefaultMaxConnections, cfg.MaxConnections)
}
