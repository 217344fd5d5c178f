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

// Package config holds the Configuration record a connection or pool is
// built from, plus the three ways one gets populated: a connection
// string, a loose options map (decoded with mapstructure/cast the way the
// rest of this stack decodes untyped config), and a YAML file loaded
// through go-ucfg.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/rcore/confengine"
)

func newError(format string, args ...any) error {
	format = "config: " + format
	return errors.Errorf(format, args...)
}

const (
	DefaultPort           = 6379
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 3 * time.Second
	DefaultWriteTimeout   = 3 * time.Second
	DefaultIdleTimeout    = 5 * time.Minute
	DefaultMaxConnections = 20
	DefaultPipeCapacity   = 64 * 1024
)

// Configuration describes how to reach and manage connections to a single
// Redis server. A zero Configuration is not usable; build one with New or
// one of the Parse/Load helpers, which apply defaults, then call Freeze.
type Configuration struct {
	// Name identifies this configuration's connections in logs, metrics
	// labels, and the connection pool's registry key.
	Name string `config:"name" mapstructure:"name" json:"name"`

	// Network is "tcp" or "unix".
	Network string `config:"network" mapstructure:"network" json:"network"`
	// Address is "host:port" for Network "tcp", or a socket path for
	// Network "unix".
	Address string `config:"address" mapstructure:"address" json:"address"`

	Username string `config:"username" mapstructure:"username" json:"username,omitempty"`
	Password string `config:"password" mapstructure:"password" json:"-"`
	DB       int    `config:"db" mapstructure:"db" json:"db"`

	// PreferRESP3 requests protocol version 3 during the HELLO
	// handshake; the connection falls back to RESP2 on NOPROTO.
	PreferRESP3 bool `config:"preferResp3" mapstructure:"preferResp3" json:"preferResp3"`

	// NoDelay disables Nagle's algorithm on the underlying TCP socket.
	NoDelay bool `config:"noDelay" mapstructure:"noDelay" json:"noDelay"`

	// AllocateReceiveBufferOnDemand makes the receive pump perform a
	// zero-byte Read before it asks the receive pipe for memory, so no
	// buffer is pulled from the pool until the socket actually has data
	// waiting.
	AllocateReceiveBufferOnDemand bool `config:"allocateReceiveBufferOnDemand" mapstructure:"allocateReceiveBufferOnDemand" json:"allocateReceiveBufferOnDemand"`

	ConnectTimeout time.Duration `config:"connectTimeout" mapstructure:"connectTimeout" json:"connectTimeout"`
	ReadTimeout    time.Duration `config:"readTimeout" mapstructure:"readTimeout" json:"readTimeout"`
	WriteTimeout   time.Duration `config:"writeTimeout" mapstructure:"writeTimeout" json:"writeTimeout"`
	IdleTimeout    time.Duration `config:"idleTimeout" mapstructure:"idleTimeout" json:"idleTimeout"`

	// MaxConnections bounds how many connections a named pool will ever
	// hold concurrently rented out.
	MaxConnections int `config:"maxConnections" mapstructure:"maxConnections" json:"maxConnections"`

	// PipeCapacity bounds, in bytes, how far a connection's send or
	// receive pump may run ahead of its consumer before blocking.
	PipeCapacity int `config:"pipeCapacity" mapstructure:"pipeCapacity" json:"pipeCapacity"`

	frozen bool
}

// New returns a Configuration for address with every other field at its
// documented default.
func New(name, address string) *Configuration {
	return &Configuration{
		Name:                          name,
		Network:                       "tcp",
		Address:                       address,
		PreferRESP3:                   true,
		NoDelay:                       true,
		AllocateReceiveBufferOnDemand: true,
		ConnectTimeout:                DefaultConnectTimeout,
		ReadTimeout:                   DefaultReadTimeout,
		WriteTimeout:                  DefaultWriteTimeout,
		IdleTimeout:                   DefaultIdleTimeout,
		MaxConnections:                DefaultMaxConnections,
		PipeCapacity:                  DefaultPipeCapacity,
	}
}

// applyDefaults fills any zero-valued field that must not stay zero.
func (c *Configuration) applyDefaults() {
	if c.Network == "" {
		c.Network = "tcp"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.PipeCapacity <= 0 {
		c.PipeCapacity = DefaultPipeCapacity
	}
}

// Freeze validates the configuration and applies defaults to any field the
// caller left zero. It is idempotent; the pool calls it once per
// Configuration before the first connection is dialed, and later mutation
// of a frozen Configuration is a programming error the caller must avoid
// (Freeze does not defensively copy).
//
// All applicable validation errors are collected and returned together,
// rather than stopping at the first one, so a caller fixing a config by
// hand doesn't have to re-run Freeze once per mistake.
func (c *Configuration) Freeze() error {
	if c.frozen {
		return nil
	}
	c.applyDefaults()

	var errs *multierror.Error
	if c.Name == "" {
		errs = multierror.Append(errs, newError("name is required"))
	}
	if c.Address == "" {
		errs = multierror.Append(errs, newError("address is required"))
	}
	switch c.Network {
	case "tcp", "unix":
	default:
		errs = multierror.Append(errs, newError("unsupported network %q", c.Network))
	}
	if c.Network == "tcp" && c.Address != "" {
		if _, _, err := net.SplitHostPort(c.Address); err != nil {
			errs = multierror.Append(errs, newError("invalid tcp address %q: %v", c.Address, err))
		}
	}
	if c.DB < 0 {
		errs = multierror.Append(errs, newError("db must be non-negative, got %d", c.DB))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}

	c.frozen = true
	return nil
}

// Frozen reports whether Freeze has already succeeded on c.
func (c *Configuration) Frozen() bool { return c.frozen }

var fingerprintSep = []byte{'\xff'}

// Fingerprint returns a stable hash of the connection-identifying fields:
// Network, Address, Username, DB, MaxConnections, and PreferRESP3 (Name,
// Password, timeouts, and the socket/pipe tuning fields are not part of
// it). The pool registry uses it to detect two
// callers registering the same pool Name with materially different
// connection parameters.
func (c *Configuration) Fingerprint() uint64 {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(c.Network)
	buf.Write(fingerprintSep)
	buf.WriteString(c.Address)
	buf.Write(fingerprintSep)
	buf.WriteString(c.Username)
	buf.Write(fingerprintSep)
	buf.WriteString(strconv.Itoa(c.DB))
	buf.Write(fingerprintSep)
	buf.WriteString(strconv.Itoa(c.MaxConnections))
	buf.Write(fingerprintSep)
	buf.WriteString(strconv.FormatBool(c.PreferRESP3))

	return xxhash.Sum64(buf.Bytes())
}

// ParseConnectionString parses a comma-separated list of items, each
// either a bare "<host-or-ip>:<port>" endpoint or a case-insensitive
// "<Key>=<value>" pair. The first endpoint found becomes the
// Configuration's Address; any further endpoints are accepted but have no
// effect on core behavior, matching a multi-endpoint string preserved for
// future use. The only recognized key is MaxPoolSize; unknown keys are
// likewise accepted and ignored rather than rejected. name becomes the
// Configuration's Name. Credentials and database selection are not part
// of this grammar; set Configuration.Username/Password/DB directly, or
// use FromOptions/LoadFile, when those are needed.
func ParseConnectionString(name, raw string) (*Configuration, error) {
	cfg := New(name, "")

	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		if eq := strings.IndexByte(item, '='); eq >= 0 {
			key, val := item[:eq], item[eq+1:]
			if strings.EqualFold(key, "MaxPoolSize") {
				n, err := strconv.Atoi(val)
				if err != nil {
					return nil, newError("invalid MaxPoolSize %q: %v", val, err)
				}
				cfg.MaxConnections = n
			}
			continue
		}

		if cfg.Address == "" {
			if _, _, err := net.SplitHostPort(item); err != nil {
				return nil, newError("invalid endpoint %q: %v", item, err)
			}
			cfg.Address = item
		}
	}

	if cfg.Address == "" {
		return nil, newError("connection string %q has no endpoint", raw)
	}
	return cfg, nil
}

// FromOptions decodes a loose, JSON/YAML-shaped options map into a
// Configuration using mapstructure, coercing mismatched scalar types (e.g.
// a YAML-parsed string "5" for an int field) with cast the same way the
// rest of this stack tolerates loosely-typed input.
func FromOptions(name string, opts map[string]any) (*Configuration, error) {
	cfg := New(name, "")

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, newError("building decoder: %v", err)
	}
	if err := decoder.Decode(opts); err != nil {
		return nil, newError("decoding options: %v", err)
	}

	if v, ok := opts["maxConnections"]; ok {
		n, castErr := cast.ToIntE(v)
		if castErr != nil {
			return nil, newError("invalid maxConnections: %v", castErr)
		}
		cfg.MaxConnections = n
	}

	return cfg, nil
}

// LoadFile loads a YAML configuration document through go-ucfg and decodes
// the sub-tree named by key (or the document root if key is empty) into a
// Configuration.
func LoadFile(name, path, key string) (*Configuration, error) {
	doc, err := confengine.LoadConfigPath(path)
	if err != nil {
		return nil, newError("loading %s: %v", path, err)
	}

	cfg := New(name, "")
	if key != "" {
		if err := doc.UnpackChild(key, cfg); err != nil {
			return nil, newError("unpacking %s: %v", key, err)
		}
		return cfg, nil
	}
	if err := doc.Unpack(cfg); err != nil {
		return nil, newError("unpacking config: %v", err)
	}
	return cfg, nil
}
