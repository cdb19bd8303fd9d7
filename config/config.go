/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package config loads the flat, file-driven process configuration:
// backend addresses and timeouts, catalog load behavior, and the admin
// API's listen address.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/juju/errors"
)

// LogConfig is the log section of the config file.
type LogConfig struct {
	Level string `toml:"level"`
}

// BackendConfig names one configured backend server, in the order the
// Loader tries them. Connect/read/write timeouts are shared across all
// configured backends (CatalogConfig), not set per server.
type BackendConfig struct {
	Address  string `toml:"address"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// CatalogConfig is the catalog section of the config file.
type CatalogConfig struct {
	RefreshIntervalSeconds int    `toml:"refresh-interval-seconds"`
	PersistPath            string `toml:"persist-path"`

	ConnectTimeoutMS int `toml:"connect-timeout-ms"`
	ReadTimeoutMS    int `toml:"read-timeout-ms"`
	WriteTimeoutMS   int `toml:"write-timeout-ms"`

	SkipPermissionChecks bool `toml:"skip-permission-checks"`
	StripDBEsc           bool `toml:"strip-db-esc"`
	EnableRoot           bool `toml:"enable-root"`
	UsersFromAll         bool `toml:"users-from-all"`

	// HostnameFallback gates the reverse-DNS retry on an unmatched client
	// IP, left as a config switch rather than a hardcoded disable.
	HostnameFallback bool `toml:"hostname-fallback"`

	// DNSLookupsPerSecond bounds the reverse-DNS fallback rate across all
	// authentication attempts.
	DNSLookupsPerSecond int `toml:"dns-lookups-per-second"`
}

// RefreshInterval returns the configured refresh interval, defaulting to
// 60s when unset.
func (c CatalogConfig) RefreshInterval() time.Duration {
	if c.RefreshIntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// ConnectTimeout returns the configured connect timeout, defaulting to 5s.
func (c CatalogConfig) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

// ReadTimeout returns the configured read timeout, defaulting to 10s.
func (c CatalogConfig) ReadTimeout() time.Duration {
	if c.ReadTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns the configured write timeout, defaulting to 10s.
func (c CatalogConfig) WriteTimeout() time.Duration {
	if c.WriteTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// AdminConfig is the admin-API section of the config file.
type AdminConfig struct {
	Address string `toml:"address"`
}

// ProxyConfig is the listener-facing section of the config file: limits
// that apply before a login attempt ever reaches the Authenticator.
type ProxyConfig struct {
	MaxConnections int `toml:"max-connections"`
}

// MaxConns returns the configured connection ceiling, defaulting to 2000,
// matching the teacher proxy's default.
func (c ProxyConfig) MaxConns() int {
	if c.MaxConnections <= 0 {
		return 2000
	}
	return c.MaxConnections
}

// Config is the root of the authgate TOML config file.
type Config struct {
	Log     LogConfig       `toml:"log"`
	Backend []BackendConfig `toml:"backend"`
	Catalog CatalogConfig   `toml:"catalog"`
	Admin   AdminConfig     `toml:"admin"`
	Proxy   ProxyConfig     `toml:"proxy"`
}

// LoadConfig decodes the TOML file at path into a new Config, in the
// teacher's free-function, no-globals style.
func LoadConfig(path string) (*Config, error) {
	conf := &Config{}
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, errors.Trace(err)
	}
	return conf, nil
}
