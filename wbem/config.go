// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package wbem implements the WBEM client runtime: HTTP transport,
// per-operation methods, the enumeration session engine, and the error
// and statistics taxonomy, per spec §4.4-§4.7.
package wbem

import (
	"errors"
	"net/url"
	"time"
)

// Timeout and retry bounds. Values of zero mean "use the default";
// DefaultConfig documents the defaults applied by Valid.
const (
	ConnectTimeoutMin = 1 * time.Second
	ConnectTimeoutMax = 300 * time.Second

	ReadTimeoutMin = 1 * time.Second
	ReadTimeoutMax = 3600 * time.Second

	RetriesMin = 0
	RetriesMax = 100
)

// Credentials is HTTP basic-auth credentials sent with every request when
// set, per spec §4.4.
type Credentials struct {
	User string
	Pass string
}

// TriState models the "auto" flag design note in spec §9: rather than a
// nullable boolean, UsePullOperations is one of three explicit variants.
type TriState int

// The three TriState variants.
const (
	Auto TriState = iota
	ForceTrue
	ForceFalse
)

// Proxies carries the optional http/https proxy URLs, per spec §4.4.4.
// Supported proxy URL schemes are "http", "socks5" (client-side DNS) and
// "socks5h" (proxy-side DNS); authentication to the proxy is via the URL
// userinfo component.
type Proxies struct {
	HTTP  *url.URL
	HTTPS *url.URL
}

// Config is a WBEM connection's configuration. The zero value of every
// field means "unset"; Valid fills in the documented defaults and
// range-checks any explicitly-set field, following the same "zero means
// default" discipline as the teacher's cs104.Config.
type Config struct {
	// URL is the server endpoint, scheme://host[:port]. Required.
	URL string

	// Credentials holds HTTP basic-auth credentials. Optional.
	Credentials *Credentials

	// DefaultNamespace is used by operations that don't specify one
	// explicitly. Default "root/cimv2".
	DefaultNamespace string

	// CACerts is a path to a CA bundle file or directory used to verify
	// the server's certificate.
	CACerts string

	// NoVerification disables certificate validation entirely. Use with
	// care; intended for lab/test servers only.
	NoVerification bool

	// ClientCertFile/ClientKeyFile configure mutual TLS (the "x509"
	// config key in spec §6.3).
	ClientCertFile string
	ClientKeyFile  string

	// Timeout is the default per-operation read timeout. Default 30s.
	Timeout time.Duration

	// UsePullOperations selects the enumeration dialect per spec §4.6.3.
	UsePullOperations TriState

	// StatsEnabled turns on the statistics recorder (spec §4.7).
	StatsEnabled bool

	// Proxies configures optional proxy URLs (spec §4.4.4).
	Proxies Proxies

	// ConnectTimeout bounds the TCP/TLS handshake. Default 30s.
	ConnectTimeout time.Duration
	// ConnectRetries, ReadRetries, RedirectRetries bound retries per
	// failure class (spec §4.4.2). Default 0 (no retries).
	ConnectRetries   int
	ReadRetries      int
	RedirectRetries  int
	// TotalRetries caps the sum across all classes, if > 0.
	TotalRetries int
	// BackoffFactor scales the exponential backoff between retries.
	// Default 0.1 (seconds).
	BackoffFactor float64

	// StrictMessageID enables the defense-in-depth check (spec.md §9
	// Open Question 1, resolved in SPEC_FULL.md) that the response
	// MESSAGE ID equals the request's.
	StrictMessageID bool

	// ContinueOnErrorSupported records whether the configured server has
	// been confirmed to advertise ContinueOnError support (spec §4.6.1).
	// When false (the default), any Open* call whose PullOptions set
	// ContinueOnError is rejected client-side before a request is sent.
	ContinueOnErrorSupported bool
}

// Valid applies the default (defined by this package) for each unset
// field and range-checks any explicitly-set field. It mutates sf in
// place, mirroring cs104.Config.Valid.
func (sf *Config) Valid() error {
	if sf == nil {
		return errors.New("wbem: invalid pointer")
	}
	if sf.URL == "" {
		return errors.New("wbem: URL is required")
	}
	if sf.DefaultNamespace == "" {
		sf.DefaultNamespace = "root/cimv2"
	}
	if sf.Timeout == 0 {
		sf.Timeout = 30 * time.Second
	} else if sf.Timeout < ReadTimeoutMin || sf.Timeout > ReadTimeoutMax {
		return errors.New("wbem: Timeout not in [1s, 3600s]")
	}
	if sf.ConnectTimeout == 0 {
		sf.ConnectTimeout = 30 * time.Second
	} else if sf.ConnectTimeout < ConnectTimeoutMin || sf.ConnectTimeout > ConnectTimeoutMax {
		return errors.New("wbem: ConnectTimeout not in [1s, 300s]")
	}
	if sf.BackoffFactor == 0 {
		sf.BackoffFactor = 0.1
	}
	for name, v := range map[string]int{
		"ConnectRetries":  sf.ConnectRetries,
		"ReadRetries":     sf.ReadRetries,
		"RedirectRetries": sf.RedirectRetries,
		"TotalRetries":    sf.TotalRetries,
	} {
		if v < RetriesMin || v > RetriesMax {
			return errors.New("wbem: " + name + " not in [0, 100]")
		}
	}
	return nil
}

// DefaultConfig returns a Config with every optional field at its
// documented default, requiring only a URL to be filled in by the
// caller.
func DefaultConfig(serverURL string) Config {
	return Config{
		URL:              serverURL,
		DefaultNamespace: "root/cimv2",
		Timeout:          30 * time.Second,
		ConnectTimeout:   30 * time.Second,
		BackoffFactor:    0.1,
	}
}
