// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package wlog provides the pluggable logging facade used throughout the
// wbem client. It mirrors the teacher's clog package: a small
// Provider interface, an atomic on/off switch so a disabled logger
// costs nothing, and a default provider — here backed by zerolog rather
// than the teacher's bare *log.Logger. Operation log lines carry the
// operation name, namespace, elapsed time and status code as
// key=value text inside a formatted message.
package wlog

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Provider is the logging backend a Logger delegates to once enabled.
// RFC5424 levels only: Debug, Warn, Error, Critical.
type Provider interface {
	Critical(format string, v ...interface{})
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Logger is the facade the rest of the module logs through. It gates all
// work behind an atomic flag so a disabled Logger is a single atomic
// load per call, matching clog.Clog's discipline.
type Logger struct {
	provider Provider
	// has is 1 when log output is enabled, 0 when disabled.
	has uint32
}

// New creates a Logger with the given prefix, backed by the default
// zerolog-based provider.
func New(prefix string) Logger {
	return Logger{provider: defaultProvider{zerolog.New(os.Stdout).With().Timestamp().Str("component", prefix).Logger()}}
}

// LogMode enables or disables log output.
func (sf *Logger) LogMode(enable bool) {
	if enable {
		atomic.StoreUint32(&sf.has, 1)
	} else {
		atomic.StoreUint32(&sf.has, 0)
	}
}

// SetProvider overrides the logging backend.
func (sf *Logger) SetProvider(p Provider) {
	if p != nil {
		sf.provider = p
	}
}

// Critical logs a CRITICAL-level message.
func (sf Logger) Critical(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Critical(format, v...)
	}
}

// Error logs an ERROR-level message.
func (sf Logger) Error(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Error(format, v...)
	}
}

// Warn logs a WARN-level message.
func (sf Logger) Warn(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Warn(format, v...)
	}
}

// Debug logs a DEBUG-level message.
func (sf Logger) Debug(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Debug(format, v...)
	}
}

// defaultProvider adapts a zerolog.Logger to Provider.
type defaultProvider struct {
	z zerolog.Logger
}

var _ Provider = defaultProvider{}

func (d defaultProvider) Critical(format string, v ...interface{}) {
	d.z.Error().Str("level", "critical").Msgf(format, v...)
}

func (d defaultProvider) Error(format string, v ...interface{}) {
	d.z.Error().Msgf(format, v...)
}

func (d defaultProvider) Warn(format string, v ...interface{}) {
	d.z.Warn().Msgf(format, v...)
}

func (d defaultProvider) Debug(format string, v ...interface{}) {
	d.z.Debug().Msgf(format, v...)
}
