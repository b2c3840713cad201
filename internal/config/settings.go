/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package config produces the immutable Settings value consumed by the
// ingest core, loaded from layered YAML files plus environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ingestpolicy "dirpx.dev/dlogd/apis/ingest/policy"
	alevel "dirpx.dev/dlogd/apis/level"
)

// Protocol selects which listener the application root constructs.
type Protocol uint8

const (
	ProtocolUDP Protocol = iota
	ProtocolTCP
)

// ParseProtocol parses the "protocol" configuration value.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UDP":
		return ProtocolUDP, nil
	case "TCP":
		return ProtocolTCP, nil
	default:
		return 0, fmt.Errorf("%w: protocol %q", ErrInvalid, s)
	}
}

func (p Protocol) String() string {
	if p == ProtocolTCP {
		return "TCP"
	}
	return "UDP"
}

// RotationKind selects the C1 Rotation Policy variant.
type RotationKind uint8

const (
	RotationByDuration RotationKind = iota
	RotationByDay
)

// ParseRotationKind parses the "rotation.policy" configuration value.
func ParseRotationKind(s string) (RotationKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BYDURATION":
		return RotationByDuration, nil
	case "BYDAY":
		return RotationByDay, nil
	default:
		return 0, fmt.Errorf("%w: rotation.policy %q", ErrInvalid, s)
	}
}

// Settings is the immutable configuration surface described in spec.md §6.
// It carries no exported mutator: once constructed by Load, every field is
// read-only for the remainder of the process lifetime.
type Settings struct {
	Host     string
	Port     int
	Protocol Protocol
	Threads  int

	BufferBound int

	FileDir  string
	Filename string

	RotationPolicy   RotationKind
	RotationCount    int
	RotationDuration time.Duration

	StartingMsg bool
	EndingMsg   bool

	Backpressure ingestpolicy.Backpressure

	MaxConnections int
	MetricsPort    int

	Debug bool

	DiagLevel      alevel.Level
	DiagFormat     DiagFormat
	DiagFile       string // empty: stdout only
	DiagMaxSizeMB  int
	DiagMaxBackups int
	DiagCompress   bool
}

// DiagFormat selects the encoder used for the daemon's own operational log
// stream (distinct from the ingested log store the daemon serves).
type DiagFormat uint8

const (
	DiagFormatConsole DiagFormat = iota
	DiagFormatJSON
)

// ParseDiagFormat parses the "diagnostics.format" configuration value.
func ParseDiagFormat(s string) (DiagFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "console", "":
		return DiagFormatConsole, nil
	case "json":
		return DiagFormatJSON, nil
	default:
		return 0, fmt.Errorf("%w: diagnostics.format %q", ErrInvalid, s)
	}
}

// Addr returns "host:port" suitable for net.Listen/net.ListenPacket.
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LivePath returns the active file path, filedir/filename.
func (s Settings) LivePath() string {
	return filepath.Join(s.FileDir, s.Filename)
}

// RotationPolicyImpl adapts the configured rotation kind into the apis/
// ingest/policy.Rotation pure function the scheduler consumes.
func (s Settings) RotationPolicyImpl() ingestpolicy.Rotation {
	switch s.RotationPolicy {
	case RotationByDay:
		return ingestpolicy.ByDay{}
	default:
		return ingestpolicy.ByDuration{Interval: s.RotationDuration}
	}
}
