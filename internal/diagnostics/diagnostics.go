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

// Package diagnostics wires the daemon's own operational log stream: the
// startup/shutdown/component-failure messages the ingest core emits about
// itself, as opposed to the client log entries it ingests and serves
// (internal/ingest/filesink). It is the concrete assembly point for C10
// (apis.Logger) described in internal/config.Settings' diagnostics.* keys.
package diagnostics

import (
	"fmt"
	"os"

	"dirpx.dev/dlogd/internal/config"
	"dirpx.dev/dlogd/runtime/encoder"
	"dirpx.dev/dlogd/runtime/encoder/console"
	"dirpx.dev/dlogd/runtime/encoder/json"
	"dirpx.dev/dlogd/runtime/logger"
	"dirpx.dev/dlogd/runtime/sink"
	spolicy "dirpx.dev/dlogd/runtime/sink/policy"

	policy "dirpx.dev/dlogd/apis/sink/policy"
)

// New builds the diagnostics Logger described by s.DiagLevel/DiagFormat/
// DiagFile: stdout always receives the stream, and a size-rotating,
// optionally gzip-compressed file sink is added on top when DiagFile is set.
func New(s config.Settings) (*logger.Logger, error) {
	var enc encoder.Encoder
	switch s.DiagFormat {
	case config.DiagFormatJSON:
		enc = json.New(encoder.Options{})
	default:
		enc = console.New(encoder.Options{})
	}

	group := sink.NewGroup("diagnostics")
	if err := group.Add(sink.NewWriterSink("stdout", os.Stdout)); err != nil {
		return nil, fmt.Errorf("diagnostics: adding stdout sink: %w", err)
	}

	if s.DiagFile != "" {
		fileSink, err := spolicy.NewRotatingFileSink(spolicy.FileRotationOptions{
			Path: s.DiagFile,
			Policy: policy.Rotation{
				MaxSizeMB:  s.DiagMaxSizeMB,
				MaxBackups: s.DiagMaxBackups,
				Compress:   s.DiagCompress,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("diagnostics: opening diagnostics file: %w", err)
		}
		if err := group.Add(fileSink); err != nil {
			return nil, fmt.Errorf("diagnostics: adding file sink: %w", err)
		}
	}

	return logger.New(logger.Options{
		Encoder:  enc,
		Sink:     group,
		MinLevel: s.DiagLevel,
	}), nil
}
