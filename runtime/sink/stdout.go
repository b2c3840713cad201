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

// Package sink supplies concrete runtime implementations of apis/sink.Sink
// for the diagnostics logger (C10): a plain writer sink and a fan-out
// group, on top of the rotation/batch wrappers in runtime/sink/policy.
package sink

import (
	"context"
	"io"
	"sync"

	asink "dirpx.dev/dlogd/apis/sink"
)

// writerSink adapts a plain io.Writer into asink.Sink. It is used for the
// stdout branch of the diagnostics logger's fan-out.
type writerSink struct {
	mu   sync.Mutex
	w    io.Writer
	name string
}

var _ asink.Sink = (*writerSink)(nil)

// NewWriterSink wraps w (e.g. os.Stdout) as a Sink named name.
func NewWriterSink(name string, w io.Writer) asink.Sink {
	return &writerSink{w: w, name: name}
}

func (s *writerSink) Name() string { return s.name }

func (s *writerSink) Write(ctx context.Context, entry []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(entry)
	return err
}

func (s *writerSink) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f, ok := s.w.(interface{ Sync() error }); ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		return f.Sync()
	}
	return nil
}

func (s *writerSink) Close(context.Context) error { return nil }
