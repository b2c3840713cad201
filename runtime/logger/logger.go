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

// Package logger supplies the concrete apis.Logger the teacher library's
// contracts describe but never implement: an encoder (console or json)
// writing through the sink machinery in apis/sink and runtime/sink.
package logger

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"dirpx.dev/dlogd/apis"
	acontext "dirpx.dev/dlogd/apis/context"
	afield "dirpx.dev/dlogd/apis/field"
	alevel "dirpx.dev/dlogd/apis/level"
	"dirpx.dev/dlogd/apis/record"
	asink "dirpx.dev/dlogd/apis/sink"
	"dirpx.dev/dlogd/runtime/encoder"
)

var _ apis.Logger = (*Logger)(nil)
var _ apis.FieldLogger = (*Logger)(nil)
var _ apis.ContextLogger = (*Logger)(nil)

// Logger is a structured diagnostics logger backed by a vendor-neutral
// Encoder and a Sink (a rotating file, stdout, or a fan-out Group of
// both).
type Logger struct {
	enc       encoder.Encoder
	sink      asink.Sink
	extractor acontext.Extractor
	minLevel  alevel.Level
	bound     []afield.Field
	boundCtx  context.Context
}

// Options configures a Logger.
type Options struct {
	Encoder   encoder.Encoder
	Sink      asink.Sink
	Extractor acontext.Extractor // may be nil; defaults to an empty pack
	MinLevel  alevel.Level
}

// New constructs a Logger.
func New(opt Options) *Logger {
	ex := opt.Extractor
	if ex == nil {
		ex = acontext.Static(acontext.Empty())
	}
	return &Logger{
		enc:       opt.Encoder,
		sink:      opt.Sink,
		extractor: ex,
		minLevel:  opt.MinLevel,
		boundCtx:  context.Background(),
	}
}

// Enabled implements apis.Logger.
func (l *Logger) Enabled(lvl alevel.Level) bool { return lvl >= l.minLevel }

func (l *Logger) Debug(ctx context.Context, msg string, fields ...afield.Field) {
	l.Log(ctx, alevel.Debug, msg, fields...)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...afield.Field) {
	l.Log(ctx, alevel.Info, msg, fields...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...afield.Field) {
	l.Log(ctx, alevel.Warn, msg, fields...)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...afield.Field) {
	l.Log(ctx, alevel.Error, msg, fields...)
}

// Fatal logs at Fatal level and terminates the process. This is the
// implementation-defined behavior apis.Logger leaves open.
func (l *Logger) Fatal(ctx context.Context, msg string, fields ...afield.Field) {
	l.Log(ctx, alevel.Fatal, msg, fields...)
	_ = l.sink.Flush(context.Background())
	os.Exit(1)
}

// Log implements apis.Logger.
func (l *Logger) Log(ctx context.Context, lvl alevel.Level, msg string, fields ...afield.Field) {
	if !l.Enabled(lvl) {
		return
	}

	pack := l.extractor.Extract(ctx)
	if l.boundCtx != nil {
		pack = acontext.Merge(l.extractor.Extract(l.boundCtx), pack)
	}
	all := append(append([]afield.Field(nil), l.bound...), fields...)

	rec := record.NewRecord(time.Now(), lvl, msg, pack, all, nil)

	var buf bytes.Buffer
	if err := l.enc.Encode(&rec, &buf); err != nil {
		fmt.Fprintf(os.Stderr, "dlogd: encode error: %v\n", err)
		return
	}
	if err := l.sink.Write(context.Background(), buf.Bytes()); err != nil {
		fmt.Fprintf(os.Stderr, "dlogd: sink write error: %v\n", err)
	}
}

// WithFields implements apis.FieldLogger.
func (l *Logger) WithFields(fields ...afield.Field) apis.Logger {
	out := *l
	out.bound = append(append([]afield.Field(nil), l.bound...), fields...)
	return &out
}

// WithContext implements apis.ContextLogger.
func (l *Logger) WithContext(ctx context.Context) apis.Logger {
	out := *l
	out.boundCtx = ctx
	return &out
}

// Close flushes and releases the underlying sink.
func (l *Logger) Close(ctx context.Context) error {
	return l.sink.Close(ctx)
}
