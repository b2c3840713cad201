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

// Package filesink implements the File Sink (C3): the single writer of
// the active log file, applying Write, WriteDebug and Rename commands in
// the exact order they are dequeued from the command channel.
package filesink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dirpx.dev/dlogd/apis/ingest/command"
	spolicy "dirpx.dev/dlogd/apis/sink/policy"
	"dirpx.dev/dlogd/apis/metrics"
)

// rfc2822Local mirrors the banner timestamp format used by the original
// daemon: day-of-week, date, local time with numeric zone offset.
const rfc2822Local = time.RFC1123Z

var (
	// ErrFileOpen corresponds to the FileOpenError taxonomy kind: fatal at
	// startup or after rotation.
	ErrFileOpen = errors.New("filesink: could not open live file")

	// ErrRename corresponds to the RenameError taxonomy kind: fatal to the
	// sink.
	ErrRename = errors.New("filesink: rename failed")
)

// Options configures a Sink.
type Options struct {
	// Path is the live path: filedir/filename.
	Path string

	// StartingMsg, when true, writes a "Starting ..." banner to every
	// freshly opened file (at startup and after each rotation).
	StartingMsg bool

	// EndingMsg, when true, writes an "Ending log as ..." line to the
	// current file immediately before it is renamed away.
	EndingMsg bool

	// Retry optionally allows a single retry of a failed plain Write,
	// per spec.md §4.3's "implementations may choose to retry once".
	Retry spolicy.Retry

	// Metric receives write-latency and rotation/error updates. A nil
	// Metric is replaced by metrics.Noop{}.
	Metric metrics.Sink

	// DebugSink receives a diagnostic line for every WriteDebug command.
	// May be nil, in which case diagnostics are written to os.Stderr.
	DebugSink func(origin string, seq int64, n int)
}

// Sink owns the active append-only file handle exclusively for the
// lifetime of the program.
type Sink struct {
	opt  Options
	file *os.File
}

// Open opens the live file in append+create mode and, if StartingMsg is
// set, writes the starting banner. It corresponds to spec.md §4.3 step 1-2.
func Open(opt Options) (*Sink, error) {
	if opt.Metric == nil {
		opt.Metric = metrics.Noop{}
	}
	s := &Sink{opt: opt}
	if err := s.openLive(os.O_APPEND | os.O_CREATE | os.O_WRONLY); err != nil {
		return nil, err
	}
	if opt.StartingMsg {
		if err := s.writeBanner(startingBanner(s.opt.Path)); err != nil {
			_ = s.file.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Sink) openLive(flag int) error {
	if err := os.MkdirAll(filepath.Dir(s.opt.Path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOpen, err)
	}
	f, err := os.OpenFile(s.opt.Path, flag, 0o640)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOpen, err)
	}
	s.file = f
	return nil
}

// Run is the main consumption loop. It dequeues one command at a time from
// in and dispatches it; on stop, it finishes applying the currently
// dequeued command (if any) and then returns nil. Any fatal I/O failure
// (FileOpenError, RenameError) is returned immediately.
func (s *Sink) Run(ctx context.Context, in <-chan command.Command, stop <-chan struct{}) error {
	defer s.file.Close()

	for {
		select {
		case <-stop:
			return nil
		case cmd, ok := <-in:
			if !ok {
				return nil
			}
			if err := s.apply(ctx, cmd); err != nil {
				if errors.Is(err, ErrFileOpen) || errors.Is(err, ErrRename) {
					return err
				}
				// WriteError: surfaced via metrics/stderr, not fatal.
				fmt.Fprintf(os.Stderr, "dlogd: write error: %v\n", err)
			}
		}
	}
}

func (s *Sink) apply(ctx context.Context, cmd command.Command) error {
	switch cmd.Kind {
	case command.Write:
		return s.applyWrite(cmd.Bytes)
	case command.WriteDebug:
		if err := s.applyWrite(cmd.Bytes); err != nil {
			return err
		}
		s.emitDebug(cmd.Origin, cmd.Sequence, len(cmd.Bytes))
		return nil
	case command.Rename:
		return s.applyRename(ctx, cmd.Target)
	default:
		return fmt.Errorf("filesink: unknown command kind %v", cmd.Kind)
	}
}

// applyWrite appends b to the active file, synthesizing a trailing
// newline if absent, per spec.md §4.3's Write semantics. It retries once
// on failure if Options.Retry.Enable is set.
func (s *Sink) applyWrite(b []byte) error {
	if len(b) == 0 || b[len(b)-1] != '\n' {
		b = append(append([]byte(nil), b...), '\n')
	}

	start := time.Now()
	_, err := s.file.Write(b)
	if err != nil && s.opt.Retry.Enable {
		if s.opt.Retry.Initial > 0 {
			time.Sleep(s.opt.Retry.Initial)
		}
		_, err = s.file.Write(b)
	}
	s.opt.Metric.HistogramObserve(metrics.FileWriteLatencySeconds, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("filesink: write: %w", err)
	}
	s.opt.Metric.CounterAdd(metrics.MessagesWrittenTotal, 1)
	return nil
}

func (s *Sink) emitDebug(origin string, seq int64, n int) {
	if s.opt.DebugSink != nil {
		s.opt.DebugSink(origin, seq, n)
		return
	}
	fmt.Fprintf(os.Stderr, "dlogd: debug origin=%s seq=%d bytes=%d\n", origin, seq, n)
}

// applyRename implements spec.md §4.3's Rename sequence exactly: write the
// ending banner (if configured), rename the live path to target, then
// open a fresh truncate+create file at the live path and write the
// starting banner (if configured).
func (s *Sink) applyRename(_ context.Context, target string) error {
	if s.opt.EndingMsg {
		if err := s.writeBanner(endingBanner(target)); err != nil {
			return fmt.Errorf("%w: ending banner: %v", ErrRename, err)
		}
	}

	if err := s.file.Close(); err != nil {
		return fmt.Errorf("%w: close before rename: %v", ErrRename, err)
	}

	if err := os.Rename(s.opt.Path, target); err != nil {
		return fmt.Errorf("%w: %v", ErrRename, err)
	}

	// truncate+create: the pre-rotation contents now live at target; the
	// new live file must start empty (spec.md §9's mandated semantics).
	if err := s.openLive(os.O_CREATE | os.O_TRUNC | os.O_WRONLY); err != nil {
		return err
	}

	if s.opt.StartingMsg {
		if err := s.writeBanner(startingBanner(s.opt.Path)); err != nil {
			return fmt.Errorf("%w: starting banner: %v", ErrRename, err)
		}
	}

	s.opt.Metric.CounterAdd(metrics.FileRotationEventsTotal, 1)
	return nil
}

func (s *Sink) writeBanner(line string) error {
	_, err := s.file.Write([]byte(line))
	return err
}

func startingBanner(path string) string {
	return fmt.Sprintf("Starting %s at %s\n", path, time.Now().Format(rfc2822Local))
}

func endingBanner(target string) string {
	return fmt.Sprintf("Ending log as %s at %s\n", target, time.Now().Format(rfc2822Local))
}
