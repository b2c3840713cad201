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

// Package rotation implements the Rotation Scheduler (C2): a long-running
// task that sleeps until the next rotation is due, selects a target
// filename, and emits a Rename command on the shared command channel.
package rotation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"dirpx.dev/dlogd/apis/ingest/command"
	"dirpx.dev/dlogd/apis/ingest/policy"
	"dirpx.dev/dlogd/apis/metrics"
)

const enumerationRetryDelay = 1 * time.Second

// Sender is the narrow interface the scheduler needs from the command
// channel: enqueue a Rename command, observing ErrClosed-shaped failures
// by returning a non-nil error.
type Sender interface {
	Send(ctx context.Context, cmd command.Command) error
}

// Options configures a Scheduler.
type Options struct {
	// Policy decides when the next rotation is due.
	Policy policy.Rotation

	// LivePath is the active file path; rotated siblings are enumerated
	// as LivePath + ".*".
	LivePath string

	// MaxRetained is the maximum number of rotated siblings to keep.
	MaxRetained int

	// Sender delivers Rename commands to the file sink.
	Sender Sender

	// Metric receives the rotation error counter when enumeration fails;
	// the rotation success counter is reported by the file sink once the
	// rename is applied. A nil Metric is replaced by metrics.Noop{}.
	Metric metrics.Sink
}

// Scheduler runs the rotation loop described in spec.md §4.2.
type Scheduler struct {
	opt  Options
	last time.Time
}

// New constructs a Scheduler with RotationState.last_rotation initialized
// to the daemon start time, per spec.md §3.
func New(opt Options) *Scheduler {
	if opt.Metric == nil {
		opt.Metric = metrics.Noop{}
	}
	if opt.MaxRetained <= 0 {
		opt.MaxRetained = 1
	}
	return &Scheduler{opt: opt, last: time.Now()}
}

// Run executes the scheduler loop until stop fires or the sender reports
// the channel closed, in which case Run returns nil (clean exit).
func (s *Scheduler) Run(ctx context.Context, stop <-chan struct{}) error {
	for {
		target := s.opt.Policy.NextRotation(s.last)
		now := time.Now()

		if target.After(now) {
			timer := time.NewTimer(target.Sub(now))
			select {
			case <-timer.C:
			case <-stop:
				timer.Stop()
				return nil
			}
		}

		targetPath, err := s.chooseTarget()
		if err != nil {
			s.opt.Metric.CounterAdd(metrics.FileRotationErrorsTotal, 1)
			select {
			case <-time.After(enumerationRetryDelay):
			case <-stop:
				return nil
			}
			continue
		}

		if err := s.opt.Sender.Send(ctx, command.NewRename(targetPath)); err != nil {
			// Channel closed during shutdown: exit the loop cleanly.
			return nil
		}
		s.last = time.Now()
	}
}

// sibling describes one rotated file candidate discovered by enumeration.
type sibling struct {
	path  string
	mtime time.Time
	id    int
	hasID bool
}

var trailingDigits = func(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// chooseTarget implements spec.md §4.2 steps 3a-3c: enumerate existing
// rotated siblings; if at capacity, reclaim the oldest by mtime (tie-break
// lower id, then lexicographically smallest path); otherwise compute the
// next numeric id.
func (s *Scheduler) chooseTarget() (string, error) {
	matches, err := filepath.Glob(s.opt.LivePath + ".*")
	if err != nil {
		return "", fmt.Errorf("rotation: glob: %w", err)
	}

	prefix := s.opt.LivePath + "."
	siblings := make([]sibling, 0, len(matches))
	for _, m := range matches {
		if m == s.opt.LivePath {
			continue // never choose the live path itself
		}
		info, err := os.Stat(m)
		if err != nil {
			return "", fmt.Errorf("rotation: stat %s: %w", m, err)
		}
		suffix := strings.TrimPrefix(m, prefix)
		id, hasID := trailingDigits(suffix)
		siblings = append(siblings, sibling{path: m, mtime: info.ModTime(), id: id, hasID: hasID})
	}

	if len(siblings) >= s.opt.MaxRetained {
		sort.Slice(siblings, func(i, j int) bool {
			a, b := siblings[i], siblings[j]
			if !a.mtime.Equal(b.mtime) {
				return a.mtime.Before(b.mtime)
			}
			if a.hasID && b.hasID && a.id != b.id {
				return a.id < b.id
			}
			if a.hasID != b.hasID {
				// Mixed case (one id parses, the other does not): fall
				// back to lexicographic path order, as when none parse.
				return a.path < b.path
			}
			return a.path < b.path
		})
		return siblings[0].path, nil
	}

	maxID := -1
	for _, sib := range siblings {
		if sib.hasID && sib.id > maxID {
			maxID = sib.id
		}
	}
	return fmt.Sprintf("%s%d", prefix, maxID+1), nil
}
