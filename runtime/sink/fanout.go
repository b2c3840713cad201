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

package sink

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	asink "dirpx.dev/dlogd/apis/sink"
)

// ErrSinkExists is returned by Add when a sink with the same name is
// already registered in the group.
var ErrSinkExists = errors.New("sink/fanout: already registered")

// fanOut implements asink.Group: it forwards every entry to all member
// sinks, so the same diagnostics stream can reach stdout and a rotating
// file simultaneously.
type fanOut struct {
	mu   sync.RWMutex
	name string
	byNm map[string]asink.Sink
}

var _ asink.Group = (*fanOut)(nil)

// NewGroup constructs an empty fan-out group named name.
func NewGroup(name string) asink.Group {
	return &fanOut{name: name, byNm: make(map[string]asink.Sink)}
}

func (g *fanOut) Name() string { return g.name }

func (g *fanOut) Add(s asink.Sink) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.byNm[s.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrSinkExists, s.Name())
	}
	g.byNm[s.Name()] = s
	return nil
}

func (g *fanOut) Remove(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.byNm, name)
	return nil
}

func (g *fanOut) List() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.byNm))
	for n := range g.byNm {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Write forwards entry to every member sink, returning the first error
// encountered (after attempting all of them).
func (g *fanOut) Write(ctx context.Context, entry []byte) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var firstErr error
	for _, s := range g.byNm {
		if err := s.Write(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (g *fanOut) Flush(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var firstErr error
	for _, s := range g.byNm {
		if err := s.Flush(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (g *fanOut) Close(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var firstErr error
	for _, s := range g.byNm {
		if err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
