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

// Package listener implements the UDP (C5) and TCP (C6) listeners: the
// network-facing producers of the ingest command channel.
package listener

import (
	"context"
	"errors"

	"dirpx.dev/dlogd/apis/ingest/command"
)

// ErrBind corresponds to the BindError taxonomy kind: fatal at startup.
var ErrBind = errors.New("listener: bind failed")

// Sender is the narrow interface listeners need from the command channel.
type Sender interface {
	Send(ctx context.Context, cmd command.Command) error
}

// ctxFromStop returns a context that is cancelled the moment stop fires,
// so a Send blocked under the Block backpressure policy does not wedge
// the process during shutdown.
func ctxFromStop(stop <-chan struct{}) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
