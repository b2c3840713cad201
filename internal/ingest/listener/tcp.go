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

package listener

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync/atomic"

	"dirpx.dev/dlogd/apis/ingest/command"
	"dirpx.dev/dlogd/apis/metrics"
)

// TCPOptions configures the TCP listener.
type TCPOptions struct {
	// Addr is "host:port" to bind.
	Addr string

	// MaxConnections caps concurrently active connections; beyond it,
	// new connections are rejected by immediate close.
	MaxConnections int

	// Debug, when true, emits WriteDebug commands instead of Write.
	Debug bool

	Sender Sender
	Metric metrics.Sink
}

// RunTCP binds the TCP listening socket and accepts connections until stop
// fires or an unrecoverable error occurs.
func RunTCP(opt TCPOptions, stop <-chan struct{}) error {
	if opt.Metric == nil {
		opt.Metric = metrics.Noop{}
	}
	if opt.MaxConnections <= 0 {
		opt.MaxConnections = 1000
	}

	ln, err := net.Listen("tcp", opt.Addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBind, err)
	}

	closed := make(chan struct{})
	go func() {
		select {
		case <-stop:
			_ = ln.Close()
		case <-closed:
		}
	}()
	defer close(closed)

	var active atomic.Int64

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
				return err
			}
		}

		if active.Load() >= int64(opt.MaxConnections) {
			_ = conn.Close()
			opt.Metric.CounterAdd(metrics.TCPConnectionsRejectedTotal, 1)
			continue
		}

		n := active.Add(1)
		opt.Metric.CounterAdd(metrics.TCPConnectionsTotal, 1)
		opt.Metric.GaugeSet(metrics.TCPConnectionsActive, float64(n))

		go handleTCPConn(conn, opt, stop, &active)
	}
}

// handleTCPConn frames the connection as newline-delimited records. Each
// complete line (with the trailing '\n' preserved, per spec.md §4.6's
// "line_bytes + '\n'") becomes one command. Incomplete trailing bytes at
// EOF (no terminating newline) are discarded, not written.
func handleTCPConn(conn net.Conn, opt TCPOptions, stop <-chan struct{}, active *atomic.Int64) {
	defer func() {
		_ = conn.Close()
		n := active.Add(-1)
		opt.Metric.GaugeSet(metrics.TCPConnectionsActive, float64(n))
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-stop:
			_ = conn.Close() // unblocks the in-flight read; no buffered-byte drain.
		case <-done:
		}
	}()

	ctx := ctxFromStop(stop)
	reader := bufio.NewReader(conn)
	origin := fmt.Sprintf("tcp:%s", conn.RemoteAddr())
	var seq int64

	for {
		line, err := reader.ReadString('\n')
		if strings.HasSuffix(line, "\n") {
			b := []byte(line)
			opt.Metric.CounterAdd(metrics.MessagesReceivedTotal, 1)

			var cmd command.Command
			if opt.Debug {
				seq++
				cmd = command.NewWriteDebug(origin, b, seq)
			} else {
				cmd = command.NewWrite(b)
			}

			if sendErr := opt.Sender.Send(ctx, cmd); sendErr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}
