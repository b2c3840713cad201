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
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"

	"dirpx.dev/dlogd/apis/ingest/command"
	"dirpx.dev/dlogd/apis/metrics"
	"golang.org/x/sys/unix"
)

// udpDatagramSize exceeds typical MTUs and jumbo frames, per spec.md §4.5.
const udpDatagramSize = 15000

// UDPOptions configures the UDP listener.
type UDPOptions struct {
	// Addr is "host:port" to bind.
	Addr string

	// Threads is the number of cooperative receive goroutines. When > 1,
	// each binds the same address with SO_REUSEPORT so the kernel
	// load-balances datagrams across them.
	Threads int

	// Debug, when true, emits WriteDebug commands carrying a per-listener
	// monotonic sequence counter instead of plain Write commands.
	Debug bool

	Sender Sender
	Metric metrics.Sink
}

// RunUDP binds the UDP socket(s) and receives datagrams until stop fires
// or an unrecoverable error occurs. Each datagram becomes exactly one
// Write (or WriteDebug) command.
func RunUDP(_ context.Context, opt UDPOptions, stop <-chan struct{}) error {
	if opt.Metric == nil {
		opt.Metric = metrics.Noop{}
	}
	threads := opt.Threads
	if threads < 1 {
		threads = 1
	}

	conns, err := bindUDP(opt.Addr, threads)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBind, err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(conns))

	for _, c := range conns {
		wg.Add(1)
		go func(conn net.PacketConn) {
			defer wg.Done()
			if err := recvLoop(conn, opt, stop); err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		}(c)
	}

	wg.Wait()
	close(errCh)
	return <-errCh
}

// bindUDP opens threads sockets bound to addr. For a single thread, a
// plain net.ListenPacket is used; for multiple threads, each socket is
// configured with SO_REUSEPORT via a ListenConfig.Control hook so the
// kernel distributes datagrams across them (spec.md §4.5 scheduling note).
func bindUDP(addr string, threads int) ([]net.PacketConn, error) {
	if threads == 1 {
		pc, err := net.ListenPacket("udp", addr)
		if err != nil {
			return nil, err
		}
		return []net.PacketConn{pc}, nil
	}

	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}

	conns := make([]net.PacketConn, 0, threads)
	for i := 0; i < threads; i++ {
		pc, err := lc.ListenPacket(context.Background(), "udp", addr)
		if err != nil {
			for _, c := range conns {
				_ = c.Close()
			}
			return nil, err
		}
		conns = append(conns, pc)
	}
	return conns, nil
}

// recvLoop is the per-socket receive loop. It returns nil on a
// shutdown-triggered close and a non-nil error on any other failure.
func recvLoop(conn net.PacketConn, opt UDPOptions, stop <-chan struct{}) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-stop:
			_ = conn.Close() // unblocks the in-flight ReadFrom; UDP semantics: no drain.
		case <-done:
		}
	}()

	ctx := ctxFromStop(stop)
	buf := make([]byte, udpDatagramSize)
	var seq int64

	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
				return err
			}
		}

		opt.Metric.CounterAdd(metrics.UDPDatagramsReceivedTotal, 1)
		opt.Metric.CounterAdd(metrics.MessagesReceivedTotal, 1)

		payload := append([]byte(nil), buf[:n]...)
		var cmd command.Command
		if opt.Debug {
			seq++
			cmd = command.NewWriteDebug("udp", payload, seq)
		} else {
			cmd = command.NewWrite(payload)
		}

		if err := opt.Sender.Send(ctx, cmd); err != nil {
			return nil // channel closed: producer exits quietly
		}
	}
}
