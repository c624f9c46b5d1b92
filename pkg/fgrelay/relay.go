/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// Package fgrelay is the UDP-to-serial control relay: one inbound
// datagram becomes one outbound write, independent of the sample
// pipeline. It shares no state with pkg/pipeline or pkg/stream.
package fgrelay

import (
	"io"
	"net"

	"github.com/greenlab-adc/adc-stream-node/pkg/log"
)

const (
	// MaxPayload is the largest slice of an inbound datagram copied to
	// the relay destination; longer datagrams are truncated.
	MaxPayload = 128
)

// Relay listens on a UDP port and forwards each datagram's payload
// (truncated to MaxPayload bytes, newline-terminated) to dst, which
// stands in for the reference firmware's UART.
type Relay struct {
	conn *net.UDPConn
	dst  io.Writer
}

// Listen binds a UDP socket on addr and returns a Relay ready to Run.
func Listen(addr *net.UDPAddr, dst io.Writer) (*Relay, error) {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Relay{conn: conn, dst: dst}, nil
}

// Close releases the underlying socket.
func (r *Relay) Close() error {
	return r.conn.Close()
}

// Run reads datagrams until stop is closed or the socket errors. Each
// datagram is handled synchronously; the relay does no buffering or
// retry, matching the original's fire-and-forget UART transmit.
func (r *Relay) Run(stop <-chan struct{}) error {
	done := make(chan struct{})
	go func() {
		<-stop
		r.conn.Close()
		close(done)
	}()

	buf := make([]byte, MaxPayload)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-done:
				return nil
			default:
				return err
			}
		}
		if n == 0 {
			continue
		}
		if err := r.handle(buf[:n]); err != nil {
			log.Warning("fgrelay: write failed: %s", err)
		}
	}
}

// handle copies up to MaxPayload bytes of datagram and appends '\n'
// unless it is already newline- or CR-terminated.
func (r *Relay) handle(datagram []byte) error {
	if len(datagram) == 0 {
		return nil
	}
	n := len(datagram)
	if n > MaxPayload {
		n = MaxPayload
	}

	out := make([]byte, n, n+1)
	copy(out, datagram[:n])

	if out[n-1] != '\n' && out[n-1] != '\r' {
		out = append(out, '\n')
	}

	_, err := r.dst.Write(out)
	return err
}
