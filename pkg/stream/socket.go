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

// Package stream implements the foreground network sender: draining
// the frame queue, building a datagram, and submitting it to a UDP
// socket standing in for the reference firmware's lwIP PCB.
package stream

import "net"

// Socket is the minimal surface the sender needs from a UDP
// connection: write one already-connected datagram, or tear down and
// reconnect elsewhere. It plays the role of the reference firmware's
// udp_new/udp_connect/udp_send/pbuf_alloc/pbuf_free quartet, reduced
// to send, reconnect and close.
type Socket interface {
	WriteFrame(b []byte) error
	Reset(addr *net.UDPAddr) error
	Close() error
}

// UDPSocket is a Socket backed by a connected *net.UDPConn.
type UDPSocket struct {
	conn *net.UDPConn
}

// NewUDPSocket dials addr and returns a ready-to-use socket.
func NewUDPSocket(addr *net.UDPAddr) (*UDPSocket, error) {
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	return &UDPSocket{conn: conn}, nil
}

// WriteFrame submits one datagram. There is no retry: a failed write
// is reported to the caller, who is responsible for raising the
// drop-latch.
func (s *UDPSocket) WriteFrame(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

// Reset closes the current connection, if any, and dials addr.
func (s *UDPSocket) Reset(addr *net.UDPAddr) error {
	if s.conn != nil {
		s.conn.Close()
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		s.conn = nil
		return err
	}
	s.conn = conn
	return nil
}

// Close releases the underlying connection.
func (s *UDPSocket) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
