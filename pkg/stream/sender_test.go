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

package stream

import (
	"errors"
	"net"
	"testing"

	"github.com/greenlab-adc/adc-stream-node/pkg/layers"
	"github.com/greenlab-adc/adc-stream-node/pkg/pipeline"
)

// fakeSocket records every write and can be told to fail the next N
// writes, standing in for a udp_send that rejects a datagram.
type fakeSocket struct {
	writes   [][]byte
	failNext int
	resets   []*net.UDPAddr
	closed   bool
}

func (s *fakeSocket) WriteFrame(b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	s.writes = append(s.writes, cp)
	if s.failNext > 0 {
		s.failNext--
		return errors.New("fake send failure")
	}
	return nil
}

func (s *fakeSocket) Reset(addr *net.UDPAddr) error {
	s.resets = append(s.resets, addr)
	return nil
}

func (s *fakeSocket) Close() error {
	s.closed = true
	return nil
}

func testCfg() pipeline.Config {
	return pipeline.Config{Channels: 2, SamplesPerFrame: 4, SampleBits: 16, QueueDepth: 4}
}

func pushFrame(t *testing.T, q *pipeline.Queue, samples []uint16, flags uint16, firstIdx uint64) {
	t.Helper()
	f := q.Reserve()
	if f == nil {
		t.Fatalf("queue unexpectedly full")
	}
	copy(f.Samples, samples)
	f.SampleCount = len(samples)
	f.Flags = flags
	f.FirstSampleIdx = firstIdx
	q.Publish()
}

func decodeHeader(t *testing.T, raw []byte) *layers.FrameHeader {
	t.Helper()
	h := &layers.FrameHeader{}
	if err := h.DecodeFromBytes(raw, gopacketNilFeedback{}); err != nil {
		t.Fatalf("DecodeFromBytes: %v", err)
	}
	return h
}

// gopacketNilFeedback avoids importing gopacket just for its exported
// NilDecodeFeedback in every test file.
type gopacketNilFeedback struct{}

func (gopacketNilFeedback) SetTruncated() {}

func TestSendHappyPath(t *testing.T) {
	cfg := testCfg()
	queue := pipeline.NewQueue(cfg.QueueDepth, cfg.FrameSamples())
	latch := &pipeline.DropLatch{}
	sock := &fakeSocket{}
	st, err := NewState(cfg, queue, latch, sock)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	pushFrame(t, queue, []uint16{1, 10, 2, 20, 3, 30, 4, 40}, 0, 0)
	st.Send()

	if len(sock.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(sock.writes))
	}
	h := decodeHeader(t, sock.writes[0])
	if h.PacketSeq != 0 || h.FirstSampleIdx != 0 || h.Channels != 2 || h.SamplesPerCh != 4 || h.Flags != 0 || h.SampleBits != 16 {
		t.Fatalf("header = %+v, want seq=0 idx=0 ch=2 spc=4 flags=0 bits=16", h)
	}
	if st.PacketSequence() != 1 || st.FirstSampleIndex() != 4 {
		t.Fatalf("counters after send = seq:%d idx:%d, want seq:1 idx:4", st.PacketSequence(), st.FirstSampleIndex())
	}
}

// TestSendFailureStillAdvancesCounters is spec scenario 5.
func TestSendFailureStillAdvancesCounters(t *testing.T) {
	cfg := testCfg()
	queue := pipeline.NewQueue(cfg.QueueDepth, cfg.FrameSamples())
	latch := &pipeline.DropLatch{}
	sock := &fakeSocket{failNext: 1}
	st, err := NewState(cfg, queue, latch, sock)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	pushFrame(t, queue, []uint16{1, 10, 2, 20, 3, 30, 4, 40}, 0, 0)
	st.Send()

	if st.PacketSequence() != 1 || st.FirstSampleIndex() != 4 {
		t.Fatalf("counters must advance even on send failure: seq:%d idx:%d", st.PacketSequence(), st.FirstSampleIndex())
	}
	if !latch.Peek() {
		t.Fatalf("expected the drop latch to be raised after a send failure")
	}

	pushFrame(t, queue, []uint16{5, 50, 6, 60, 7, 70, 8, 80}, latch.TakeAndClear(), 4)
	st.Send()

	h := decodeHeader(t, sock.writes[1])
	if h.PacketSeq != 1 || h.Flags&layers.FlagDropPreceding == 0 {
		t.Fatalf("second datagram = %+v, want seq=1 flags bit 0 set", h)
	}
}

// TestResetMidStream is spec scenario 6.
func TestResetMidStream(t *testing.T) {
	cfg := testCfg()
	queue := pipeline.NewQueue(cfg.QueueDepth, cfg.FrameSamples())
	latch := &pipeline.DropLatch{}
	sock := &fakeSocket{}
	st, err := NewState(cfg, queue, latch, sock)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	pushFrame(t, queue, []uint16{1, 10, 2, 20, 3, 30, 4, 40}, 0, 0)
	st.Send()
	if st.PacketSequence() == 0 {
		t.Fatalf("expected packet sequence to have advanced before reset")
	}

	addr := &net.UDPAddr{IP: net.IPv4(192, 168, 10, 1), Port: 5000}
	if err := st.Reset(addr); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if st.PacketSequence() != 0 || st.FirstSampleIndex() != 0 {
		t.Fatalf("counters after reset = seq:%d idx:%d, want 0 0", st.PacketSequence(), st.FirstSampleIndex())
	}

	pushFrame(t, queue, []uint16{5, 50, 6, 60, 7, 70, 8, 80}, 0, 4)
	st.Send()
	h := decodeHeader(t, sock.writes[len(sock.writes)-1])
	if h.PacketSeq != 0 || h.FirstSampleIdx != 0 {
		t.Fatalf("post-reset datagram = %+v, want seq=0 idx=0", h)
	}

	// Reset is idempotent: calling it again leaves exactly one live
	// connection and the counters still at zero.
	if err := st.Reset(addr); err != nil {
		t.Fatalf("second Reset: %v", err)
	}
	if len(sock.resets) != 2 {
		t.Fatalf("expected exactly 2 underlying resets, got %d", len(sock.resets))
	}
	if st.PacketSequence() != 0 || st.FirstSampleIndex() != 0 {
		t.Fatalf("counters after second reset = seq:%d idx:%d, want 0 0", st.PacketSequence(), st.FirstSampleIndex())
	}
}

func TestSendInvalidFrameShapeRaisesLatch(t *testing.T) {
	cfg := testCfg()
	queue := pipeline.NewQueue(cfg.QueueDepth, cfg.FrameSamples())
	latch := &pipeline.DropLatch{}
	sock := &fakeSocket{}
	st, err := NewState(cfg, queue, latch, sock)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	f := queue.Reserve()
	f.SampleCount = 3 // not a multiple of Channels=2
	queue.Publish()

	st.Send()
	if len(sock.writes) != 0 {
		t.Fatalf("expected no datagram for an invalid frame shape")
	}
	if !latch.Peek() {
		t.Fatalf("expected the drop latch to be raised for an invalid frame shape")
	}
}

func TestSendEmptyQueueIsNoop(t *testing.T) {
	cfg := testCfg()
	queue := pipeline.NewQueue(cfg.QueueDepth, cfg.FrameSamples())
	latch := &pipeline.DropLatch{}
	sock := &fakeSocket{}
	st, err := NewState(cfg, queue, latch, sock)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	st.Send()
	if len(sock.writes) != 0 {
		t.Fatalf("expected no writes on an empty queue")
	}
}
