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

	"github.com/google/gopacket"

	"github.com/greenlab-adc/adc-stream-node/pkg/layers"
	"github.com/greenlab-adc/adc-stream-node/pkg/log"
	"github.com/greenlab-adc/adc-stream-node/pkg/pipeline"
)

// State is the UDP stream state: the socket plus the sender's own
// running packet_sequence and first_sample_index, tracked
// independently of the pipeline's own FirstSampleIdx bookkeeping, the
// same separation the reference firmware's EthStream keeps from the
// pairing stage's next_sample_idx.
type State struct {
	cfg   pipeline.Config
	queue *pipeline.Queue
	latch *pipeline.DropLatch
	sock  Socket

	packetSequence   uint32
	firstSampleIndex uint64
}

// NewState builds sender state over an already-open socket.
func NewState(cfg pipeline.Config, queue *pipeline.Queue, latch *pipeline.DropLatch, sock Socket) (*State, error) {
	if queue == nil || latch == nil || sock == nil {
		return nil, errors.New("stream: queue, latch and socket are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &State{cfg: cfg, queue: queue, latch: latch, sock: sock}, nil
}

// Reset reconnects the socket to addr and zeroes packet_sequence and
// first_sample_index. Idempotent: calling it twice in a row leaves
// exactly one live connection and both counters at zero.
func (s *State) Reset(addr *net.UDPAddr) error {
	s.packetSequence = 0
	s.firstSampleIndex = 0
	return s.sock.Reset(addr)
}

// Send drains the queue to exhaustion, building and submitting one
// datagram per queued frame. It never blocks waiting for more frames:
// once Front returns nil, Send returns.
func (s *State) Send() {
	for {
		frame := s.queue.Front()
		if frame == nil {
			return
		}
		s.sendOne(frame)
		s.queue.Advance()
	}
}

// sendOne implements the send algorithm from the frame already popped.
// Step ordering matches the reference firmware exactly: the header
// fields and the packet_sequence/first_sample_index counters are
// advanced before the socket write is attempted, so a write failure
// still leaves the counters consistent with "one datagram was formed."
func (s *State) sendOne(frame *pipeline.Frame) {
	c := s.cfg.Channels
	if frame.SampleCount <= 0 || frame.SampleCount%c != 0 {
		s.latch.Raise()
		return
	}
	samplesPerCh := uint16(frame.SampleCount / c)

	header := &layers.FrameHeader{
		PacketSeq:      s.packetSequence,
		FirstSampleIdx: s.firstSampleIndex,
		Channels:       uint16(c),
		SamplesPerCh:   samplesPerCh,
		Flags:          frame.Flags,
		SampleBits:     uint16(s.cfg.SampleBits),
	}
	s.packetSequence++
	s.firstSampleIndex += uint64(samplesPerCh)

	payload, err := layers.EncodeSamples(frame.Samples[:frame.SampleCount], header.SampleBits)
	if err != nil {
		log.Error("stream: encoding frame payload: %s", err)
		s.latch.Raise()
		return
	}
	header.Payload = payload

	buf := gopacket.NewSerializeBuffer()
	if err := header.SerializeTo(buf, gopacket.SerializeOptions{}); err != nil {
		log.Error("stream: serializing datagram: %s", err)
		s.latch.Raise()
		return
	}

	if err := s.sock.WriteFrame(buf.Bytes()); err != nil {
		log.Warning("stream: udp write failed, raising drop latch: %s", err)
		s.latch.Raise()
	}
}

// PacketSequence reports the next sequence number to be assigned, for
// diagnostics and checkpointing.
func (s *State) PacketSequence() uint32 {
	return s.packetSequence
}

// FirstSampleIndex reports the running sample index, for diagnostics
// and checkpointing.
func (s *State) FirstSampleIndex() uint64 {
	return s.firstSampleIndex
}

// DropCount reports the cumulative number of drops raised anywhere in
// the pipeline (pairing stalls, queue-full discards, encode/serialize
// failures, and failed socket writes all share the one latch), for
// diagnostics and checkpointing.
func (s *State) DropCount() uint64 {
	return s.latch.Count()
}
