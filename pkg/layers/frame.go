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

// Package layers implements the on-wire datagram layout as a
// gopacket.Layer, the same way the teacher encodes MLink/MStream: a
// header struct with a SerializeTo/DecodeFromBytes pair and a
// registered LayerType, no ad-hoc byte-offset code anywhere else in
// the repo.
package layers

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"sigs.k8s.io/yaml"
)

const (
	// FrameHeaderLayerNum identifies the layer in gopacket's registry.
	FrameHeaderLayerNum = 2001

	// FrameHeaderSize is the fixed, unpadded header length in bytes.
	FrameHeaderSize = 20

	// FlagDropPreceding is bit 0 of the header's flags field: at least
	// one frame was lost between this datagram and the previous one.
	FlagDropPreceding uint16 = 1 << 0
)

// FrameHeader is the 20-byte little-endian datagram header:
//
//	offset  size  field
//	     0     4  packet_seq
//	     4     8  first_sample_idx
//	    12     2  channels
//	    14     2  samples_per_ch
//	    16     2  flags
//	    18     2  sample_bits
//	    20     —  payload
type FrameHeader struct {
	layers.BaseLayer
	PacketSeq      uint32
	FirstSampleIdx uint64
	Channels       uint16
	SamplesPerCh   uint16
	Flags          uint16
	SampleBits     uint16
}

var FrameHeaderLayerType = gopacket.RegisterLayerType(FrameHeaderLayerNum,
	gopacket.LayerTypeMetadata{Name: "FrameHeaderLayerType", Decoder: gopacket.DecodeFunc(DecodeFrameHeaderLayer)})

// LayerType returns FrameHeaderLayerType.
func (h *FrameHeader) LayerType() gopacket.LayerType {
	return FrameHeaderLayerType
}

// SerializeHeader writes just the fixed header fields into buf, which
// must be at least FrameHeaderSize bytes. Split out from SerializeTo
// so callers needing the raw header bytes (e.g. for a checksum) don't
// have to round-trip through a gopacket.SerializeBuffer.
func (h *FrameHeader) SerializeHeader(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.PacketSeq)
	binary.LittleEndian.PutUint64(buf[4:12], h.FirstSampleIdx)
	binary.LittleEndian.PutUint16(buf[12:14], h.Channels)
	binary.LittleEndian.PutUint16(buf[14:16], h.SamplesPerCh)
	binary.LittleEndian.PutUint16(buf[16:18], h.Flags)
	binary.LittleEndian.PutUint16(buf[18:20], h.SampleBits)
}

// SerializeTo serializes the header, then the already-encoded payload
// carried in h.Payload, into b.
func (h *FrameHeader) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	payload, err := b.AppendBytes(len(h.Payload))
	if err != nil {
		return err
	}
	copy(payload, h.Payload)

	headerBytes, err := b.PrependBytes(FrameHeaderSize)
	if err != nil {
		return err
	}
	h.SerializeHeader(headerBytes)
	return nil
}

// DecodeFromBytes parses data as a FrameHeader plus trailing payload.
func (h *FrameHeader) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < FrameHeaderSize {
		df.SetTruncated()
		return errors.New("layers: datagram shorter than frame header")
	}

	h.BaseLayer = layers.BaseLayer{
		Contents: data[0:FrameHeaderSize],
		Payload:  data[FrameHeaderSize:],
	}

	h.PacketSeq = binary.LittleEndian.Uint32(data[0:4])
	h.FirstSampleIdx = binary.LittleEndian.Uint64(data[4:12])
	h.Channels = binary.LittleEndian.Uint16(data[12:14])
	h.SamplesPerCh = binary.LittleEndian.Uint16(data[14:16])
	h.Flags = binary.LittleEndian.Uint16(data[16:18])
	h.SampleBits = binary.LittleEndian.Uint16(data[18:20])

	if h.SampleBits != 8 && h.SampleBits != 16 {
		return fmt.Errorf("layers: unsupported sample_bits %d", h.SampleBits)
	}
	wantLen := int(h.SamplesPerCh) * int(h.Channels) * bytesPerSample(h.SampleBits)
	if len(h.Payload) != wantLen {
		return fmt.Errorf("layers: payload length %d does not match header (want %d)", len(h.Payload), wantLen)
	}
	return nil
}

// NextLayerType reports that the payload is raw sample data, not a
// further gopacket layer.
func (h *FrameHeader) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

// DecodeFrameHeaderLayer is the gopacket.DecodeFunc registered for
// FrameHeaderLayerType.
func DecodeFrameHeaderLayer(data []byte, p gopacket.PacketBuilder) error {
	h := &FrameHeader{}
	if err := h.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(h)
	return p.NextDecoder(h.NextLayerType())
}

func bytesPerSample(sampleBits uint16) int {
	if sampleBits == 8 {
		return 1
	}
	return 2
}

// EncodeSamples writes samples into the header's Payload, narrowing to
// the low byte of each sample when sampleBits is 8. This is the only
// place truncation happens: Frame.Samples upstream always carries full
// 16-bit values.
func EncodeSamples(samples []uint16, sampleBits uint16) ([]byte, error) {
	switch sampleBits {
	case 16:
		buf := make([]byte, len(samples)*2)
		for i, s := range samples {
			binary.LittleEndian.PutUint16(buf[i*2:i*2+2], s)
		}
		return buf, nil
	case 8:
		buf := make([]byte, len(samples))
		for i, s := range samples {
			buf[i] = byte(s)
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("layers: unsupported sample_bits %d", sampleBits)
	}
}

// DecodeSamples is the inverse of EncodeSamples.
func DecodeSamples(payload []byte, sampleBits uint16) ([]uint16, error) {
	switch sampleBits {
	case 16:
		if len(payload)%2 != 0 {
			return nil, errors.New("layers: 16-bit payload has odd length")
		}
		samples := make([]uint16, len(payload)/2)
		for i := range samples {
			samples[i] = binary.LittleEndian.Uint16(payload[i*2 : i*2+2])
		}
		return samples, nil
	case 8:
		samples := make([]uint16, len(payload))
		for i, b := range payload {
			samples[i] = uint16(b)
		}
		return samples, nil
	default:
		return nil, fmt.Errorf("layers: unsupported sample_bits %d", sampleBits)
	}
}

// debugFrameHeader mirrors the wire fields in a form sigs.k8s.io/yaml
// can marshal cleanly (FrameHeader itself embeds layers.BaseLayer,
// which isn't a useful debug dump).
type debugFrameHeader struct {
	PacketSeq      uint32 `json:"packet_seq"`
	FirstSampleIdx uint64 `json:"first_sample_idx"`
	Channels       uint16 `json:"channels"`
	SamplesPerCh   uint16 `json:"samples_per_ch"`
	Flags          uint16 `json:"flags"`
	SampleBits     uint16 `json:"sample_bits"`
	PayloadLen     int    `json:"payload_len"`
}

// DebugString renders the header as YAML for debug-level tracing. Never
// called from the send/receive fast path.
func (h *FrameHeader) DebugString() string {
	d := debugFrameHeader{
		PacketSeq:      h.PacketSeq,
		FirstSampleIdx: h.FirstSampleIdx,
		Channels:       h.Channels,
		SamplesPerCh:   h.SamplesPerCh,
		Flags:          h.Flags,
		SampleBits:     h.SampleBits,
		PayloadLen:     len(h.Payload),
	}
	out, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Sprintf("<frame header debug string error: %s>", err)
	}
	return string(out)
}
