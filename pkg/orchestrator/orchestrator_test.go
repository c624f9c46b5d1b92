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

package orchestrator

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"

	"github.com/greenlab-adc/adc-stream-node/pkg/capture"
	"github.com/greenlab-adc/adc-stream-node/pkg/config"
	"github.com/greenlab-adc/adc-stream-node/pkg/layers"
)

// constSampleSource fills every sample in a half with a fixed value.
type constSampleSource struct {
	value uint16
}

func (s constSampleSource) Fill(half []capture.Sample) {
	for i := range half {
		half[i] = s.value
	}
}

func testConfig(destPort int) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Pipeline.Channels = 1
	cfg.Pipeline.SamplesPerFrame = 1
	cfg.Pipeline.SampleBits = 16
	cfg.Pipeline.QueueDepth = 4
	cfg.Dest.Address = "127.0.0.1"
	cfg.Dest.Port = destPort
	cfg.Diag.Address = "127.0.0.1"
	cfg.Diag.Port = 0
	cfg.Timing.CapturePeriod = "1ms"
	cfg.Timing.TickPeriod = "1ms"
	return cfg
}

// TestNodeEndToEndSendsFrames wires a single-channel node against a real
// loopback UDP listener and confirms a decodable datagram arrives,
// exercising New/Init/Start/Run/Stop together the way cmd/stream/run.go
// would.
func TestNodeEndToEndSendsFrames(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer listener.Close()

	cfg := testConfig(listener.LocalAddr().(*net.UDPAddr).Port)
	sources := []capture.SampleSource{constSampleSource{value: 7}}

	node, err := New(cfg, sources, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := node.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := node.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer node.Stop()

	go node.Run()

	if err := listener.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	buf := make([]byte, 1500)
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}

	header := &layers.FrameHeader{}
	if err := header.DecodeFromBytes(buf[:n], gopacket.NilDecodeFeedback); err != nil {
		t.Fatalf("DecodeFromBytes: %v", err)
	}
	if header.Channels != 1 || header.SamplesPerCh != 1 || header.SampleBits != 16 {
		t.Fatalf("unexpected header: %+v", header)
	}

	samples, err := layers.DecodeSamples(header.Payload, header.SampleBits)
	if err != nil {
		t.Fatalf("DecodeSamples: %v", err)
	}
	if len(samples) != 1 || samples[0] != 7 {
		t.Fatalf("samples = %v, want [7]", samples)
	}
}

func TestNewRejectsWrongSourceCount(t *testing.T) {
	cfg := testConfig(0)
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatalf("expected an error when no sample sources are given for a one-channel config")
	}
	if _, err := New(cfg, []capture.SampleSource{constSampleSource{}, constSampleSource{}}, nil); err == nil {
		t.Fatalf("expected an error when too many sample sources are given")
	}
}

func TestStopIsSafeWithoutRelayOrCheckpoint(t *testing.T) {
	cfg := testConfig(0)
	sources := []capture.SampleSource{constSampleSource{value: 1}}

	node, err := New(cfg, sources, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := node.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := node.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	node.Stop()
}
