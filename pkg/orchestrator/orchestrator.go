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

// Package orchestrator is the single wiring point: capture -> pipeline
// -> stream, plus the independently-started diagnostics API and
// control relay. It mirrors the reference firmware's
// UserCppInit/UserCppProcess split: New wires everything, Init resets
// pairing state and the UDP stream once, Run drives the sender to
// exhaustion on every tick of the configured tick period.
package orchestrator

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/greenlab-adc/adc-stream-node/pkg/capture"
	"github.com/greenlab-adc/adc-stream-node/pkg/config"
	"github.com/greenlab-adc/adc-stream-node/pkg/diag"
	"github.com/greenlab-adc/adc-stream-node/pkg/fgrelay"
	"github.com/greenlab-adc/adc-stream-node/pkg/log"
	"github.com/greenlab-adc/adc-stream-node/pkg/pipeline"
	"github.com/greenlab-adc/adc-stream-node/pkg/stream"
)

// Node owns every long-lived piece of the streaming pipeline for one
// run of the process.
type Node struct {
	cfg *config.Config

	buffers []*capture.ChannelBuffer
	nodes   []*capture.Node
	clk     *capture.Clock

	packer *pipeline.Packer
	queue  *pipeline.Queue
	latch  *pipeline.DropLatch

	sender     *stream.State
	checkpoint *stream.Checkpoint

	diagServer *diag.Server
	relay      *fgrelay.Relay

	stop chan struct{}
}

// New allocates every buffer and stage but does not start anything;
// call Init then Start.
func New(cfg *config.Config, sources []capture.SampleSource, relayDst io.Writer) (*Node, error) {
	pcfg := cfg.ToPipelineConfig()
	if err := pcfg.Validate(); err != nil {
		return nil, err
	}
	if len(sources) != pcfg.Channels {
		return nil, errors.New("orchestrator: one sample source is required per configured channel")
	}

	n := &Node{cfg: cfg, stop: make(chan struct{})}

	n.buffers = make([]*capture.ChannelBuffer, pcfg.Channels)
	for i := range n.buffers {
		n.buffers[i] = capture.NewChannelBuffer(pcfg.SamplesPerFrame)
	}

	n.queue = pipeline.NewQueue(pcfg.QueueDepth, pcfg.FrameSamples())
	n.latch = &pipeline.DropLatch{}

	packer, err := pipeline.NewPacker(pcfg, n.buffers, n.queue, n.latch)
	if err != nil {
		return nil, err
	}
	n.packer = packer

	n.nodes = make([]*capture.Node, pcfg.Channels)
	for i := range n.nodes {
		adc := i
		node, err := capture.NewNode(adc, n.buffers[i], sources[i], n.packer.MarkReady)
		if err != nil {
			return nil, err
		}
		n.nodes[i] = node
	}

	sock, err := stream.NewUDPSocket(mustResolve(cfg))
	if err != nil {
		return nil, err
	}
	sender, err := stream.NewState(pcfg, n.queue, n.latch, sock)
	if err != nil {
		return nil, err
	}
	n.sender = sender

	if cfg.Checkpoint.Path != "" {
		cp, err := stream.OpenCheckpoint(cfg.Checkpoint.Path)
		if err != nil {
			log.Warning("orchestrator: checkpoint disabled, failed to open: %s", err)
		} else {
			n.checkpoint = cp
		}
	}

	n.diagServer = diag.NewServer(cfg.DiagAddr(), n.sender, n.queue.Len, n.latch.Peek, n.Reset)

	if relayDst != nil {
		controlAddr, err := cfg.ControlAddr()
		if err != nil {
			return nil, err
		}
		relay, err := fgrelay.Listen(controlAddr, relayDst)
		if err != nil {
			return nil, err
		}
		n.relay = relay
	}

	return n, nil
}

func mustResolve(cfg *config.Config) *net.UDPAddr {
	addr, err := cfg.DestAddr()
	if err != nil {
		// cfg.DestAddr only fails on a malformed address, which Init's
		// caller should have caught at config-load time; we still
		// surface a usable zero-value rather than panicking.
		log.Error("orchestrator: invalid destination address: %s", err)
		return &net.UDPAddr{}
	}
	return addr
}

// Init resets pairing state, the drop latch, and the UDP stream
// (equivalent to the reference firmware's AdcHandler::Init +
// EthStream::Reset).
func (n *Node) Init() error {
	n.packer.Reset()
	addr, err := n.cfg.DestAddr()
	if err != nil {
		return err
	}
	return n.sender.Reset(addr)
}

// Reset re-arms the sender against the configured destination without
// touching pairing state or restarting capture, for the diagnostics
// API and "stream reset" to call on an already-running node.
func (n *Node) Reset() error {
	addr, err := n.cfg.DestAddr()
	if err != nil {
		return err
	}
	return n.sender.Reset(addr)
}

// Start creates the shared clock and arms every capture node's
// goroutine, then starts the diagnostics API, the control relay (if
// configured) and the checkpoint store (if open). A clock failure is
// returned as an error; errors from the diagnostics API and relay
// goroutines are logged, not returned.
func (n *Node) Start() error {
	clk, err := capture.NewClock(n.cfg.CapturePeriod())
	if err != nil {
		return err
	}
	n.clk = clk

	for _, node := range n.nodes {
		go node.Run(n.stop, n.clk)
	}

	if n.diagServer != nil {
		go func() {
			if err := n.diagServer.ListenAndServe(); err != nil {
				log.Error("orchestrator: diagnostics API stopped: %s", err)
			}
		}()
	}

	if n.relay != nil {
		go func() {
			if err := n.relay.Run(n.stop); err != nil {
				log.Error("orchestrator: control relay stopped: %s", err)
			}
		}()
	}

	if n.checkpoint != nil {
		go n.checkpoint.Run(n.stop, n.cfg.CheckpointPeriod(), n.sender)
	}

	return nil
}

// Run drives the sender to exhaustion on every tick of the configured
// tick period; it must be called frequently enough that the frame
// queue never saturates under normal rates, mirroring
// UserCppProcess's call to AdcHandler::Process.
func (n *Node) Run() {
	ticker := time.NewTicker(n.cfg.TickPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n.sender.Send()
		case <-n.stop:
			n.sender.Send() // drain whatever is left before exiting
			return
		}
	}
}

// Stop signals every goroutine started by Start to exit and releases
// the clock, diagnostics listener, checkpoint store and relay socket.
func (n *Node) Stop() {
	close(n.stop)
	if n.clk != nil {
		n.clk.Stop()
	}
	if n.diagServer != nil {
		if err := n.diagServer.Close(); err != nil {
			log.Warning("orchestrator: diagnostics API shutdown: %s", err)
		}
	}
	if n.checkpoint != nil {
		n.checkpoint.Close()
	}
	if n.relay != nil {
		n.relay.Close()
	}
}
