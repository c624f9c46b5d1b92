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

// Package capture models the DMA double-buffer capture layer: one
// contiguous ring per ADC, organized as two halves, with half/full
// readiness events raised as the not-filling half becomes stable.
//
// On real hardware this is a circular DMA transfer and the two events
// arrive from interrupt context. Here each ADC is driven by a
// SampleSource invoked from its own goroutine; the goroutine plays the
// role of the interrupt handler and raises each readiness event by
// calling its EventFunc synchronously.
package capture

import (
	"errors"
	"time"
)

// Sample is one ADC reading, carried as a 16-bit word.
type Sample = uint16

// ChannelBuffer is one ADC's DMA buffer: 2*HalfLen samples, organized
// as two stable/filling halves that swap on every half-transfer.
type ChannelBuffer struct {
	samples []Sample
	halfLen int
}

// NewChannelBuffer allocates a double buffer of 2*halfLen samples.
func NewChannelBuffer(halfLen int) *ChannelBuffer {
	return &ChannelBuffer{
		samples: make([]Sample, 2*halfLen),
		halfLen: halfLen,
	}
}

// HalfLen returns the number of samples in one half.
func (b *ChannelBuffer) HalfLen() int {
	return b.halfLen
}

// Raw returns the full 2*HalfLen backing slice, for direct population
// by a SampleSource or a test harness.
func (b *ChannelBuffer) Raw() []Sample {
	return b.samples
}

// Half returns the slice for half h (0 or 1). The caller must only
// read a half that is not currently being filled by the source.
func (b *ChannelBuffer) Half(h int) []Sample {
	base := h * b.halfLen
	return b.samples[base : base+b.halfLen]
}

// SampleSource fills one half of a ChannelBuffer with freshly converted
// samples; it stands in for the ADC+DMA hardware, which is out of
// scope for this package.
type SampleSource interface {
	Fill(half []Sample)
}

// EventFunc is called once per half/full transfer for one ADC. adc is
// the ADC index (0-based), half is 0 for half-done and 1 for
// full-done, matching the spec's "mark_ready(a, half)" contract. It
// must not block.
type EventFunc func(adc, half int)

// Clock is the shared periodic trigger driving every ADC's conversions
// in lock-step, standing in for the hardware sample-clock timer.
type Clock struct {
	ticker *time.Ticker
}

// NewClock starts a periodic trigger firing every period.
func NewClock(period time.Duration) (*Clock, error) {
	if period <= 0 {
		return nil, errors.New("capture: clock period must be positive")
	}
	return &Clock{ticker: time.NewTicker(period)}, nil
}

// C returns the channel the clock ticks on.
func (c *Clock) C() <-chan time.Time {
	return c.ticker.C
}

// Stop releases the underlying ticker. Idempotent.
func (c *Clock) Stop() {
	c.ticker.Stop()
}

// Node drives one ADC's ChannelBuffer from a SampleSource, raising
// on for every half/full transfer. It owns no pairing logic: Node only
// knows about its own buffer and its own half cursor.
type Node struct {
	buf    *ChannelBuffer
	src    SampleSource
	adc    int
	on     EventFunc
	filled int // which half is currently being filled, 0 or 1
}

// NewNode builds a capture node for one ADC. adc identifies the ADC in
// calls to on (the EventFunc).
func NewNode(adc int, buf *ChannelBuffer, src SampleSource, on EventFunc) (*Node, error) {
	if buf == nil || src == nil || on == nil {
		return nil, errors.New("capture: buffer, source and event func are required")
	}
	if buf.HalfLen() == 0 {
		return nil, errors.New("capture: half length must be non-zero")
	}
	return &Node{buf: buf, src: src, adc: adc, on: on}, nil
}

// Convert fills the currently-filling half and raises the
// corresponding event, then swaps which half is being filled. Called
// once per clock tick from the node's own goroutine; this is the
// simulated equivalent of one DMA half-cycle completing.
func (n *Node) Convert() {
	half := n.filled
	n.src.Fill(n.buf.Half(half))
	n.on(n.adc, half)
	n.filled = 1 - half
}

// Run drives Convert on every clock tick until stop is closed. It is
// meant to be started as its own goroutine, one per ADC, so the two
// ADCs never serialize behind each other's SampleSource.
func (n *Node) Run(stop <-chan struct{}, clk *Clock) {
	for {
		select {
		case <-clk.C():
			n.Convert()
		case <-stop:
			return
		}
	}
}
