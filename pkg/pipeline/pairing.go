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

package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/greenlab-adc/adc-stream-node/pkg/capture"
)

// pendingPair is the 2x2 readiness matrix keyed by (adc, half): bit a
// of ready[h] is set once ADC a has signaled half h. A half is ready
// to pack once every ADC's bit is set for it.
type pendingPair struct {
	ready [2]uint8
}

// Packer is the half-pairing/packer stage. It is invoked from every
// ADC's capture goroutine via MarkReady; those calls are the spec's
// "interrupt context," and Packer treats them as a single logical
// producer by serializing them with an internal mutex — on real
// hardware the four DMA callbacks can never truly run concurrently
// with each other, but the goroutines standing in for them here can,
// so the mutex is what restores that single-producer guarantee. It
// does not appear anywhere near the frame Queue's own read/write
// indices, which stay lock-free per the spec.
type Packer struct {
	cfg     Config
	buffers []*capture.ChannelBuffer
	queue   *Queue
	latch   *DropLatch

	mu      sync.Mutex
	pending pendingPair
	nextIdx uint64
	allMask uint8
}

// NewPacker builds a packer over one ChannelBuffer per ADC (len(buffers)
// must equal cfg.Channels), publishing frames onto queue.
func NewPacker(cfg Config, buffers []*capture.ChannelBuffer, queue *Queue, latch *DropLatch) (*Packer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(buffers) != cfg.Channels {
		return nil, fmt.Errorf("pipeline: expected %d channel buffers, got %d", cfg.Channels, len(buffers))
	}
	for i, b := range buffers {
		if b == nil {
			return nil, fmt.Errorf("pipeline: channel buffer %d is nil", i)
		}
		if b.HalfLen() != cfg.SamplesPerFrame {
			return nil, fmt.Errorf("pipeline: channel buffer %d half length %d does not match SamplesPerFrame %d", i, b.HalfLen(), cfg.SamplesPerFrame)
		}
	}
	if queue == nil || latch == nil {
		return nil, errors.New("pipeline: queue and latch are required")
	}
	if queue.Cap() == 0 {
		return nil, errors.New("pipeline: queue must have non-zero capacity")
	}
	return &Packer{
		cfg:     cfg,
		buffers: buffers,
		queue:   queue,
		latch:   latch,
		allMask: uint8(1<<uint(cfg.Channels) - 1),
	}, nil
}

// Reset clears pairing state, the drop latch and the monotone sample
// index. Intended to be called once during bring-up, before capture
// starts.
func (p *Packer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = pendingPair{}
	p.latch.TakeAndClear()
	p.nextIdx = 0
}

// MarkReady is the event entry point for one ADC's half/full
// transfer. adc is the zero-based ADC index; half is 0 for half-done,
// 1 for full-done. Safe to call concurrently from different ADCs.
func (p *Packer) MarkReady(adc, half int) {
	if half < 0 || half > 1 || adc < 0 || adc >= p.cfg.Channels {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bit := uint8(1) << uint(adc)
	prev := p.pending.ready[half]
	if prev&bit != 0 {
		// The previous pair for this half never completed before this
		// ADC signaled it again: the stale half was never packed.
		p.latch.Raise()
	}
	p.pending.ready[half] = prev | bit

	if p.pending.ready[half] != p.allMask {
		return
	}
	p.pending.ready[half] = 0
	p.enqueue(half)
}

// enqueue builds and publishes one frame from half h of every ADC
// buffer. Called with mu held.
func (p *Packer) enqueue(half int) {
	s := p.cfg.SamplesPerFrame
	c := p.cfg.Channels
	if s == 0 || c == 0 {
		p.latch.Raise()
		return
	}

	frame := p.queue.Reserve()
	if frame == nil {
		// Queue full: the half is discarded, not retried.
		p.latch.Raise()
		return
	}

	firstIdx := p.nextIdx
	p.nextIdx += uint64(s)

	for i := 0; i < s; i++ {
		for ch := 0; ch < c; ch++ {
			frame.Samples[i*c+ch] = p.buffers[ch].Half(half)[i]
		}
	}
	frame.SampleCount = s * c
	frame.FirstSampleIdx = firstIdx
	frame.Flags = p.latch.TakeAndClear()

	p.queue.Publish()
}
