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

import "sync/atomic"

// Queue is a fixed-capacity single-producer/single-consumer ring of
// Frame slots. There is no locking: correctness rests entirely on the
// monotone read/write counters and the release-store/acquire-load
// discipline around them. A slot is safe for the consumer to read only
// after it observes the producer's release-store of write, and the
// producer must never reuse a slot the consumer hasn't released via
// Advance.
//
// read and write are unbounded monotone counters, not indices already
// reduced mod Q; the array index is write%Q / read%Q. This gives the
// queue Q full usable slots (empty iff read==write, full iff
// write-read==Q), matching the worked example in the spec ("queue
// capacity 4 filled" by exactly four successful pushes) rather than
// the Q-1-usable variant a naive "(write+1) mod Q == read" sentinel
// would give.
type Queue struct {
	slots []Frame
	write uint64 // producer-owned; release-store, acquire-load by consumer
	read  uint64 // consumer-owned; release-store, acquire-load by producer
}

// NewQueue allocates a queue of depth slots, each pre-sized to hold
// frameSamples uint16s so steady-state operation never allocates.
func NewQueue(depth, frameSamples int) *Queue {
	slots := make([]Frame, depth)
	for i := range slots {
		slots[i].Samples = make([]uint16, frameSamples)
	}
	return &Queue{slots: slots}
}

// Cap returns the queue's fixed capacity Q.
func (q *Queue) Cap() int {
	return len(q.slots)
}

// Len returns the number of frames currently queued. Safe to call from
// either side; the value may be stale by the time it's read.
func (q *Queue) Len() int {
	write := atomic.LoadUint64(&q.write)
	read := atomic.LoadUint64(&q.read)
	return int(write - read)
}

// Reserve returns the slot the producer should populate next, or nil
// if the queue is full. The slot's scalar fields are cleared before
// it's handed back, so a producer that only partially fills a frame
// (e.g. returns early on a channel-count mismatch) never leaks a prior
// cycle's stale SampleCount/FirstSampleIdx/Flags onto the wire.
// Producer-only.
func (q *Queue) Reserve() *Frame {
	depth := uint64(len(q.slots))
	write := q.write // producer-owned, no concurrent writer
	read := atomic.LoadUint64(&q.read)
	if write-read >= depth {
		return nil
	}
	frame := &q.slots[write%depth]
	frame.reset()
	return frame
}

// Publish makes the slot last returned by Reserve visible to the
// consumer. Producer-only; must be called exactly once per successful
// Reserve, after the slot's fields have been fully written.
func (q *Queue) Publish() {
	atomic.StoreUint64(&q.write, q.write+1) // release
}

// Front returns the next unread slot, or nil if the queue is empty.
// Consumer-only. The returned pointer is valid until the next call to
// Advance.
func (q *Queue) Front() *Frame {
	depth := uint64(len(q.slots))
	write := atomic.LoadUint64(&q.write) // acquire
	read := q.read                       // consumer-owned, no concurrent writer
	if read == write {
		return nil
	}
	return &q.slots[read%depth]
}

// Advance releases the slot returned by the last Front call back to
// the producer. Consumer-only; must be called exactly once per
// successful Front, after the caller is done reading the slot.
func (q *Queue) Advance() {
	atomic.StoreUint64(&q.read, q.read+1) // release
}
