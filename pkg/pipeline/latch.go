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

// DropLatch is a sticky flag recording "at least one loss occurred
// since the last successfully published frame." It is read-modify-
// written from the producer side on overflow/error and set-on-fail
// from the sender side; the producer is the only one who clears it,
// and only at the moment it publishes a frame, so the next delivered
// frame always carries forward any loss that preceded it.
type DropLatch struct {
	raised uint32
	count  uint64
}

// Raise sets the latch and increments the cumulative drop counter.
// Safe to call from any goroutine, any number of times before the next
// TakeAndClear.
func (d *DropLatch) Raise() {
	atomic.StoreUint32(&d.raised, 1)
	atomic.AddUint64(&d.count, 1)
}

// TakeAndClear atomically reads the latch and clears it, returning the
// value to stamp into the frame about to be published. Must only be
// called by the single producer.
func (d *DropLatch) TakeAndClear() uint16 {
	return uint16(atomic.SwapUint32(&d.raised, 0))
}

// Peek reports the current value without clearing it.
func (d *DropLatch) Peek() bool {
	return atomic.LoadUint32(&d.raised) != 0
}

// Count reports the cumulative number of Raise calls since the latch
// was created. Unlike the latch itself, this never clears: it is the
// backing counter for Checkpoint's and the diagnostics API's "drop
// count," which are meant to survive across many publish cycles.
func (d *DropLatch) Count() uint64 {
	return atomic.LoadUint64(&d.count)
}
