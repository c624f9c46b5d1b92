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

import "testing"

func TestQueueEmptyAndFull(t *testing.T) {
	q := NewQueue(4, 8)

	if f := q.Front(); f != nil {
		t.Fatalf("expected empty queue, got a frame")
	}

	for i := 0; i < 4; i++ {
		frame := q.Reserve()
		if frame == nil {
			t.Fatalf("push %d: expected room, queue reported full", i)
		}
		frame.FirstSampleIdx = uint64(i)
		q.Publish()
	}

	if frame := q.Reserve(); frame != nil {
		t.Fatalf("expected queue full after 4 pushes into depth-4 queue")
	}

	for i := 0; i < 4; i++ {
		frame := q.Front()
		if frame == nil {
			t.Fatalf("pop %d: expected a frame, queue reported empty", i)
		}
		if frame.FirstSampleIdx != uint64(i) {
			t.Fatalf("pop %d: got FirstSampleIdx %d, want %d", i, frame.FirstSampleIdx, i)
		}
		q.Advance()
	}

	if f := q.Front(); f != nil {
		t.Fatalf("expected empty queue after draining, got a frame")
	}
}

func TestQueueDepthOne(t *testing.T) {
	q := NewQueue(1, 1)

	if frame := q.Reserve(); frame == nil {
		t.Fatalf("first push into depth-1 queue should succeed")
	}
	q.Publish()

	if frame := q.Reserve(); frame != nil {
		t.Fatalf("second push without a consumer running should fail")
	}

	if frame := q.Front(); frame == nil {
		t.Fatalf("expected the published frame to be visible")
	}
	q.Advance()

	if frame := q.Reserve(); frame == nil {
		t.Fatalf("push after drain should succeed again")
	}
}

func TestQueueLen(t *testing.T) {
	q := NewQueue(4, 2)
	if got := q.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
	q.Reserve()
	q.Publish()
	q.Reserve()
	q.Publish()
	if got := q.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	q.Front()
	q.Advance()
	if got := q.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}
