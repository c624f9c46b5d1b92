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

// FlagDropPreceding marks "a drop occurred before this frame was
// produced" in Frame.Flags and, carried through unchanged, in the
// wire header's flags field.
const FlagDropPreceding uint16 = 1 << 0

// Frame is one unit of work handed from the pairing stage to the
// network sender; it corresponds 1:1 to one outgoing datagram's
// payload. Samples always carry the full 16-bit reading internally —
// truncation to 8 bits, when configured, happens only when the frame
// is serialized onto the wire (see pkg/layers), never here. See
// SPEC_FULL.md Open Question OQ-1.
type Frame struct {
	Samples        []uint16
	SampleCount    int
	FirstSampleIdx uint64
	Flags          uint16
}

// reset clears a frame slot for reuse without reallocating Samples.
func (f *Frame) reset() {
	f.SampleCount = 0
	f.FirstSampleIdx = 0
	f.Flags = 0
}
