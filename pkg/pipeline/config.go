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

import "fmt"

// Config holds the build-time parameters of the sample pipeline. The
// reference firmware fixes these at compile time; here they are
// checked by Validate when a Packer is built and then treated as
// immutable for its lifetime, which is the closest Go equivalent that still lets
// one binary serve more than one (C, SampleBits) build.
type Config struct {
	// Channels is the number of ADCs interleaved per time-step (C).
	Channels int
	// SamplesPerFrame is the number of time-steps per frame (S).
	SamplesPerFrame int
	// SampleBits is the wire width of one sample: 8 or 16.
	SampleBits int
	// QueueDepth is the frame queue capacity (Q).
	QueueDepth int
}

// Validate checks the invariants the spec requires at init time.
func (c Config) Validate() error {
	if c.Channels <= 0 {
		return fmt.Errorf("pipeline: channels must be positive, got %d", c.Channels)
	}
	if c.SamplesPerFrame <= 0 {
		return fmt.Errorf("pipeline: samples per frame must be positive, got %d", c.SamplesPerFrame)
	}
	if c.SampleBits != 8 && c.SampleBits != 16 {
		return fmt.Errorf("pipeline: sample bits must be 8 or 16, got %d", c.SampleBits)
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("pipeline: queue depth must be positive, got %d", c.QueueDepth)
	}
	return nil
}

// FrameSamples is S*C, the number of interleaved samples per frame.
func (c Config) FrameSamples() int {
	return c.SamplesPerFrame * c.Channels
}
