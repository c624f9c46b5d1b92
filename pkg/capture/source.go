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

package capture

import "math"

// SineSource is a SampleSource that synthesizes a quantized sine wave,
// for running the pipeline end to end without real ADC hardware
// attached (cmd/stream run's default when no device driver is wired
// in). It is not a calibrated signal generator: amplitude and
// frequency are chosen for visibility in diagnostics, not accuracy.
type SineSource struct {
	amplitude float64
	center    float64
	step      float64
	phase     float64
}

// NewSineSource builds a source oscillating between center-amplitude
// and center+amplitude, advancing by step radians per sample.
func NewSineSource(amplitude, center, step float64) *SineSource {
	return &SineSource{amplitude: amplitude, center: center, step: step}
}

// Fill writes one quantized sine sample per slot, advancing phase by
// step between samples so consecutive halves continue the same wave.
func (s *SineSource) Fill(half []Sample) {
	for i := range half {
		v := s.center + s.amplitude*math.Sin(s.phase)
		half[i] = quantize(v)
		s.phase += s.step
	}
}

func quantize(v float64) Sample {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return Sample(v)
}
