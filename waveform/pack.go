package waveform

import "math"

// Device word layout: 14-bit offset-binary analog in bits 0-13,
// marker1 in bit 14, marker2 in bit 15. This is the instrument's native
// sample format for direct waveform uploads; it is lossy (14-bit
// quantization) and one-way. The container codec does not use it.

const (
	analogBits = 14
	analogMax  = 1<<analogBits - 1 // 16383
	marker1Bit = 1 << 14
	marker2Bit = 1 << 15
)

// DeviceWords packs the record into device-native 16-bit words.
// -1.0 maps to 0, +1.0 to 16383, rounding to nearest.
func (r *Record) DeviceWords() []uint16 {
	words := make([]uint16, len(r.samples))
	for i, s := range r.samples {
		q := uint16(math.Round((s + 1.0) / 2.0 * analogMax))
		w := q
		if r.marker1[i] == 1 {
			w |= marker1Bit
		}
		if r.marker2[i] == 1 {
			w |= marker2Bit
		}
		words[i] = w
	}
	return words
}

// FromDeviceWords unpacks device words back into samples and markers.
// Samples come back on the 14-bit grid, not the original float values.
func FromDeviceWords(words []uint16) (samples []float64, marker1, marker2 []uint8) {
	samples = make([]float64, len(words))
	marker1 = make([]uint8, len(words))
	marker2 = make([]uint8, len(words))
	for i, w := range words {
		samples[i] = float64(w&analogMax)/analogMax*2.0 - 1.0
		if w&marker1Bit != 0 {
			marker1[i] = 1
		}
		if w&marker2Bit != 0 {
			marker2[i] = 1
		}
	}
	return samples, marker1, marker2
}
