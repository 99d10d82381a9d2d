// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"

	applog "beatgrid/internal/log"

	"github.com/go-audio/wav"
)

// DecodeWAVFile reads a WAV file and returns its contents as a mono,
// normalized PCMBuffer. Multi-channel files are downmixed by averaging.
func DecodeWAVFile(path string) (*PCMBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("decode %s: not a valid WAV file", path)
	}

	intBuf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if intBuf == nil || len(intBuf.Data) == 0 {
		return nil, fmt.Errorf("decode %s: no audio samples", path)
	}

	channels := intBuf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	sampleRate := float64(intBuf.Format.SampleRate)

	// Normalize by the full scale of the source bit depth so 16-bit and
	// 24-bit files land in the same [-1, 1) range.
	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))

	frames := len(intBuf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(intBuf.Data[i*channels+ch])
		}
		samples[i] = sum / float64(channels) * scale
	}

	applog.Debugf("Audio: decoded %s (%d samples, %.0f Hz, %d ch, %d bit)",
		path, frames, sampleRate, channels, bitDepth)

	return &PCMBuffer{Samples: samples, SampleRate: sampleRate}, nil
}
