// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV writes a 16-bit WAV file with the given per-channel
// sample generator and returns its path.
func writeTestWAV(t *testing.T, sampleRate, channels, frames int, sample func(frame, channel int) int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = sample(i, ch)
		}
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecodeWAVMono(t *testing.T) {
	const frames = 4410
	path := writeTestWAV(t, 44100, 1, frames, func(frame, _ int) int {
		return int(math.Sin(2*math.Pi*440*float64(frame)/44100) * 16000)
	})

	buf, err := DecodeWAVFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if buf.SampleRate != 44100 {
		t.Errorf("SampleRate = %f, want 44100", buf.SampleRate)
	}
	if buf.Len() != frames {
		t.Errorf("Len = %d, want %d", buf.Len(), frames)
	}
	for i, s := range buf.Samples {
		if s < -1 || s >= 1 {
			t.Fatalf("sample %d = %f outside [-1, 1)", i, s)
		}
	}
	if got := buf.Duration().Seconds(); math.Abs(got-0.1) > 1e-6 {
		t.Errorf("Duration = %fs, want 0.1s", got)
	}
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	// Left and right carry opposite constants: the mono mix is zero.
	path := writeTestWAV(t, 44100, 2, 1000, func(_, ch int) int {
		if ch == 0 {
			return 8000
		}
		return -8000
	})

	buf, err := DecodeWAVFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 1000 {
		t.Errorf("Len = %d, want 1000 frames after downmix", buf.Len())
	}
	for i, s := range buf.Samples {
		if math.Abs(s) > 1e-9 {
			t.Fatalf("downmixed sample %d = %f, want 0", i, s)
		}
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeWAVFile(path); err == nil {
		t.Error("expected an error for a non-WAV file")
	}

	if _, err := DecodeWAVFile(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
