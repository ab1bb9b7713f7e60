// Package pcmwav holds the mono-PCM-float audio buffer type the chunk
// planner and dispatcher pass around, plus its canonical 16-bit WAV
// encoding/decoding (spec.md §6 "WAV format (produced)").
package pcmwav

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Buffer is mono PCM audio with float samples in [-1,1] (spec.md §3
// "ProcessedAudio"). It is the currency passed between the audio engine
// collaborator, the chunk planner, and the silence-boundary oracle.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the buffer's length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Slice returns the samples between [startSec, endSec), clamped to the
// buffer's bounds.
func (b Buffer) Slice(startSec, endSec float64) []float64 {
	start := int(startSec * float64(b.SampleRate))
	end := int(endSec * float64(b.SampleRate))
	if start < 0 {
		start = 0
	}
	if end > len(b.Samples) {
		end = len(b.Samples)
	}
	if start >= end {
		return nil
	}
	return b.Samples[start:end]
}

// headerSize is the canonical PCM/WAVE header length (spec.md §6).
const headerSize = 44

// EncodeWAV renders samples (float64 in [-1,1]) as a canonical little-endian
// 16-bit mono PCM WAV byte buffer: 44-byte header, RIFF/WAVE/fmt /data
// chunks, samples clamped then written as signed 16-bit little-endian.
//
// The go-audio/wav encoder is used for the chunk-header bookkeeping so the
// produced bytes match exactly what go-audio/wav's own decoder expects,
// satisfying the round-trip invariant in spec.md §8.
func EncodeWAV(samples []float64, sampleRate int) ([]byte, error) {
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(clampSample(s))
	}

	var out bytes.Buffer
	enc := wav.NewEncoder(&writeSeeker{buf: &out}, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}
	return out.Bytes(), nil
}

// clampSample clamps a float64 sample to [-1,1] and scales it to a signed
// 16-bit integer range.
func clampSample(s float64) int16 {
	if s > 1 {
		s = 1
	}
	if s < -1 {
		s = -1
	}
	return int16(math.Round(s * 32767))
}

// DecodeWAV parses a canonical PCM WAV byte buffer back into float64 samples
// in [-1,1] and the stream's sample rate.
func DecodeWAV(data []byte) (Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return Buffer{}, fmt.Errorf("pcmwav: not a valid WAV file")
	}
	pcmBuf, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("pcmwav: decode: %w", err)
	}

	samples := make([]float64, len(pcmBuf.Data))
	for i, v := range pcmBuf.Data {
		samples[i] = float64(v) / 32768.0
	}

	return Buffer{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
	}, nil
}

// writeSeeker adapts a *bytes.Buffer to io.WriteSeeker, which the go-audio/wav
// encoder requires so it can patch the RIFF/data chunk sizes after writing
// all samples.
type writeSeeker struct {
	buf *bytes.Buffer
	pos int64
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if int(w.pos) < w.buf.Len() {
		// Overwrite in place (used by the encoder to patch size fields).
		b := w.buf.Bytes()
		n := copy(b[w.pos:], p)
		w.pos += int64(n)
		if n < len(p) {
			extra := p[n:]
			w.buf.Write(extra)
			w.pos += int64(len(extra))
		}
		return len(p), nil
	}
	n, err := w.buf.Write(p)
	w.pos += int64(n)
	return n, err
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		w.pos = offset
	case 1:
		w.pos += offset
	case 2:
		w.pos = int64(w.buf.Len()) + offset
	default:
		return 0, fmt.Errorf("pcmwav: invalid whence %d", whence)
	}
	return w.pos, nil
}

// HeaderSize exposes the canonical header length for tests and callers that
// need to validate a produced buffer's shape without fully decoding it.
func HeaderSize() int { return headerSize }
