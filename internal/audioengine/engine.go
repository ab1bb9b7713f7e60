// Package audioengine implements the "audio engine" external collaborator
// (spec.md §6) against a resolved local FFmpeg binary: validating an input
// file, decoding it to PCM, and converting to the controller's target format
// (16kHz/16-bit/mono). It is the default, swappable implementation — the
// controller depends only on the Engine interface.
package audioengine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/alnah/go-transcript/internal/ffmpeg"
	"github.com/alnah/go-transcript/internal/pcmwav"
)

// AudioInput names the file to be validated/decoded.
type AudioInput struct {
	Path string
}

// AudioValidationResult reports whether an input is usable and why not.
type AudioValidationResult struct {
	OK     bool
	Reason string
}

// DecodedBuffer is raw decoded PCM at the source file's native rate/layout.
type DecodedBuffer struct {
	pcmwav.Buffer
	Channels int
}

// TargetFormat is the conversion target; the controller always requests
// 16kHz/16-bit/mono (spec.md §6).
type TargetFormat struct {
	SampleRate int
	BitDepth   int
	Channels   int
}

// DefaultTargetFormat is the format every dispatch strategy and VAD oracle
// expects its input in.
func DefaultTargetFormat() TargetFormat {
	return TargetFormat{SampleRate: 16000, BitDepth: 16, Channels: 1}
}

// Engine is the audio engine collaborator interface (spec.md §6).
type Engine interface {
	Validate(ctx context.Context, in AudioInput) (AudioValidationResult, error)
	Decode(ctx context.Context, in AudioInput) (DecodedBuffer, error)
	ConvertToTargetFormat(ctx context.Context, buf DecodedBuffer, target TargetFormat) (pcmwav.Buffer, error)
	Cleanup() error
}

var _ Engine = (*FFmpegEngine)(nil)

// FFmpegEngine decodes and resamples through a resolved FFmpeg binary. It is
// the production default; tests substitute a fake Engine instead of
// exercising a real binary.
type FFmpegEngine struct {
	resolver   *ffmpeg.Resolver
	path       string
	scratchDir string
	tempDirs   []string
}

// FFmpegEngineOption configures an FFmpegEngine.
type FFmpegEngineOption func(*FFmpegEngine)

// WithResolver overrides the FFmpeg resolver (for tests).
func WithResolver(r *ffmpeg.Resolver) FFmpegEngineOption {
	return func(e *FFmpegEngine) { e.resolver = r }
}

// NewFFmpegEngine constructs an Engine backed by a resolved FFmpeg binary.
func NewFFmpegEngine(opts ...FFmpegEngineOption) *FFmpegEngine {
	e := &FFmpegEngine{resolver: ffmpeg.NewResolver()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *FFmpegEngine) resolve(ctx context.Context) (string, error) {
	if e.path != "" {
		return e.path, nil
	}
	path, err := e.resolver.Resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("audioengine: resolve ffmpeg: %w", err)
	}
	e.path = path
	return path, nil
}

// Validate checks the file exists and FFmpeg can probe it.
func (e *FFmpegEngine) Validate(ctx context.Context, in AudioInput) (AudioValidationResult, error) {
	if _, err := os.Stat(in.Path); err != nil {
		return AudioValidationResult{OK: false, Reason: "file not accessible: " + err.Error()}, nil
	}
	path, err := e.resolve(ctx)
	if err != nil {
		return AudioValidationResult{}, err
	}
	out, runErr := ffmpeg.RunOutput(ctx, path, []string{"-i", in.Path, "-f", "null", "-"})
	if runErr != nil && len(out) == 0 {
		return AudioValidationResult{OK: false, Reason: "ffmpeg could not probe file"}, nil
	}
	return AudioValidationResult{OK: true}, nil
}

// Decode renders the input's native-rate PCM via a 16-bit WAV pipe.
func (e *FFmpegEngine) Decode(ctx context.Context, in AudioInput) (DecodedBuffer, error) {
	path, err := e.resolve(ctx)
	if err != nil {
		return DecodedBuffer{}, err
	}
	wavBytes, err := e.toWAV(ctx, path, in.Path, nil)
	if err != nil {
		return DecodedBuffer{}, err
	}
	buf, err := pcmwav.DecodeWAV(wavBytes)
	if err != nil {
		return DecodedBuffer{}, fmt.Errorf("audioengine: decode wav: %w", err)
	}
	return DecodedBuffer{Buffer: buf, Channels: 1}, nil
}

// ConvertToTargetFormat resamples/remixes the decoded buffer to the requested
// sample rate, bit depth, and channel count.
func (e *FFmpegEngine) ConvertToTargetFormat(ctx context.Context, buf DecodedBuffer, target TargetFormat) (pcmwav.Buffer, error) {
	if buf.SampleRate == target.SampleRate && buf.Channels == target.Channels {
		return buf.Buffer, nil
	}
	path, err := e.resolve(ctx)
	if err != nil {
		return pcmwav.Buffer{}, err
	}
	srcWAV, err := pcmwav.EncodeWAV(buf.Samples, buf.SampleRate)
	if err != nil {
		return pcmwav.Buffer{}, fmt.Errorf("audioengine: re-encode source: %w", err)
	}
	tmpIn, err := e.writeTemp(srcWAV)
	if err != nil {
		return pcmwav.Buffer{}, err
	}
	opts := []string{"-ar", fmt.Sprintf("%d", target.SampleRate), "-ac", fmt.Sprintf("%d", target.Channels)}
	outWAV, err := e.toWAV(ctx, path, tmpIn, opts)
	if err != nil {
		return pcmwav.Buffer{}, err
	}
	out, err := pcmwav.DecodeWAV(outWAV)
	if err != nil {
		return pcmwav.Buffer{}, fmt.Errorf("audioengine: decode resampled wav: %w", err)
	}
	return out, nil
}

// toWAV pipes FFmpeg's stdout (16-bit PCM WAV at the requested format, or
// source format when extraOpts is nil) into memory.
func (e *FFmpegEngine) toWAV(ctx context.Context, ffmpegPath, srcPath string, extraOpts []string) ([]byte, error) {
	args := []string{"-i", srcPath}
	args = append(args, extraOpts...)
	args = append(args, "-f", "wav", "-acodec", "pcm_s16le", "-y", "pipe:1")

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("audioengine: ffmpeg decode failed: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// writeTemp writes data under the engine's managed scratch directory
// (tempSubdir), naming it via ChunkPath, and tracks it for Cleanup.
func (e *FFmpegEngine) writeTemp(data []byte) (string, error) {
	dir, err := e.ensureScratchDir()
	if err != nil {
		return "", err
	}
	path := ChunkPath(dir, len(e.tempDirs))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("audioengine: write temp file: %w", err)
	}
	e.tempDirs = append(e.tempDirs, path)
	return path, nil
}

func (e *FFmpegEngine) ensureScratchDir() (string, error) {
	if e.scratchDir != "" {
		return e.scratchDir, nil
	}
	dir, err := tempSubdir(os.TempDir())
	if err != nil {
		return "", err
	}
	e.scratchDir = dir
	return dir, nil
}

// Cleanup removes every temp file created during conversion and the
// scratch directory that held them.
func (e *FFmpegEngine) Cleanup() error {
	var firstErr error
	for _, p := range e.tempDirs {
		if err := os.Remove(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.tempDirs = nil
	if e.scratchDir != "" {
		if err := os.Remove(e.scratchDir); err != nil && firstErr == nil {
			firstErr = err
		}
		e.scratchDir = ""
	}
	return firstErr
}

// tempSubdir creates a managed scratch directory under base for chunk WAVs,
// rather than scattering them across the OS temp root.
func tempSubdir(base string) (string, error) {
	dir, err := os.MkdirTemp(base, "go-transcript-chunks-*")
	if err != nil {
		return "", fmt.Errorf("audioengine: create scratch dir: %w", err)
	}
	return dir, nil
}

// ChunkPath builds the output path for chunk index i under dir.
func ChunkPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("chunk-%04d.wav", i))
}
