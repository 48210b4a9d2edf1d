// Package audio decodes inbound request bodies into the normalized float
// sample sequences the engine consumes, falling back to an external FFmpeg
// process when the blob is not already canonical WAV (spec §4.1).
package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/whisperd/whisperd/pkg/wav"
)

// ErrTooShort is returned for blobs shorter than the canonical WAV header.
var ErrTooShort = wav.ErrTooShort

// looksLikeWAV reports whether blob begins with a RIFF/WAVE container tag.
// Anything else is handed to the converter when one is configured.
func looksLikeWAV(blob []byte) bool {
	return len(blob) >= 12 && bytes.Equal(blob[0:4], []byte("RIFF")) && bytes.Equal(blob[8:12], []byte("WAVE"))
}

// Converter shells out to ffmpeg to transcode an arbitrary container into
// 16kHz mono PCM WAV. It is only invoked when the server's EnableConverter
// flag is set and the inbound blob does not already look like WAV.
type Converter struct {
	// BinaryPath is the ffmpeg executable to invoke; defaults to "ffmpeg"
	// resolved via PATH.
	BinaryPath string

	warnedMissing sync.Once
}

// NewConverter returns a Converter using the given ffmpeg binary path, or
// "ffmpeg" on PATH if path is empty.
func NewConverter(path string) *Converter {
	if path == "" {
		path = "ffmpeg"
	}
	return &Converter{BinaryPath: path}
}

// Convert writes blob to a temporary file, invokes ffmpeg to produce a
// 16kHz mono PCM WAV, and returns the resulting bytes. The intermediate
// file is written to a temp path and renamed atomically into place before
// being read back, then removed — matching spec §4.1's "success requires
// atomic rename and cleanup of the intermediate".
func (c *Converter) Convert(ctx context.Context, blob []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "whisperd-convert-*")
	if err != nil {
		return nil, fmt.Errorf("audio: create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "input.bin")
	if err := os.WriteFile(srcPath, blob, 0o600); err != nil {
		return nil, fmt.Errorf("audio: write input: %w", err)
	}

	dstTmp := filepath.Join(dir, "output.wav.tmp")
	dstPath := filepath.Join(dir, "output.wav")

	cmd := exec.CommandContext(ctx, c.BinaryPath,
		"-y", "-i", srcPath,
		"-ar", "16000", "-ac", "1", "-f", "wav",
		dstTmp,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("audio: ffmpeg conversion failed: %w: %s", err, stderr.String())
	}

	if err := os.Rename(dstTmp, dstPath); err != nil {
		return nil, fmt.Errorf("audio: rename converted file: %w", err)
	}

	out, err := os.ReadFile(dstPath)
	if err != nil {
		return nil, fmt.Errorf("audio: read converted file: %w", err)
	}
	return out, nil
}

// Decoder turns request bodies into mono float samples, using Converter as
// a fallback for non-WAV blobs when enabled.
type Decoder struct {
	Converter *Converter // nil disables conversion
	Log       *slog.Logger
}

// NewDecoder returns a Decoder. If converter is nil, non-WAV blobs are not
// shelled out to ffmpeg; they are decoded as canonical WAV as-is (44-byte
// header skipped), and only blobs shorter than that header fail.
func NewDecoder(converter *Converter, log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{Converter: converter, Log: log}
}

// Decode returns mono float samples for blob, converting first if blob does
// not look like WAV and a Converter is configured.
func (d *Decoder) Decode(ctx context.Context, blob []byte) ([]float32, error) {
	if !looksLikeWAV(blob) {
		if d.Converter == nil {
			return wav.Decode(blob)
		}
		converted, err := d.Converter.Convert(ctx, blob)
		if err != nil {
			return nil, err
		}
		d.Log.Debug("audio: converted non-WAV upload", "bytes_in", len(blob), "bytes_out", len(converted))
		blob = converted
	}
	return wav.Decode(blob)
}

// DecodeStereo is like Decode but additionally returns per-channel samples
// when the sample count is even, for diarization.
func (d *Decoder) DecodeStereo(ctx context.Context, blob []byte) (mono []float32, stereo [2][]float32, err error) {
	if !looksLikeWAV(blob) {
		if d.Converter == nil {
			return wav.DecodeStereo(blob)
		}
		converted, cerr := d.Converter.Convert(ctx, blob)
		if cerr != nil {
			return nil, stereo, cerr
		}
		blob = converted
	}
	return wav.DecodeStereo(blob)
}
