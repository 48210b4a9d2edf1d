// Package wav decodes the canonical 16-bit PCM WAV layout whisperd expects
// from callers: a 44-byte RIFF/WAVE header followed by raw little-endian
// int16 samples. It does not parse the header's own fields (sample rate,
// channel count, bit depth) — callers are expected to supply 16 kHz mono or
// interleaved-stereo PCM, exactly as whisper.cpp's own server does.
package wav

import "fmt"

// HeaderSize is the number of bytes skipped unconditionally at the start of
// every blob before samples are read.
const HeaderSize = 44

// ErrTooShort is returned when a blob is shorter than [HeaderSize].
var ErrTooShort = fmt.Errorf("wav: blob shorter than %d-byte header", HeaderSize)

const maxInt16 = 32768.0

// Decode converts a WAV blob into normalized mono float32 samples in
// [-1, 1). Bytes shorter than HeaderSize fail with ErrTooShort. The header is
// skipped unconditionally; the remainder is treated as little-endian signed
// 16-bit PCM. A trailing odd byte, if present, is ignored.
func Decode(blob []byte) ([]float32, error) {
	if len(blob) < HeaderSize {
		return nil, ErrTooShort
	}
	data := blob[HeaderSize:]
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
		out[i] = float32(s) / maxInt16
	}
	return out, nil
}

// DecodeStereo behaves like Decode but additionally de-interleaves the
// sample stream into two per-channel slices when the sample count is even.
// If the sample count is odd, the returned stereo slices are both empty —
// the caller should fall back to the mono slice.
func DecodeStereo(blob []byte) (mono []float32, stereo [2][]float32, err error) {
	mono, err = Decode(blob)
	if err != nil {
		return nil, stereo, err
	}
	if len(mono)%2 != 0 {
		return mono, stereo, nil
	}
	n := len(mono) / 2
	stereo[0] = make([]float32, n)
	stereo[1] = make([]float32, n)
	for i := 0; i < n; i++ {
		stereo[0][i] = mono[2*i]
		stereo[1][i] = mono[2*i+1]
	}
	return mono, stereo, nil
}

// Encode wraps little-endian int16 PCM samples in a canonical 44-byte
// RIFF/WAVE header for the given sample rate and channel count. Used by
// tests that need to synthesize WAV fixtures.
func Encode(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, HeaderSize+dataSize)
	copy(buf[0:4], "RIFF")
	putUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	putUint32(buf[16:20], 16)
	putUint16(buf[20:22], 1)
	putUint16(buf[22:24], uint16(channels))
	putUint32(buf[24:28], uint32(sampleRate))
	putUint32(buf[28:32], uint32(byteRate))
	putUint16(buf[32:34], uint16(blockAlign))
	putUint16(buf[34:36], uint16(bitsPerSample))
	copy(buf[36:40], "data")
	putUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)
	return buf
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// FloatsToPCM16 converts normalized float32 samples in [-1, 1] to
// little-endian signed 16-bit PCM, clamping out-of-range values.
func FloatsToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * maxInt16
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		putUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

// PCM16ToFloats converts little-endian signed 16-bit PCM to normalized
// float32 samples. A trailing odd byte is ignored.
func PCM16ToFloats(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = float32(s) / maxInt16
	}
	return out
}
