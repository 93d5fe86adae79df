// Package audio holds the small PCM plumbing shared by the voice
// pipeline: base64 transport codec, sample conversions, RMS energy and
// the linear-interpolation resampler.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// DecodePCM16 decodes a base64 payload of little-endian 16-bit PCM into
// normalized float32 samples in [-1, 1].
func DecodePCM16(data string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("pcm payload not aligned: %d bytes", len(raw))
	}
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float32(s) / 32768.0
	}
	return samples, nil
}

// EncodePCM16 converts normalized samples back to little-endian 16-bit
// PCM and base64-encodes the result for transport.
func EncodePCM16(samples []float32) string {
	return base64.StdEncoding.EncodeToString(PCM16Bytes(samples))
}

// PCM16Bytes converts normalized samples to raw little-endian PCM16.
// Values outside [-1, 1] are clipped.
func PCM16Bytes(samples []float32) []byte {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(v))
	}
	return raw
}

// RMS returns the root-mean-square energy of a frame.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Resample converts samples from one rate to another using linear
// interpolation. No band-limiting is applied; this is the documented
// demo-grade baseline for the whole pipeline.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 || fromRate <= 0 || toRate <= 0 {
		return samples
	}
	ratio := float64(toRate) / float64(fromRate)
	outLen := int(float64(len(samples)) * ratio)
	if outLen == 0 {
		return nil
	}
	out := make([]float32, outLen)
	step := float64(len(samples)-1) / float64(outLen-1)
	if outLen == 1 {
		out[0] = samples[0]
		return out
	}
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}
