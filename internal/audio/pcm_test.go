package audio

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"
)

func TestPCM16RoundTrip(t *testing.T) {
	raw := make([]byte, 0, 12)
	for _, v := range []int16{0, 1, -1, 32767, -32768, 12345} {
		raw = binary.LittleEndian.AppendUint16(raw, uint16(v))
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	samples, err := DecodePCM16(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(samples) != 6 {
		t.Fatalf("expected 6 samples, got %d", len(samples))
	}

	back, err := base64.StdEncoding.DecodeString(EncodePCM16(samples))
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	for i := 0; i < len(raw); i += 2 {
		want := int16(binary.LittleEndian.Uint16(raw[i:]))
		got := int16(binary.LittleEndian.Uint16(back[i:]))
		// One LSB of tolerance from the 32768/32767 normalization pair.
		if diff := int(want) - int(got); diff > 1 || diff < -1 {
			t.Fatalf("sample %d: want %d, got %d", i/2, want, got)
		}
	}
}

func TestDecodePCM16Unaligned(t *testing.T) {
	if _, err := DecodePCM16(base64.StdEncoding.EncodeToString([]byte{1, 2, 3})); err == nil {
		t.Fatal("expected error for odd-length payload")
	}
}

func TestDecodePCM16BadBase64(t *testing.T) {
	if _, err := DecodePCM16("not base64!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Fatalf("empty frame rms = %f", got)
	}
	if got := RMS([]float32{0.5, -0.5, 0.5, -0.5}); math.Abs(got-0.5) > 1e-6 {
		t.Fatalf("rms = %f, want 0.5", got)
	}
}

func TestResampleLength(t *testing.T) {
	in := make([]float32, 16000)
	out := Resample(in, 16000, 22050)
	if len(out) != 22050 {
		t.Fatalf("resampled length = %d, want 22050", len(out))
	}
}

func TestResampleIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if &out[0] != &in[0] {
		t.Fatal("same-rate resample should be a no-op")
	}
}

func TestResampleEndpoints(t *testing.T) {
	in := []float32{0, 1}
	out := Resample(in, 1000, 2000)
	if out[0] != 0 {
		t.Fatalf("first sample = %f, want 0", out[0])
	}
	if last := out[len(out)-1]; math.Abs(float64(last-1)) > 1e-6 {
		t.Fatalf("last sample = %f, want 1", last)
	}
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Fatalf("interpolated ramp not monotonic at %d", i)
		}
	}
}
