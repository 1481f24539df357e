package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeaderFields(t *testing.T) {
	pcm := make([]byte, 19200)
	wav := EncodeWAV(pcm, SampleRate, Channels, SampleWidth*8)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" {
		t.Errorf("missing RIFF marker: %q", wav[0:4])
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(36+len(pcm)) {
		t.Errorf("chunk size = %d, want %d", got, 36+len(pcm))
	}
	if string(wav[8:12]) != "WAVE" {
		t.Errorf("missing WAVE marker: %q", wav[8:12])
	}
	if string(wav[12:16]) != "fmt " {
		t.Errorf("missing fmt chunk: %q", wav[12:16])
	}
	if got := binary.LittleEndian.Uint16(wav[20:22]); got != 1 {
		t.Errorf("audio format = %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 2 {
		t.Errorf("channels = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 48000 {
		t.Errorf("sample rate = %d, want 48000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 192000 {
		t.Errorf("byte rate = %d, want 192000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[32:34]); got != 4 {
		t.Errorf("block align = %d, want 4", got)
	}
	if got := binary.LittleEndian.Uint16(wav[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
	if string(wav[36:40]) != "data" {
		t.Errorf("missing data chunk: %q", wav[36:40])
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
}

func TestWAVRoundTrip(t *testing.T) {
	pcm := make([]byte, 3840)
	for i := range pcm {
		pcm[i] = byte(i * 7)
	}
	wav := EncodeWAV(pcm, SampleRate, Channels, SampleWidth*8)

	header, payload, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if !bytes.Equal(payload, pcm) {
		t.Fatal("payload does not round-trip")
	}
	if header.SampleRate != 48000 || header.NumChannels != 2 || header.BitsPerSample != 16 {
		t.Fatalf("header mismatch: %+v", header)
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", make([]byte, 10)},
		{"not riff", bytes.Repeat([]byte{'x'}, 44)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
