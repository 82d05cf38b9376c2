package wav

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestWriterHeaderAndPatchedSizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	w, err := NewWriter(path, 16000)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	samples := []int16{0, 100, -100, 32767, -32768}
	if err := w.WriteSamples(samples); err != nil {
		t.Fatalf("WriteSamples() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	dataSize := uint32(len(samples) * 2)
	if got := uint32(len(raw)); got != 44+dataSize {
		t.Fatalf("file length = %d, want %d", got, 44+dataSize)
	}

	le := binary.LittleEndian
	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if got := le.Uint32(raw[4:8]); got != dataSize+36 {
		t.Errorf("chunk size = %d, want %d", got, dataSize+36)
	}
	if got := le.Uint32(raw[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := le.Uint16(raw[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := le.Uint16(raw[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
	if string(raw[36:40]) != "data" {
		t.Error("missing data chunk marker")
	}
	if got := le.Uint32(raw[40:44]); got != dataSize {
		t.Errorf("data size = %d, want %d", got, dataSize)
	}

	if got := int16(le.Uint16(raw[44:46])); got != 0 {
		t.Errorf("sample 0 = %d, want 0", got)
	}
	if got := int16(le.Uint16(raw[50:52])); got != 32767 {
		t.Errorf("sample 3 = %d, want 32767", got)
	}
}

func TestWriterCloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWriter(path, 8000)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
