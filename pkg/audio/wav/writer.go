// Package wav writes mono PCM WAV files for offline inspection of
// rendered unit sequences.
package wav

import (
	"encoding/binary"
	"fmt"
	"os"
)

const (
	pcmFormat     = 1
	bitsPerSample = 16
	numChannels   = 1
)

// Writer writes a mono 16-bit PCM WAV file. The header carries
// placeholder sizes until Close patches them with the sample count.
type Writer struct {
	file           *os.File
	sampleRate     uint32
	samplesWritten uint32
}

// NewWriter creates the file and writes the provisional header.
func NewWriter(filename string, sampleRate uint32) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create WAV file: %w", err)
	}

	w := &Writer{file: file, sampleRate: sampleRate}
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("write WAV header: %w", err)
	}
	return w, nil
}

// WriteSamples appends 16-bit samples to the data chunk.
func (w *Writer) WriteSamples(samples []int16) error {
	if err := binary.Write(w.file, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	w.samplesWritten += uint32(len(samples))
	return nil
}

// Close patches the header size fields with the bytes actually written
// and releases the file.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}

	dataSize := w.samplesWritten * bitsPerSample / 8
	chunkSize := dataSize + 36

	if _, err := w.file.Seek(4, 0); err != nil {
		return fmt.Errorf("seek to chunk size: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, chunkSize); err != nil {
		return fmt.Errorf("patch chunk size: %w", err)
	}

	if _, err := w.file.Seek(40, 0); err != nil {
		return fmt.Errorf("seek to data size: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, dataSize); err != nil {
		return fmt.Errorf("patch data size: %w", err)
	}

	err := w.file.Close()
	w.file = nil
	return err
}

// writeHeader writes the RIFF/fmt/data preamble with zero sizes.
func (w *Writer) writeHeader() error {
	le := binary.LittleEndian

	if _, err := w.file.WriteString("RIFF"); err != nil {
		return err
	}
	if err := binary.Write(w.file, le, uint32(0)); err != nil { // patched in Close
		return err
	}
	if _, err := w.file.WriteString("WAVE"); err != nil {
		return err
	}

	if _, err := w.file.WriteString("fmt "); err != nil {
		return err
	}
	if err := binary.Write(w.file, le, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(w.file, le, uint16(pcmFormat)); err != nil {
		return err
	}
	if err := binary.Write(w.file, le, uint16(numChannels)); err != nil {
		return err
	}
	if err := binary.Write(w.file, le, w.sampleRate); err != nil {
		return err
	}
	byteRate := w.sampleRate * numChannels * bitsPerSample / 8
	if err := binary.Write(w.file, le, byteRate); err != nil {
		return err
	}
	if err := binary.Write(w.file, le, uint16(numChannels*bitsPerSample/8)); err != nil {
		return err
	}
	if err := binary.Write(w.file, le, uint16(bitsPerSample)); err != nil {
		return err
	}

	if _, err := w.file.WriteString("data"); err != nil {
		return err
	}
	return binary.Write(w.file, le, uint32(0)) // patched in Close
}
