package costmodel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/voxcraft/voicefont-go/pkg/feature"
)

// The binary cost-model section ("APL" section) is a bit-exact contract
// with the runtime engine: little-endian, fixed field widths, fixed
// 80-byte header with reserved padding.
const (
	// HeaderSize is the fixed byte length of the APL section header.
	HeaderSize = 80

	// headerAfterSize is the header remainder following the size field;
	// the size field counts these bytes plus the body.
	headerAfterSize = HeaderSize - 4 - SignatureSize - 4

	// SignatureSize is the byte length of the format signature.
	SignatureSize = 16
)

// SectionTag identifies an APL cost-model section ("APL\0").
var SectionTag = binary.LittleEndian.Uint32([]byte{'A', 'P', 'L', 0})

// Signature is the 16-byte format signature carried by every section.
var Signature = [SignatureSize]byte{'V', 'O', 'I', 'C', 'E', 'F', 'O', 'N', 'T', '-', 'C', 'O', 'S', 'T', '0', '1'}

// ErrBadHeader indicates a section header with the wrong byte count,
// tag or signature.
var ErrBadHeader = errors.New("malformed cost-model section header")

// Header is the fixed-size APL section header.
type Header struct {
	Tag           uint32
	Signature     [SignatureSize]byte
	Size          uint32 // bytes following the size field
	Version       uint32
	Build         uint32
	LanguageCount uint32
	DataOffset    uint32
}

// Info is the inspectable identity of an exported section: the header
// plus the leading body fields.
type Info struct {
	Header     Header
	LangID     uint32
	SpeakerID  uint32
	EnvID      uint32
	TableCount uint32
}

// ExportAPL writes the model as one APL section. The body is buffered in
// memory first so the header's size field can be written final; the
// result is identical to the runtime's two-pass seek-and-patch layout.
// Returns the total bytes written.
func (m *Model) ExportAPL(w io.Writer, version, build uint32) (int, error) {
	body := m.encodeBody()

	h := Header{
		Tag:           SectionTag,
		Signature:     Signature,
		Size:          uint32(headerAfterSize + len(body)),
		Version:       version,
		Build:         build,
		LanguageCount: 1,
		DataOffset:    HeaderSize,
	}

	buf := new(bytes.Buffer)
	buf.Grow(HeaderSize + len(body))
	binary.Write(buf, binary.LittleEndian, h.Tag)
	buf.Write(h.Signature[:])
	binary.Write(buf, binary.LittleEndian, h.Size)
	binary.Write(buf, binary.LittleEndian, h.Version)
	binary.Write(buf, binary.LittleEndian, h.Build)
	binary.Write(buf, binary.LittleEndian, h.LanguageCount)
	binary.Write(buf, binary.LittleEndian, h.DataOffset)
	buf.Write(make([]byte, HeaderSize-buf.Len())) // reserved padding
	buf.Write(body)

	n, err := w.Write(buf.Bytes())
	if err != nil {
		return n, fmt.Errorf("write cost-model section: %w", err)
	}
	return n, nil
}

// ExportAPLFile writes the section to a file, releasing the handle on
// every path.
func (m *Model) ExportAPLFile(path string, version, build uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cost-model file: %w", err)
	}
	if _, err := m.ExportAPL(f, version, build); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// encodeBody flattens the trained tables with weights pre-multiplied so
// the runtime performs lookups only. Dimensions are emitted in canonical
// feature order; a dimension is skipped when its matrix is untrained or
// its weight is zero.
func (m *Model) encodeBody() []byte {
	buf := new(bytes.Buffer)
	le := binary.LittleEndian

	binary.Write(buf, le, m.langID)
	binary.Write(buf, le, uint32(0)) // speaker id, reserved
	binary.Write(buf, le, uint32(0)) // deployment environment id, reserved

	var count uint32
	for d := feature.Dimension(0); int(d) < feature.NumDimensions; d++ {
		if m.target[d] != nil && m.weights[d] != 0 {
			count++
		}
	}
	binary.Write(buf, le, count)

	for d := feature.Dimension(0); int(d) < feature.NumDimensions; d++ {
		mat := m.target[d]
		if mat == nil || m.weights[d] == 0 {
			continue
		}
		binary.Write(buf, le, uint32(d))
		scale := m.weights[d] * m.totalTarget
		for _, row := range mat {
			for _, v := range row {
				binary.Write(buf, le, v*scale)
			}
		}
	}

	var concatCount uint32
	for _, row := range m.concat {
		concatCount += uint32(len(row))
	}
	binary.Write(buf, le, concatCount)
	for _, row := range m.concat {
		for _, v := range row {
			binary.Write(buf, le, v*m.totalConcat)
		}
	}

	return buf.Bytes()
}

// ReadHeader parses and validates the fixed 80-byte section header.
func ReadHeader(r io.Reader) (Header, error) {
	var raw [HeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}

	le := binary.LittleEndian
	var h Header
	h.Tag = le.Uint32(raw[0:4])
	copy(h.Signature[:], raw[4:4+SignatureSize])
	off := 4 + SignatureSize
	h.Size = le.Uint32(raw[off : off+4])
	h.Version = le.Uint32(raw[off+4 : off+8])
	h.Build = le.Uint32(raw[off+8 : off+12])
	h.LanguageCount = le.Uint32(raw[off+12 : off+16])
	h.DataOffset = le.Uint32(raw[off+16 : off+20])

	if h.Tag != SectionTag {
		return Header{}, fmt.Errorf("%w: tag 0x%08X", ErrBadHeader, h.Tag)
	}
	if h.Signature != Signature {
		return Header{}, fmt.Errorf("%w: unexpected signature %q", ErrBadHeader, h.Signature[:])
	}
	if h.DataOffset < HeaderSize {
		return Header{}, fmt.Errorf("%w: data offset %d overlaps header", ErrBadHeader, h.DataOffset)
	}
	return h, nil
}

// ReadInfo parses the header and the leading body fields for inspection
// and round-trip checks.
func ReadInfo(r io.Reader) (Info, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return Info{}, err
	}
	if skip := int64(h.DataOffset) - HeaderSize; skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return Info{}, fmt.Errorf("%w: truncated before data offset", ErrBadHeader)
		}
	}

	var lead [16]byte
	if _, err := io.ReadFull(r, lead[:]); err != nil {
		return Info{}, fmt.Errorf("%w: truncated body", ErrBadHeader)
	}
	le := binary.LittleEndian
	return Info{
		Header:     h,
		LangID:     le.Uint32(lead[0:4]),
		SpeakerID:  le.Uint32(lead[4:8]),
		EnvID:      le.Uint32(lead[8:12]),
		TableCount: le.Uint32(lead[12:16]),
	}, nil
}
