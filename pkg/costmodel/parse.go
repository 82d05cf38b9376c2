package costmodel

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/voxcraft/voicefont-go/internal/tabletext"
	"github.com/voxcraft/voicefont-go/pkg/feature"
)

// Section tags of the weight-table text format.
const (
	TagLangID            = "LangID"
	TagToneCount         = "ToneCount"
	TagTargetWeight      = "TargetWeight"
	TagSmoothWeight      = "SmoothWeight"
	TagTotalTargetWeight = "TotalTargetWeight"
	TagTotalConcatWeight = "TotalConcatWeight"
	TagConcatCost        = "ConcatCost"
)

// dimensionTags maps each costed dimension to its matrix section tag.
var dimensionTags = [feature.NumDimensions]string{
	feature.SentencePos: "SentencePosCost",
	feature.WordPos:     "WordPosCost",
	feature.SyllablePos: "SyllablePosCost",
	feature.LeftPhone:   "LeftPhoneCost",
	feature.RightPhone:  "RightPhoneCost",
	feature.LeftTone:    "LeftToneCost",
	feature.RightTone:   "RightToneCost",
	feature.Stress:      "StressCost",
	feature.Emphasis:    "EmphasisCost",
}

var (
	// ErrMissingSection indicates a required section tag is absent.
	ErrMissingSection = errors.New("missing required section")

	// ErrBadTable indicates a structurally invalid section body.
	ErrBadTable = errors.New("malformed table section")
)

// section is one tagged block of the text format, body lines in order.
type section struct {
	name    string
	tagLine int
	lines   []tabletext.Line
}

// LoadFile loads a weight table from disk. The file handle is released
// on every path.
func LoadFile(path string, schema *feature.Schema, logger *slog.Logger) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open weight table: %w", err)
	}
	defer f.Close()

	m, err := Load(f, schema, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Load parses the weight-table text format into an immutable Model.
func Load(r io.Reader, schema *feature.Schema, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	sections, err := splitSections(r)
	if err != nil {
		return nil, err
	}

	m := &Model{schema: schema}
	p := &parser{schema: schema, sections: sections}

	langID, err := p.scalarU32(TagLangID)
	if err != nil {
		return nil, err
	}
	m.langID = langID

	toneCount, err := p.scalarU32(TagToneCount)
	if err != nil {
		return nil, err
	}
	if int(toneCount) != schema.ToneCount() {
		return nil, fmt.Errorf("%w: [%s] declares %d tones, schema has %d",
			ErrBadTable, TagToneCount, toneCount, schema.ToneCount())
	}

	if m.totalTarget, err = p.scalarF32(TagTotalTargetWeight); err != nil {
		return nil, err
	}
	if m.totalConcat, err = p.scalarF32(TagTotalConcatWeight); err != nil {
		return nil, err
	}

	weights, err := p.vector(TagTargetWeight, feature.NumDimensions)
	if err != nil {
		return nil, err
	}
	copy(m.weights[:], weights)

	if m.smooth, err = p.vector(TagSmoothWeight, 0); err != nil {
		return nil, err
	}

	for d := feature.Dimension(0); int(d) < feature.NumDimensions; d++ {
		sec, ok := p.sections[dimensionTags[d]]
		if !ok {
			// Untrained dimension: contributes zero cost.
			logger.Debug("dimension untrained", "dimension", d.String())
			continue
		}
		var mat [][]float32
		if d == feature.LeftPhone || d == feature.RightPhone {
			mat, err = p.phoneMatrix(sec)
		} else {
			n := schema.DomainSize(d)
			mat, err = p.matrix(sec, n, n)
		}
		if err != nil {
			return nil, err
		}
		m.target[d] = mat
		logger.Debug("dimension loaded", "dimension", d.String(), "size", len(mat))
	}

	concatSec, ok := p.sections[TagConcatCost]
	if !ok {
		return nil, fmt.Errorf("%w: [%s]", ErrMissingSection, TagConcatCost)
	}
	if m.concat, err = p.concatMatrix(concatSec); err != nil {
		return nil, err
	}

	logger.Info("weight table loaded",
		"lang_id", m.langID,
		"phones", schema.PhoneCount(),
		"tones", schema.ToneCount(),
		"join_types", m.JoinTypeCount())
	return m, nil
}

// splitSections chunks the meaningful lines of the file by section tag.
// Lines before the first tag are rejected.
func splitSections(r io.Reader) (map[string]*section, error) {
	sc := tabletext.NewScanner(r)
	sections := make(map[string]*section)
	var cur *section

	for {
		line, ok := sc.Next()
		if !ok {
			break
		}
		if name, isTag := tabletext.TagName(line.Text); isTag && !line.Comment {
			if _, dup := sections[name]; dup {
				return nil, fmt.Errorf("line %d: %w: duplicate section [%s]", line.Num, ErrBadTable, name)
			}
			cur = &section{name: name, tagLine: line.Num}
			sections[name] = cur
			continue
		}
		if cur == nil {
			if line.Comment {
				continue
			}
			return nil, fmt.Errorf("line %d: %w: content before first section tag", line.Num, ErrBadTable)
		}
		cur.lines = append(cur.lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read weight table: %w", err)
	}
	return sections, nil
}

type parser struct {
	schema   *feature.Schema
	sections map[string]*section
}

// rows parses a section's non-comment lines into numbers, preserving
// line structure for matrix validation.
func (p *parser) rows(sec *section) ([][]float32, error) {
	var out [][]float32
	for _, line := range sec.lines {
		if line.Comment {
			continue
		}
		vals, err := tabletext.Floats(line.Text)
		if err != nil {
			return nil, fmt.Errorf("line %d: [%s]: %w", line.Num, sec.name, err)
		}
		out = append(out, vals)
	}
	return out, nil
}

func (p *parser) scalarF32(name string) (float32, error) {
	sec, ok := p.sections[name]
	if !ok {
		return 0, fmt.Errorf("%w: [%s]", ErrMissingSection, name)
	}
	rows, err := p.rows(sec)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, fmt.Errorf("line %d: %w: [%s] must hold exactly one value", sec.tagLine, ErrBadTable, name)
	}
	return rows[0][0], nil
}

func (p *parser) scalarU32(name string) (uint32, error) {
	v, err := p.scalarF32(name)
	if err != nil {
		return 0, err
	}
	if v < 0 || v != float32(uint32(v)) {
		return 0, fmt.Errorf("%w: [%s] must hold a non-negative integer, got %g", ErrBadTable, name, v)
	}
	return uint32(v), nil
}

// vector reads a flat value list. wantLen 0 means any non-empty length.
func (p *parser) vector(name string, wantLen int) ([]float32, error) {
	sec, ok := p.sections[name]
	if !ok {
		return nil, fmt.Errorf("%w: [%s]", ErrMissingSection, name)
	}
	rows, err := p.rows(sec)
	if err != nil {
		return nil, err
	}
	var flat []float32
	for _, r := range rows {
		flat = append(flat, r...)
	}
	if len(flat) == 0 || (wantLen > 0 && len(flat) != wantLen) {
		return nil, fmt.Errorf("line %d: %w: [%s] has %d values, want %d",
			sec.tagLine, ErrBadTable, name, len(flat), wantLen)
	}
	return flat, nil
}

// matrix reads a rows×cols table, one matrix row per line.
func (p *parser) matrix(sec *section, nRows, nCols int) ([][]float32, error) {
	rows, err := p.rows(sec)
	if err != nil {
		return nil, err
	}
	if len(rows) != nRows {
		return nil, fmt.Errorf("line %d: %w: [%s] has %d rows, want %d",
			sec.tagLine, ErrBadTable, sec.name, len(rows), nRows)
	}
	for i, r := range rows {
		if len(r) != nCols {
			return nil, fmt.Errorf("line %d: %w: [%s] row %d has %d values, want %d",
				sec.tagLine, ErrBadTable, sec.name, i, len(r), nCols)
		}
	}
	return rows, nil
}

// phoneMatrix reads a phone-indexed section: a comment line listing the
// phone symbols in file order, then one row per listed symbol. Values
// are re-indexed from file order into canonical phone-id order; pairs
// the file does not cover default to UnseenPhonePairCost.
func (p *parser) phoneMatrix(sec *section) ([][]float32, error) {
	if len(sec.lines) == 0 || !sec.lines[0].Comment {
		return nil, fmt.Errorf("line %d: %w: [%s] must start with a phone symbol comment line",
			sec.tagLine, ErrBadTable, sec.name)
	}
	header := sec.lines[0]
	symbols := strings.Fields(header.Text)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("line %d: %w: [%s] phone symbol line is empty",
			header.Num, ErrBadTable, sec.name)
	}

	ids := make([]int, len(symbols))
	for i, sym := range symbols {
		id, ok := p.schema.PhoneID(sym)
		if !ok {
			return nil, fmt.Errorf("line %d: %w: [%s] unknown phone symbol %q",
				header.Num, ErrBadTable, sec.name, sym)
		}
		ids[i] = id
	}

	fileRows, err := p.matrix(sec, len(symbols), len(symbols))
	if err != nil {
		return nil, err
	}

	n := p.schema.PhoneCount()
	mat := make([][]float32, n)
	for i := range mat {
		row := make([]float32, n)
		for j := range row {
			row[j] = UnseenPhonePairCost
		}
		mat[i] = row
	}
	for fi, row := range fileRows {
		for fj, v := range row {
			mat[ids[fi]][ids[fj]] = v
		}
	}
	return mat, nil
}

// concatMatrix reads the concatenation-cost table: one row per break
// level, every row the same join-type width.
func (p *parser) concatMatrix(sec *section) ([][]float32, error) {
	rows, err := p.rows(sec)
	if err != nil {
		return nil, err
	}
	if len(rows) != NumBreakLevels {
		return nil, fmt.Errorf("line %d: %w: [%s] has %d break-level rows, want %d",
			sec.tagLine, ErrBadTable, sec.name, len(rows), NumBreakLevels)
	}
	width := len(rows[0])
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("line %d: %w: [%s] row %d has %d join types, row 0 has %d",
				sec.tagLine, ErrBadTable, sec.name, i, len(r), width)
		}
	}
	return rows, nil
}
