package feature

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Dimension indexes one of the costed context dimensions of a Vector,
// in the canonical order shared by the weight-table format and the
// binary voice-font export.
type Dimension int

const (
	SentencePos Dimension = iota
	WordPos
	SyllablePos
	LeftPhone
	RightPhone
	LeftTone
	RightTone
	Stress
	Emphasis

	// NumDimensions is the number of costed dimensions. The word-tone
	// field is carried alongside a Vector but never costed.
	NumDimensions = int(Emphasis) + 1
)

var dimensionNames = [NumDimensions]string{
	"SentencePos", "WordPos", "SyllablePos",
	"LeftPhone", "RightPhone",
	"LeftTone", "RightTone",
	"Stress", "Emphasis",
}

func (d Dimension) String() string {
	if d < 0 || int(d) >= NumDimensions {
		return fmt.Sprintf("Dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// Position values used by the sentence/word/syllable position dimensions.
const (
	PosHead = iota
	PosMiddle
	PosTail
	PosSingle

	numPositions = 4
)

// Default cardinalities for the non-phone, non-tone dimensions. A front
// end with a different annotation scheme overrides these via SchemaConfig.
const (
	DefaultStressLevels   = 3
	DefaultEmphasisLevels = 2
)

// SchemaConfig overrides the default dimension cardinalities.
type SchemaConfig struct {
	StressLevels   int
	EmphasisLevels int
}

// Schema describes the discrete value domains of every feature dimension
// for one voice: the phone inventory, the tone inventory, and the
// position/stress/emphasis cardinalities. It is immutable once built and
// shared by every Vector, cost model and search over that voice.
type Schema struct {
	symbols        []string
	ids            map[string]int
	toneCount      int
	stressLevels   int
	emphasisLevels int
}

// NewSchema builds a schema from the front end's phone inventory in
// canonical id order and its tone count. Phone symbols are
// NFKC-normalized so hand-edited table files with visually identical
// symbols resolve to the same id.
func NewSchema(phones []string, toneCount int, cfg ...SchemaConfig) (*Schema, error) {
	if len(phones) == 0 {
		return nil, fmt.Errorf("schema: empty phone inventory")
	}
	if toneCount <= 0 {
		return nil, fmt.Errorf("schema: tone count must be positive, got %d", toneCount)
	}

	s := &Schema{
		symbols:        make([]string, len(phones)),
		ids:            make(map[string]int, len(phones)),
		toneCount:      toneCount,
		stressLevels:   DefaultStressLevels,
		emphasisLevels: DefaultEmphasisLevels,
	}
	if len(cfg) > 0 {
		c := cfg[0]
		if c.StressLevels > 0 {
			s.stressLevels = c.StressLevels
		}
		if c.EmphasisLevels > 0 {
			s.emphasisLevels = c.EmphasisLevels
		}
	}

	for i, p := range phones {
		sym := NormalizeSymbol(p)
		if sym == "" {
			return nil, fmt.Errorf("schema: blank phone symbol at index %d", i)
		}
		if _, dup := s.ids[sym]; dup {
			return nil, fmt.Errorf("schema: duplicate phone symbol %q", sym)
		}
		s.symbols[i] = sym
		s.ids[sym] = i
	}
	return s, nil
}

// NormalizeSymbol applies NFKC normalization and trims whitespace so that
// symbol lookups tolerate the encoding drift common in hand-edited files.
func NormalizeSymbol(sym string) string {
	return strings.TrimSpace(norm.NFKC.String(sym))
}

// PhoneID resolves a phone symbol to its canonical id.
func (s *Schema) PhoneID(sym string) (int, bool) {
	id, ok := s.ids[NormalizeSymbol(sym)]
	return id, ok
}

// PhoneSymbol returns the symbol for a canonical phone id.
func (s *Schema) PhoneSymbol(id int) (string, bool) {
	if id < 0 || id >= len(s.symbols) {
		return "", false
	}
	return s.symbols[id], true
}

func (s *Schema) PhoneCount() int { return len(s.symbols) }
func (s *Schema) ToneCount() int  { return s.toneCount }

// DomainSize returns the number of legal values for a dimension, which is
// also the side length of that dimension's square target-cost matrix.
func (s *Schema) DomainSize(d Dimension) int {
	switch d {
	case SentencePos, WordPos, SyllablePos:
		return numPositions
	case LeftPhone, RightPhone:
		return len(s.symbols)
	case LeftTone, RightTone:
		return s.toneCount
	case Stress:
		return s.stressLevels
	case Emphasis:
		return s.emphasisLevels
	}
	return 0
}
