package feature

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrValueOutOfRange indicates a feature value outside its dimension's domain.
	ErrValueOutOfRange = errors.New("feature value out of range")

	// ErrDimensionOutOfRange indicates an indexed access past the last dimension.
	ErrDimensionOutOfRange = errors.New("feature dimension index out of range")

	// ErrShortLine indicates a vector line with fewer tokens than required.
	ErrShortLine = errors.New("feature line has too few fields")
)

// VectorFieldCount is the number of tokens in one serialized vector: the
// nine costed dimensions followed by the word tone.
const VectorFieldCount = NumDimensions + 1

// Vector is the discrete linguistic context of one candidate unit. Every
// mutation is validated against the schema's domains, so a Vector that
// exists is always in range and cost evaluation can index matrices with
// its raw values directly.
type Vector struct {
	schema   *Schema
	values   [NumDimensions]int
	wordTone int
}

// NewVector returns a zero-valued vector bound to the schema. Zero is a
// legal value in every domain.
func NewVector(schema *Schema) *Vector {
	return &Vector{schema: schema}
}

// Set assigns dimension d, rejecting values outside the domain.
func (v *Vector) Set(d Dimension, val int) error {
	if d < 0 || int(d) >= NumDimensions {
		return fmt.Errorf("%w: %d", ErrDimensionOutOfRange, int(d))
	}
	if size := v.schema.DomainSize(d); val < 0 || val >= size {
		return fmt.Errorf("%w: %s=%d (domain size %d)", ErrValueOutOfRange, d, val, size)
	}
	v.values[d] = val
	return nil
}

// SetWordTone assigns the carried (non-costed) word tone.
func (v *Vector) SetWordTone(val int) error {
	if val < 0 || val >= v.schema.ToneCount() {
		return fmt.Errorf("%w: WordTone=%d (domain size %d)", ErrValueOutOfRange, val, v.schema.ToneCount())
	}
	v.wordTone = val
	return nil
}

// At is the indexed accessor used when a dimension is addressed by a raw
// integer, e.g. while iterating matrix coordinates.
func (v *Vector) At(i int) (int, error) {
	if i < 0 || i >= NumDimensions {
		return 0, fmt.Errorf("%w: %d", ErrDimensionOutOfRange, i)
	}
	return v.values[i], nil
}

// Value returns dimension d's raw value. d must be a valid Dimension
// constant; use At for untrusted indices.
func (v *Vector) Value(d Dimension) int { return v.values[d] }

func (v *Vector) WordTone() int { return v.wordTone }

func (v *Vector) Schema() *Schema { return v.schema }

// ParseVector reads VectorFieldCount whitespace-split tokens from fields
// starting at offset and maps them positionally onto the canonical
// dimension order, word tone last. The schema validates every value.
func ParseVector(schema *Schema, fields []string, offset int) (*Vector, error) {
	if offset < 0 || len(fields)-offset < VectorFieldCount {
		return nil, fmt.Errorf("%w: need %d fields at offset %d, have %d",
			ErrShortLine, VectorFieldCount, offset, len(fields)-offset)
	}

	v := NewVector(schema)
	for d := 0; d < NumDimensions; d++ {
		tok := fields[offset+d]
		val, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %q is not an integer", offset+d, Dimension(d), tok)
		}
		if err := v.Set(Dimension(d), val); err != nil {
			return nil, fmt.Errorf("field %d: %w", offset+d, err)
		}
	}

	tok := fields[offset+NumDimensions]
	val, err := strconv.Atoi(tok)
	if err != nil {
		return nil, fmt.Errorf("field %d (WordTone): %q is not an integer", offset+NumDimensions, tok)
	}
	if err := v.SetWordTone(val); err != nil {
		return nil, fmt.Errorf("field %d: %w", offset+NumDimensions, err)
	}
	return v, nil
}
