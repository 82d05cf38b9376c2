// Package costmodel holds the trained unit-selection cost function for
// one voice: per-dimension target-cost matrices, per-dimension weights,
// a concatenation-cost matrix indexed by prosodic break level and join
// type, and the two global scalars that balance target cost against
// concatenation cost. A Model is immutable after Load and safe to share
// read-only across concurrent per-utterance searches.
package costmodel

import (
	"fmt"

	"github.com/voxcraft/voicefont-go/pkg/feature"
)

// UnseenPhonePairCost is the target cost assigned to any phone pair the
// training data never covered.
const UnseenPhonePairCost float32 = 1000.0

// BreakLevel is the prosodic boundary strength between two adjacent
// target positions.
type BreakLevel int

const (
	BreakPhone BreakLevel = iota
	BreakSyllable
	BreakWord
	BreakInterPhrase
	BreakIntonationPhrase
	BreakSentence

	NumBreakLevels = int(BreakSentence) + 1
)

var breakNames = [NumBreakLevels]string{
	"Phone", "Syllable", "Word", "InterPhrase", "IntonationPhrase", "Sentence",
}

func (b BreakLevel) String() string {
	if b < 0 || int(b) >= NumBreakLevels {
		return fmt.Sprintf("BreakLevel(%d)", int(b))
	}
	return breakNames[b]
}

// Model is the trained cost function. Matrices are indexed
// [candidateValue][targetValue]; a nil matrix means the dimension was
// not trained and contributes zero cost.
type Model struct {
	schema *feature.Schema
	langID uint32

	target  [feature.NumDimensions][][]float32
	weights [feature.NumDimensions]float32
	smooth  []float32

	concat [][]float32

	totalTarget float32
	totalConcat float32
}

func (m *Model) Schema() *feature.Schema { return m.schema }
func (m *Model) LangID() uint32          { return m.langID }

// TotalTargetWeight returns the global scalar applied to every summed
// target cost.
func (m *Model) TotalTargetWeight() float32 { return m.totalTarget }

// TotalConcatWeight returns the global scalar applied to every
// concatenation cost.
func (m *Model) TotalConcatWeight() float32 { return m.totalConcat }

// Weight returns the per-dimension target-cost weight.
func (m *Model) Weight(d feature.Dimension) float32 { return m.weights[d] }

// TargetMatrix exposes one dimension's matrix, nil if untrained.
func (m *Model) TargetMatrix(d feature.Dimension) [][]float32 { return m.target[d] }

// SmoothWeights returns the trainer's smoothing-component weights. They
// are carried for retraining tools and do not enter cost evaluation.
func (m *Model) SmoothWeights() []float32 { return m.smooth }

// JoinTypeCount is the width of the concatenation matrix, 0 if absent.
func (m *Model) JoinTypeCount() int {
	if len(m.concat) == 0 {
		return 0
	}
	return len(m.concat[0])
}

// TargetCost is the weighted penalty for using a candidate whose context
// differs from the desired context: for every costed dimension it looks
// up matrix[candidate][target], applies the dimension weight, sums, and
// scales by the total target weight.
func (m *Model) TargetCost(candidate, target *feature.Vector) float32 {
	var sum float32
	for d := feature.Dimension(0); int(d) < feature.NumDimensions; d++ {
		mat := m.target[d]
		if mat == nil {
			continue
		}
		sum += m.weights[d] * mat[candidate.Value(d)][target.Value(d)]
	}
	return sum * m.totalTarget
}

// ConcatCost is the weighted penalty for joining two adjacent chosen
// units across the given break level with the given acoustic join type.
// The join type is supplied by the caller and not interpreted here; an
// absent matrix or an index outside it contributes zero.
func (m *Model) ConcatCost(level BreakLevel, joinType int) float32 {
	if level < 0 || int(level) >= len(m.concat) {
		return 0
	}
	row := m.concat[level]
	if joinType < 0 || joinType >= len(row) {
		return 0
	}
	return row[joinType] * m.totalConcat
}
