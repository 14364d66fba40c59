// Package dissimilarity computes Gower-style mixed-type distances between the
// individuals of a population and reduces them to a scalar diversity signal.
//
// The scalar is the sum of the full symmetric distance matrix. It grows with
// both population size and pairwise dissimilarity, so it is only comparable
// across runs or generations with comparable population sizes. Building the
// matrix is quadratic in the number of individuals.
package dissimilarity

import "math"

type Kind int

const (
	Categorical Kind = iota
	Numeric
)

// Value is one attribute of an individual. A value that is not Present is
// excluded from every pair it takes part in.
type Value struct {
	Kind    Kind
	Text    string
	Number  float64
	Present bool
}

func Cat(text string) Value {
	return Value{Kind: Categorical, Text: text, Present: text != ""}
}

func Num(number float64) Value {
	return Value{Kind: Numeric, Number: number, Present: !math.IsNaN(number) && !math.IsInf(number, 0)}
}

func Missing(kind Kind) Value {
	return Value{Kind: kind}
}

// Individual holds one Value per field, in field order.
type Individual []Value

// PairStats counts pairs that could not use every field.
type PairStats struct {
	// InconsistentFieldPairs is the number of pairs where at least one
	// field was missing on one side.
	InconsistentFieldPairs int
	// UndefinedPairs is the number of pairs sharing no field at all; their
	// distance is NaN and they are left out of Sum.
	UndefinedPairs int
}

// Matrix builds the symmetric pairwise distance matrix with a zero diagonal.
// The distance of a pair is the mean of the per-field distances over the
// fields present on both sides: 0/1 for categorical fields and
// |a-b|/range for numeric ones, range being the observed max-min of the
// field across the population (a zero range contributes 0).
func Matrix(individuals []Individual) ([][]float64, PairStats) {
	n := len(individuals)
	ranges := numericRanges(individuals)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	var pairStats PairStats
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, used, skipped := pairDistance(individuals[i], individuals[j], ranges)
			if skipped > 0 {
				pairStats.InconsistentFieldPairs++
			}
			if used == 0 {
				pairStats.UndefinedPairs++
				d = math.NaN()
			}
			matrix[i][j] = d
			matrix[j][i] = d
		}
	}
	return matrix, pairStats
}

// Sum adds every defined entry of the matrix, i.e. twice the off-diagonal
// upper triangle.
func Sum(matrix [][]float64) float64 {
	total := 0.0
	for _, row := range matrix {
		for _, d := range row {
			if !math.IsNaN(d) {
				total += d
			}
		}
	}
	return total
}

// Score is Sum(Matrix(individuals)).
func Score(individuals []Individual) (float64, PairStats) {
	matrix, pairStats := Matrix(individuals)
	return Sum(matrix), pairStats
}

func pairDistance(a, b Individual, ranges []float64) (float64, int, int) {
	width := len(a)
	if len(b) > width {
		width = len(b)
	}
	sum := 0.0
	used := 0
	skipped := 0
	for f := 0; f < width; f++ {
		if f >= len(a) || f >= len(b) || !a[f].Present || !b[f].Present {
			skipped++
			continue
		}
		sum += fieldDistance(a[f], b[f], rangeAt(ranges, f))
		used++
	}
	if used == 0 {
		return 0, 0, skipped
	}
	return sum / float64(used), used, skipped
}

func fieldDistance(a, b Value, fieldRange float64) float64 {
	if a.Kind == Numeric && b.Kind == Numeric {
		if fieldRange == 0 {
			return 0
		}
		return math.Abs(a.Number-b.Number) / fieldRange
	}
	if a.Kind != b.Kind || a.Text != b.Text {
		return 1
	}
	return 0
}

func numericRanges(individuals []Individual) []float64 {
	width := 0
	for _, ind := range individuals {
		if len(ind) > width {
			width = len(ind)
		}
	}
	ranges := make([]float64, width)
	for f := 0; f < width; f++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, ind := range individuals {
			if f >= len(ind) || !ind[f].Present || ind[f].Kind != Numeric {
				continue
			}
			lo = math.Min(lo, ind[f].Number)
			hi = math.Max(hi, ind[f].Number)
		}
		if hi > lo {
			ranges[f] = hi - lo
		}
	}
	return ranges
}

func rangeAt(ranges []float64, f int) float64 {
	if f < len(ranges) {
		return ranges[f]
	}
	return 0
}
