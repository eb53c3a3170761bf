package scoring

import (
	"errors"
	"fmt"
)

// ElevatedAverage is the dimension average at which a dimension needs attention
const ElevatedAverage = 2.0

var (
	ErrWrongLength  = errors.New("answers must contain exactly 90 items")
	ErrAnswerBounds = errors.New("answer out of range")
)

// DimensionScore is the aggregate of one dimension
type DimensionScore struct {
	Dimension
	Score   int     `json:"score"`
	Average float64 `json:"average"`
}

// Elevated reports whether the dimension average reaches ElevatedAverage
func (s DimensionScore) Elevated() bool {
	return s.Average >= ElevatedAverage
}

// Result is the full score of a questionnaire
type Result struct {
	Dimensions    []DimensionScore `json:"dimensions"`
	TotalScore    int              `json:"totalScore"`
	AverageScore  float64          `json:"averageScore"`
	PositiveItems int              `json:"positiveItems"`
	NegativeItems int              `json:"negativeItems"`
}

// Dimension returns the score for key
func (r *Result) Dimension(key string) (DimensionScore, bool) {
	for _, d := range r.Dimensions {
		if d.Key == key {
			return d, true
		}
	}
	return DimensionScore{}, false
}

// ElevatedDimensions returns the dimensions needing attention, in order
func (r *Result) ElevatedDimensions() []DimensionScore {
	var out []DimensionScore
	for _, d := range r.Dimensions {
		if d.Elevated() {
			out = append(out, d)
		}
	}
	return out
}

// Validate checks the precondition of Score
func Validate(answers []int) error {
	if len(answers) != ItemCount {
		return fmt.Errorf("%w: got %d", ErrWrongLength, len(answers))
	}
	for i, a := range answers {
		if a < MinAnswer || a > MaxAnswer {
			return fmt.Errorf("%w: item %d is %d", ErrAnswerBounds, i+1, a)
		}
	}
	return nil
}

// Score aggregates 90 answers. Callers must Validate first; no rounding is
// applied.
func Score(answers []int) *Result {
	result := &Result{Dimensions: make([]DimensionScore, 0, len(Dimensions))}

	for _, d := range Dimensions {
		sum := 0
		for i := d.First - 1; i < d.Last && i < len(answers); i++ {
			sum += answers[i]
		}
		result.Dimensions = append(result.Dimensions, DimensionScore{
			Dimension: d,
			Score:     sum,
			Average:   float64(sum) / float64(d.Items()),
		})
	}

	for _, a := range answers {
		result.TotalScore += a
		switch {
		case a >= 2:
			result.PositiveItems++
		case a == 1:
			result.NegativeItems++
		}
	}
	result.AverageScore = float64(result.TotalScore) / float64(ItemCount)
	return result
}
