package classifier

import "math"

// probabilityTolerance bounds how far a row may drift from summing to 1
// and still be treated as already normalized.
const probabilityTolerance = 1e-3

// normalizeScores returns probabilities for one output row. Exports that end in a
// softmax layer are passed through; raw logits are run through softmax.
func normalizeScores(raw []float32) []float32 {
	if len(raw) == 0 {
		return nil
	}
	if isProbabilityRow(raw) {
		out := make([]float32, len(raw))
		copy(out, raw)
		return out
	}
	return softmax(raw)
}

func isProbabilityRow(v []float32) bool {
	sum := 0.0
	for _, p := range v {
		if p < 0 || p > 1 || math.IsNaN(float64(p)) {
			return false
		}
		sum += float64(p)
	}
	return math.Abs(sum-1) <= probabilityTolerance
}

func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	out := make([]float32, len(logits))
	for i, v := range logits {
		exp := math.Exp(float64(v - maxVal))
		out[i] = float32(exp)
		sum += exp
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
