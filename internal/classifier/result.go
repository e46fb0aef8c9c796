package classifier

import (
	"context"
	"sort"

	"github.com/x-rai/xrai/internal/imaging"
)

// Predictor classifies the image stored at path.
type Predictor interface {
	Predict(ctx context.Context, path string) (*Result, error)
}

// Result is one classification: class names, per-class probabilities and the top-1 index.
type Result struct {
	Names []string
	Probs []float32
	Top1  int
	Image imaging.Info
}

// NewResult builds a Result from names and probabilities, selecting the top-1 class.
func NewResult(names []string, probs []float32) *Result {
	return &Result{Names: names, Probs: probs, Top1: argmax(probs)}
}

// Label returns the name of the top-1 class.
func (r *Result) Label() string {
	if r == nil {
		return ""
	}
	return r.Name(r.Top1)
}

// Confidence returns the top-1 probability as a percentage.
func (r *Result) Confidence() float64 {
	if r == nil || r.Top1 < 0 || r.Top1 >= len(r.Probs) {
		return 0
	}
	return float64(r.Probs[r.Top1]) * 100
}

// Top5 returns up to five class indices by descending probability.
func (r *Result) Top5() []int {
	if r == nil {
		return nil
	}
	return topK(r.Probs, 5)
}

// Scores maps class name to probability.
func (r *Result) Scores() map[string]float32 {
	if r == nil {
		return nil
	}
	out := make(map[string]float32, len(r.Probs))
	for i, p := range r.Probs {
		out[r.Name(i)] = p
	}
	return out
}

// Name returns the class name at index i, or "" when out of range.
func (r *Result) Name(i int) string {
	if r == nil || i < 0 || i >= len(r.Names) {
		return ""
	}
	return r.Names[i]
}

// argmax returns the first index holding the maximum, or -1 for empty input.
func argmax(v []float32) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func topK(v []float32, k int) []int {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] > v[idx[b]] })
	if len(idx) > k {
		idx = idx[:k]
	}
	return idx
}
