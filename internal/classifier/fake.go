package classifier

import (
	"context"
	"sync"
)

// FakePredictor returns a fixed result without touching onnxruntime.
type FakePredictor struct {
	Names []string
	Probs []float32
	Error error

	mu    sync.Mutex
	Paths []string
}

func (f *FakePredictor) Predict(ctx context.Context, path string) (*Result, error) {
	f.mu.Lock()
	f.Paths = append(f.Paths, path)
	f.mu.Unlock()

	if f.Error != nil {
		return nil, f.Error
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewResult(f.Names, f.Probs), nil
}

func NewFake(names []string, probs []float32) *FakePredictor {
	return &FakePredictor{Names: names, Probs: probs}
}
