// Package scan runs one image through the classifier and reports the advisory.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/x-rai/xrai/internal/classifier"
	"github.com/x-rai/xrai/internal/decision"
	"github.com/x-rai/xrai/internal/redact"
	"github.com/x-rai/xrai/internal/report"
)

var (
	ErrEmptyFilename = errors.New("image filename is empty")
	ErrPathEscapes   = errors.New("image filename escapes scan dir")
)

// Options wires one scan.
type Options struct {
	Dir       string
	Filename  string
	Predictor classifier.Predictor
	Rules     decision.Rules
	Out       io.Writer
	Logger    *zap.Logger
}

// Outcome is the result of a completed scan.
type Outcome struct {
	ImagePath  string
	Label      string
	Confidence float64
	Decision   decision.Decision
	Result     *classifier.Result
	Elapsed    time.Duration
}

// Report converts the outcome into the console report.
func (o *Outcome) Report() report.Report {
	return report.Report{
		ImagePath:  o.ImagePath,
		Label:      o.Label,
		Confidence: o.Confidence,
		Decision:   o.Decision.Message,
	}
}

// ResolveImagePath joins dir and filename into an absolute path.
func ResolveImagePath(dir, filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", ErrEmptyFilename
	}
	if filepath.IsAbs(filename) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, filename)
	}
	clean := filepath.Clean(filename)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, filename)
	}
	abs, err := filepath.Abs(filepath.Join(dir, clean))
	if err != nil {
		return "", fmt.Errorf("resolve image path: %w", err)
	}
	return abs, nil
}

// Run resolves the image path, classifies the image, decides and writes the report.
func Run(ctx context.Context, opts Options) (*Outcome, error) {
	if opts.Predictor == nil {
		return nil, errors.New("predictor is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	rules := opts.Rules
	if rules == (decision.Rules{}) {
		rules = decision.DefaultRules()
	}

	path, err := ResolveImagePath(opts.Dir, opts.Filename)
	if err != nil {
		return nil, err
	}
	logger.Debug("scan: resolved image", zap.String("path", path))

	start := time.Now()
	res, err := opts.Predictor.Predict(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", filepath.Base(path), err)
	}
	elapsed := time.Since(start)

	label := res.Label()
	if label == "" {
		return nil, fmt.Errorf("predict %s: model returned no label", filepath.Base(path))
	}
	confidence := res.Confidence()
	d := rules.Decide(label, confidence)

	if logger.Core().Enabled(zap.DebugLevel) {
		top := make([]string, 0, 5)
		for _, i := range res.Top5() {
			top = append(top, fmt.Sprintf("%s=%.4f", res.Name(i), res.Probs[i]))
		}
		logger.Debug("scan: top5", zap.Strings("classes", top))
	}
	logger.Info("scan: classified",
		zap.String("image", redact.Path(path)),
		zap.String("label", label),
		zap.Float64("confidence", confidence),
		zap.String("level", string(d.Level)),
		zap.Bool("fracture", d.Fracture),
		zap.String("dhash", res.Image.DHash),
		zap.Duration("elapsed", elapsed),
	)

	outcome := &Outcome{
		ImagePath:  path,
		Label:      label,
		Confidence: confidence,
		Decision:   d,
		Result:     res,
		Elapsed:    elapsed,
	}
	if err := report.Write(out, outcome.Report()); err != nil {
		return outcome, err
	}
	return outcome, nil
}
