package scan

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/x-rai/xrai/internal/classifier"
	"github.com/x-rai/xrai/internal/decision"
)

func TestResolveImagePath(t *testing.T) {
	got, err := ResolveImagePath("/home/nvidia07/X-RAI/toscan", "EExtremelyHard2.jpg")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := filepath.Join("/home/nvidia07/X-RAI/toscan", "EExtremelyHard2.jpg")
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	rel, err := ResolveImagePath("scans", "wrist.png")
	if err != nil {
		t.Fatalf("resolve relative: %v", err)
	}
	if !filepath.IsAbs(rel) || !strings.HasSuffix(rel, filepath.Join("scans", "wrist.png")) {
		t.Fatalf("expected absolute path ending in scans/wrist.png, got %s", rel)
	}

	nested, err := ResolveImagePath("/scans", "2024/./wrist.png")
	if err != nil || nested != filepath.Join("/scans", "2024", "wrist.png") {
		t.Fatalf("nested path: %s (%v)", nested, err)
	}
}

func TestResolveImagePathRejects(t *testing.T) {
	cases := []struct {
		filename string
		want     error
	}{
		{"", ErrEmptyFilename},
		{"   ", ErrEmptyFilename},
		{"../secret.jpg", ErrPathEscapes},
		{"a/../../secret.jpg", ErrPathEscapes},
		{"/etc/passwd", ErrPathEscapes},
	}
	for _, tc := range cases {
		if _, err := ResolveImagePath("/scans", tc.filename); !errors.Is(err, tc.want) {
			t.Fatalf("ResolveImagePath(%q): expected %v, got %v", tc.filename, tc.want, err)
		}
	}
}

func TestRunWritesReport(t *testing.T) {
	fake := classifier.NewFake([]string{"fracture", "normal"}, []float32{0.8542, 0.1458})
	var out bytes.Buffer
	core, logs := observer.New(zapcore.InfoLevel)

	outcome, err := Run(context.Background(), Options{
		Dir:       "/scans",
		Filename:  "wrist.jpg",
		Predictor: fake,
		Out:       &out,
		Logger:    zap.New(core),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if outcome.Decision.Message != decision.MsgFractureHigh {
		t.Fatalf("unexpected decision %q", outcome.Decision.Message)
	}
	if diff := cmp.Diff([]string{"/scans/wrist.jpg"}, fake.Paths); diff != "" {
		t.Fatalf("predictor paths (-want +got):\n%s", diff)
	}

	want := strings.Join([]string{
		"---------------------------------------------------",
		"📸 Image Path:     /scans/wrist.jpg",
		"🧠 Prediction:     fracture",
		"📈 Confidence:     85.42%",
		"✅ Decision:       Fracture detected with high confidence.",
		"---------------------------------------------------",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("report (-want +got):\n%s", diff)
	}

	entries := logs.FilterMessage("scan: classified").All()
	if len(entries) != 1 {
		t.Fatalf("expected one classified log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["image"] != "wrist.jpg" {
		t.Fatalf("info log should carry only the base name, got %v", fields["image"])
	}
	for _, v := range fields {
		if s, ok := v.(string); ok && strings.Contains(s, "/scans") {
			t.Fatalf("info log leaked full path: %v", fields)
		}
	}
}

func TestRunCustomRules(t *testing.T) {
	fake := classifier.NewFake([]string{"normal", "fracture"}, []float32{0.65, 0.35})
	outcome, err := Run(context.Background(), Options{
		Dir:       "/scans",
		Filename:  "knee.jpg",
		Predictor: fake,
		Rules:     decision.Rules{Keyword: "fracture", High: 60, Low: 30},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Label != "normal" || outcome.Decision.Message != decision.MsgClearHigh {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestRunPropagatesPredictorError(t *testing.T) {
	fake := &classifier.FakePredictor{Error: os.ErrNotExist}
	var out bytes.Buffer
	_, err := Run(context.Background(), Options{
		Dir:       "/scans",
		Filename:  "missing.jpg",
		Predictor: fake,
		Out:       &out,
	})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("no report expected on failure, got %q", out.String())
	}
}

func TestRunRejectsEmptyResult(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Dir:       "/scans",
		Filename:  "x.jpg",
		Predictor: classifier.NewFake(nil, nil),
	})
	if err == nil || !strings.Contains(err.Error(), "no label") {
		t.Fatalf("expected no label error, got %v", err)
	}
}

func TestRunRequiresPredictor(t *testing.T) {
	if _, err := Run(context.Background(), Options{Filename: "x.jpg"}); err == nil {
		t.Fatalf("expected error without predictor")
	}
}

func TestRunLogsTop5AtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, err := Run(context.Background(), Options{
		Dir:       "/scans",
		Filename:  "x.jpg",
		Predictor: classifier.NewFake([]string{"fracture", "normal"}, []float32{0.3, 0.7}),
		Logger:    zap.New(core),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	entries := logs.FilterMessage("scan: top5").All()
	if len(entries) != 1 {
		t.Fatalf("expected top5 debug entry, got %d", len(entries))
	}
	if logs.FilterMessage("scan: resolved image").Len() != 1 {
		t.Fatalf("expected full path only in debug entry")
	}
}
