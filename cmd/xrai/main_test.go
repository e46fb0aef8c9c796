package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/x-rai/xrai/internal/config"
)

func TestApplyFlagsOverridesConfig(t *testing.T) {
	cfg := config.Default()
	applyFlags(cfg, &scanFlags{
		image:     "ankle.png",
		scanDir:   "/data/toscan",
		modelDir:  "/data/weights",
		modelFile: "best.onnx",
		sharedLib: "/opt/ort/libonnxruntime.so",
		logLevel:  "debug",
	}, false)

	if cfg.Scan.Image != "ankle.png" || cfg.Scan.Dir != "/data/toscan" {
		t.Fatalf("scan overrides not applied: %+v", cfg.Scan)
	}
	if cfg.Model.Dir != "/data/weights" || cfg.Model.File != "best.onnx" {
		t.Fatalf("model overrides not applied: %+v", cfg.Model)
	}
	if cfg.ONNXRuntime.SharedLibrary != "/opt/ort/libonnxruntime.so" || cfg.Logging.Level != "debug" {
		t.Fatalf("runtime/logging overrides not applied: %+v %+v", cfg.ONNXRuntime, cfg.Logging)
	}
}

func TestApplyFlagsKeepsConfigWhenUnset(t *testing.T) {
	cfg := config.Default()
	cfg.Model.SkipManifest = true
	applyFlags(cfg, &scanFlags{}, false)

	if cfg.Scan.Image != config.DefaultImage || cfg.Model.Dir != config.DefaultModelDir {
		t.Fatalf("defaults should survive empty flags: %+v", cfg)
	}
	if !cfg.Model.SkipManifest {
		t.Fatalf("skip_manifest from config should survive an unset flag")
	}

	applyFlags(cfg, &scanFlags{skipVerify: false}, true)
	if cfg.Model.SkipManifest {
		t.Fatalf("explicit --skip-manifest=false should win")
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xrai.yaml")
	if err := os.WriteFile(path, []byte("decision:\n  high_confidence: 150\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestRootFailsWithoutModel(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "absent.yaml"),
		"--model-dir", dir,
		"--scan-dir", dir,
		"--image", "scan.jpg",
		"--log-level", "error",
	})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "load model") {
		t.Fatalf("expected model load error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("no report expected on failure, got %q", out.String())
	}
}

func TestErrorLineScrubsConfiguredDirs(t *testing.T) {
	cfg := config.Default()
	cfg.Scan.Dir = "/data/patients/John Smith 1961"
	cfg.Scan.Image = "wrist.jpg"
	cfg.Model.Dir = "/models/clinic a"

	err := errors.New("predict wrist.jpg: read image: open /data/patients/John Smith 1961/wrist.jpg: no such file or directory")
	got := errorLine(err, sensitiveDirs(cfg))
	want := "xrai: predict wrist.jpg: read image: open …/wrist.jpg: no such file or directory"
	if got != want {
		t.Fatalf("errorLine() = %q, want %q", got, want)
	}
	if got := errorLine(errors.New("model file missing in /models/clinic a"), sensitiveDirs(cfg)); strings.Contains(got, "clinic") {
		t.Fatalf("model dir leaked: %q", got)
	}
}

func TestSensitiveDirsIncludesImageSubdir(t *testing.T) {
	cfg := config.Default()
	cfg.Scan.Dir = "/scans"
	cfg.Scan.Image = "Jane Doe/elbow.jpg"
	dirs := sensitiveDirs(cfg)
	want := filepath.Join("/scans", "Jane Doe")
	for _, d := range dirs {
		if d == want {
			return
		}
	}
	t.Fatalf("expected %q in %v", want, dirs)
}
