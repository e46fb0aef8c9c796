package redact

import (
	"errors"
	"strings"
	"testing"
)

func TestStringRedaction(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		disallow []string
		require  []string
	}{
		{
			name:     "read error",
			input:    "read image: open /home/nvidia07/X-RAI/toscan/patient-4711/wrist.jpg: no such file or directory",
			disallow: []string{"patient-4711", "/home/nvidia07"},
			require:  []string{"open …/wrist.jpg: no such file"},
		},
		{
			name:     "decode error",
			input:    "predict wrist.jpg: decode /data/cases/2024-03/ankle.png: unsupported image format",
			disallow: []string{"2024-03", "/data/cases"},
			require:  []string{"decode …/ankle.png", "predict wrist.jpg"},
		},
		{
			name:     "quoted path",
			input:    `model file missing at "/opt/models/clinic-a/best.onnx"`,
			disallow: []string{"clinic-a"},
			require:  []string{`"…/best.onnx"`},
		},
		{
			name:     "home path",
			input:    "stat ~/scans/jane-doe/elbow.jpg failed",
			disallow: []string{"jane-doe"},
			require:  []string{"…/elbow.jpg"},
		},
		{
			name:    "no paths",
			input:   "onnx run: invalid input shape",
			require: []string{"onnx run: invalid input shape"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := String(tc.input)
			for _, bad := range tc.disallow {
				if bad != "" && contains(out, bad) {
					t.Fatalf("output still contains %q: %s", bad, out)
				}
			}
			for _, want := range tc.require {
				if want == "" {
					continue
				}
				if !contains(out, want) {
					t.Fatalf("output missing required substring %q: %s", want, out)
				}
			}
		})
	}
}

func TestDirsScrubsKnownDirectories(t *testing.T) {
	cases := []struct {
		name  string
		input string
		dirs  []string
		want  string
	}{
		{
			name:  "spaced directory",
			input: "decode /data/patients/John Smith 1961/wrist.jpg: unexpected EOF",
			dirs:  []string{"/data/patients/John Smith 1961"},
			want:  "decode …/wrist.jpg: unexpected EOF",
		},
		{
			name:  "nested dir listed after parent",
			input: "open /scans/Jane Doe/left arm/elbow.jpg: denied",
			dirs:  []string{"/scans/Jane Doe", "/scans/Jane Doe/left arm/"},
			want:  "open …/elbow.jpg: denied",
		},
		{
			name:  "bare directory",
			input: "model file missing in /models/clinic a (tried model.onnx, best.onnx)",
			dirs:  []string{"/models/clinic a"},
			want:  "model file missing in … (tried model.onnx, best.onnx)",
		},
		{
			name:  "no dirs falls back to pattern",
			input: "open /a/b/c.jpg: denied",
			want:  "open …/c.jpg: denied",
		},
		{
			name:  "empty and root dirs ignored",
			input: "onnx run: invalid input shape",
			dirs:  []string{"", "/", "."},
			want:  "onnx run: invalid input shape",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Dirs(tc.input, tc.dirs...); got != tc.want {
				t.Fatalf("Dirs() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPath(t *testing.T) {
	if got := Path("/scans/p1/wrist.jpg"); got != "wrist.jpg" {
		t.Fatalf("got %q", got)
	}
	if got := Path(""); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestErrorField(t *testing.T) {
	f := Error(errors.New("open /a/b/c.jpg: denied"))
	if f.Key != "error" || f.String != "open …/c.jpg: denied" {
		t.Fatalf("unexpected field %+v", f)
	}
	f = Error(errors.New("decode /data/John Smith/x.png: EOF"), "/data/John Smith")
	if strings.Contains(f.String, "John") {
		t.Fatalf("known directory leaked: %q", f.String)
	}
	if Error(nil).Key != "" {
		t.Fatalf("nil error should produce a skip field")
	}
}

func contains(s, sub string) bool {
	return s != "" && sub != "" && strings.Contains(s, sub)
}
