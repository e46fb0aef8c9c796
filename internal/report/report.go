package report

import (
	"fmt"
	"io"
	"strings"
)

// Separator frames the report block.
var Separator = strings.Repeat("-", 51)

// Report is the console summary of one scan.
type Report struct {
	ImagePath  string
	Label      string
	Confidence float64 // percent
	Decision   string
}

// Write prints the framed report block to w.
func Write(w io.Writer, r Report) error {
	var b strings.Builder
	b.WriteString(Separator + "\n")
	fmt.Fprintf(&b, "📸 Image Path:     %s\n", r.ImagePath)
	fmt.Fprintf(&b, "🧠 Prediction:     %s\n", r.Label)
	fmt.Fprintf(&b, "📈 Confidence:     %.2f%%\n", r.Confidence)
	fmt.Fprintf(&b, "✅ Decision:       %s\n", r.Decision)
	b.WriteString(Separator + "\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
