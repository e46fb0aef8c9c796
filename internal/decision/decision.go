package decision

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Advisory messages. The dash in the "refer to doctor" messages is U+2013.
const (
	MsgFractureHigh     = "Fracture detected with high confidence."
	MsgFracturePossible = "Possible fracture detected – refer to doctor."
	MsgFractureUnsure   = "Possible fracture, but AI is unsure – refer to doctor."
	MsgClearHigh        = "No fracture detected with high confidence."
	MsgClearUnsure      = "No fracture detected, but AI is unsure – refer to doctor."
)

const (
	DefaultKeyword = "fracture"
	DefaultHigh    = 70.0
	DefaultLow     = 50.0
)

// Level classifies how sure the model was about the selected branch.
type Level string

const (
	LevelHigh     Level = "high"
	LevelPossible Level = "possible"
	LevelUnsure   Level = "unsure"
)

// Decision is the advisory derived from one prediction.
type Decision struct {
	Message  string
	Level    Level
	Fracture bool
}

func (d Decision) String() string { return d.Message }

// Rules holds the keyword and the confidence cutoffs (percent) of the decision table.
// The positive branch distinguishes high/possible/unsure, the negative branch high/unsure.
// Both cutoffs are inclusive on the upper side.
type Rules struct {
	Keyword string
	High    float64
	Low     float64
}

// DefaultRules returns the fracture/70/50 table.
func DefaultRules() Rules {
	return Rules{Keyword: DefaultKeyword, High: DefaultHigh, Low: DefaultLow}
}

// Make applies the default rules and returns the advisory message.
func Make(label string, confidence float64) string {
	return DefaultRules().Decide(label, confidence).Message
}

// Decide maps a label and a confidence percentage to exactly one advisory.
func (r Rules) Decide(label string, confidence float64) Decision {
	keyword := r.Keyword
	if keyword == "" {
		keyword = DefaultKeyword
	}

	if strings.Contains(strings.ToLower(label), strings.ToLower(keyword)) {
		switch {
		case confidence >= r.High:
			return Decision{Message: MsgFractureHigh, Level: LevelHigh, Fracture: true}
		case confidence >= r.Low:
			return Decision{Message: MsgFracturePossible, Level: LevelPossible, Fracture: true}
		default:
			return Decision{Message: MsgFractureUnsure, Level: LevelUnsure, Fracture: true}
		}
	}

	if confidence >= r.High {
		return Decision{Message: MsgClearHigh, Level: LevelHigh}
	}
	return Decision{Message: MsgClearUnsure, Level: LevelUnsure}
}

// Validate checks that the rules describe a usable table.
func (r Rules) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return errors.New("decision keyword must be set")
	}
	if !inPercentRange(r.High) {
		return fmt.Errorf("high confidence cutoff %v must be within [0, 100]", r.High)
	}
	if !inPercentRange(r.Low) {
		return fmt.Errorf("low confidence cutoff %v must be within [0, 100]", r.Low)
	}
	if r.Low > r.High {
		return fmt.Errorf("low confidence cutoff %v exceeds high cutoff %v", r.Low, r.High)
	}
	return nil
}

func inPercentRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}
