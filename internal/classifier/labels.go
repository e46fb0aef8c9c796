package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// LabelMapFile is the optional class-name file next to the model.
const LabelMapFile = "label_map.json"

// loadLabels reads a JSON array of names or an {"index": "name"} object.
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return labelsFromIndexMap(m)
}

func labelsFromIndexMap(m map[string]string) ([]string, error) {
	if len(m) == 0 {
		return nil, errors.New("label map is empty")
	}
	out := make([]string, len(m))
	seen := make([]bool, len(m))
	for k, v := range m {
		idx, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, err)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		if seen[idx] {
			return nil, fmt.Errorf("duplicate label index %d", idx)
		}
		seen[idx] = true
		out[idx] = v
	}
	return out, nil
}

var namesEntryRe = regexp.MustCompile(`(\d+)\s*:\s*(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")`)

// parseMetadataNames parses the "names" entry Ultralytics writes into ONNX
// metadata, e.g. {0: 'fracture', 1: 'normal'}. JSON objects are accepted too.
func parseMetadataNames(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("names metadata is empty")
	}

	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err == nil {
		return labelsFromIndexMap(m)
	}

	matches := namesEntryRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("unrecognized names metadata %q", raw)
	}
	byIndex := make(map[int]string, len(matches))
	for _, mt := range matches {
		idx, err := strconv.Atoi(mt[1])
		if err != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", mt[1], err)
		}
		name := mt[2]
		if name == "" {
			name = mt[3]
		}
		byIndex[idx] = unescapeQuoted(name)
	}

	indices := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	out := make([]string, len(indices))
	for i, idx := range indices {
		if idx != i {
			return nil, fmt.Errorf("names metadata missing index %d", i)
		}
		out[i] = byIndex[idx]
	}
	return out, nil
}

func unescapeQuoted(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
