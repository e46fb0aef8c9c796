// Package redact scrubs identifying data from free-form strings before they are logged.
package redact

import (
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var (
	// absolute unix paths with at least one directory component
	absPathRe = regexp.MustCompile(`(^|[\s"'=(:])(/(?:[^\s"'/:]+/)+)([^\s"'/:)]+)`)
	homeRe    = regexp.MustCompile(`(^|[\s"'=(:])(~/(?:[^\s"'/:]+/)*)([^\s"'/:)]+)`)
)

// String replaces the directory part of absolute paths with "…/", keeping the file name.
// Scan directories usually carry patient or case identifiers.
func String(s string) string {
	if s == "" || !strings.ContainsAny(s, "/") {
		return s
	}
	out := absPathRe.ReplaceAllString(s, "${1}…/${3}")
	out = homeRe.ReplaceAllString(out, "${1}…/${3}")
	return out
}

// Dirs replaces every occurrence of the given directories in s with "…", then applies String.
// Known directories are matched literally, so names with spaces or colons are scrubbed whole.
func Dirs(s string, dirs ...string) string {
	for _, d := range knownDirs(dirs) {
		s = strings.ReplaceAll(s, d+string(filepath.Separator), "…/")
		s = strings.ReplaceAll(s, d, "…")
	}
	return String(s)
}

// knownDirs returns the cleaned and absolute forms of dirs, longest first.
func knownDirs(dirs []string) []string {
	seen := make(map[string]struct{}, len(dirs)*2)
	var out []string
	add := func(d string) {
		if d == "." || d == string(filepath.Separator) {
			return
		}
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	for _, d := range dirs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		d = filepath.Clean(d)
		add(d)
		if abs, err := filepath.Abs(d); err == nil {
			add(abs)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// Path returns the base name of p, or "" for an empty path.
func Path(p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	return path.Base(p)
}

// Error is a zap field carrying the redacted error text. dirs are scrubbed as in Dirs.
func Error(err error, dirs ...string) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", Dirs(err.Error(), dirs...))
}
