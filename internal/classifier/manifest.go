package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ManifestFile is the optional integrity manifest next to the model.
const ManifestFile = "manifest.json"

// ManifestEntry describes one file entry in manifest.json.
type ManifestEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// Manifest mirrors manifest.json.
type Manifest struct {
	Model     string          `json:"model"`
	Version   string          `json:"version"`
	CreatedAt string          `json:"created_at,omitempty"`
	Files     []ManifestEntry `json:"files"`
}

// LoadManifest reads dir/manifest.json. A missing manifest returns os.ErrNotExist.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// VerifyModelDir validates size and sha256 of every file listed in dir/manifest.json.
// It returns nil, nil when the directory carries no manifest.
func VerifyModelDir(dir string) (*Manifest, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("model dir is empty")
	}
	manifest, err := LoadManifest(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(manifest.Files) == 0 {
		return nil, errors.New("manifest lists no files")
	}

	for _, f := range manifest.Files {
		local, err := resolveModelDirPath(dir, filepath.FromSlash(f.Path))
		if err != nil {
			return nil, fmt.Errorf("resolve path %s: %w", f.Path, err)
		}
		info, err := os.Stat(local)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", f.Path, err)
		}
		if f.Size > 0 && info.Size() != f.Size {
			return nil, fmt.Errorf("size mismatch for %s: expected %d got %d", f.Path, f.Size, info.Size())
		}
		if f.SHA256 == "" {
			continue
		}
		sum, err := fileSHA256(local)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", f.Path, err)
		}
		if !strings.EqualFold(sum, f.SHA256) {
			return nil, fmt.Errorf("sha256 mismatch for %s: expected %s got %s", f.Path, f.SHA256, sum)
		}
	}
	return manifest, nil
}

func fileSHA256(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// resolveModelDirPath joins rel onto dir, refusing absolute paths and traversal.
func resolveModelDirPath(dir, rel string) (string, error) {
	if rel == "" {
		return "", errors.New("empty path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute path %q not allowed", rel)
	}
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes model dir", rel)
	}
	return filepath.Join(dir, clean), nil
}
