package classifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// SharedLibraryEnv overrides the onnxruntime shared library location.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

var runtimeMu sync.Mutex

// initRuntime points onnxruntime_go at the shared library and initializes the environment once.
func initRuntime(configured, modelDir string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	libPath := resolveSharedLibraryPath(configured, modelDir)
	if libPath == "" {
		return errors.New("onnxruntime shared library not found; set " + SharedLibraryEnv + " or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// resolveSharedLibraryPath locates a platform-specific onnxruntime shared library.
// An explicit path wins, then the environment variable, then common names and locations.
func resolveSharedLibraryPath(configured, modelDir string) string {
	if p := strings.TrimSpace(configured); p != "" {
		return p
	}
	if env := strings.TrimSpace(os.Getenv(SharedLibraryEnv)); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		modelDir,
		filepath.Join(modelDir, "lib"),
		".",
		"/usr/local/lib",
		"/usr/lib",
		"/usr/lib/aarch64-linux-gnu",
		"/opt/homebrew/lib",
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
