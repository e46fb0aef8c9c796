package classifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/x-rai/xrai/internal/imaging"
)

// ErrNotInitialized is returned by Predict on a nil or closed model.
var ErrNotInitialized = errors.New("classifier model not initialized")

// modelCandidates are probed in order when Options.File is empty.
var modelCandidates = []string{"model.onnx", "best.onnx"}

// Options configures LoadModel.
type Options struct {
	Dir           string
	File          string
	InputSize     int
	SharedLibrary string
	IntraThreads  int
	InterThreads  int
	SkipManifest  bool
}

// Model wraps the ONNX session of an image classifier and its class names.
type Model struct {
	session   *ort.AdvancedSession
	names     []string
	inputSize int
	path      string
	manifest  *Manifest

	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadModel verifies the model directory, initializes onnxruntime and creates the session.
func LoadModel(opts Options) (*Model, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("model dir is empty")
	}
	if opts.InputSize <= 0 {
		opts.InputSize = imaging.DefaultInputSize
	}

	modelPath, err := resolveModelPath(opts.Dir, opts.File)
	if err != nil {
		return nil, err
	}

	var manifest *Manifest
	if !opts.SkipManifest {
		manifest, err = VerifyModelDir(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("verify model dir: %w", err)
		}
	}

	if err := initRuntime(opts.SharedLibrary, opts.Dir); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model io info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("expected one model input, found %d", len(inputs))
	}
	if len(outputs) == 0 {
		return nil, errors.New("model has no outputs")
	}
	in, out := inputs[0], outputs[0]

	size := inputSizeFromDims(in.Dimensions, opts.InputSize)

	names, err := loadNames(opts.Dir, modelPath)
	if err != nil {
		return nil, fmt.Errorf("load class names: %w", err)
	}
	if n := classCountFromDims(out.Dimensions); n > 0 && n != len(names) {
		return nil, fmt.Errorf("model outputs %d classes but %d names are defined", n, len(names))
	}

	sessOpts, err := newSessionOptions(opts.IntraThreads, opts.InterThreads)
	if err != nil {
		return nil, err
	}
	defer sessOpts.Destroy()

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(names))))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{in.Name},
		[]string{out.Name},
		[]ort.Value{input},
		[]ort.Value{output},
		sessOpts,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Model{
		session:   session,
		names:     names,
		inputSize: size,
		path:      modelPath,
		manifest:  manifest,
		input:     input,
		output:    output,
	}, nil
}

// Names returns the class names indexed by model output position.
func (m *Model) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// InputSize returns the square input edge the session was built for.
func (m *Model) InputSize() int { return m.inputSize }

// Path returns the ONNX file backing the session.
func (m *Model) Path() string { return m.path }

// Manifest returns the verified manifest, or nil when the model dir had none.
func (m *Model) Manifest() *Manifest { return m.manifest }

// Predict loads the image at path and classifies it.
func (m *Model) Predict(ctx context.Context, path string) (*Result, error) {
	if m == nil || m.session == nil {
		return nil, ErrNotInitialized
	}
	img, err := imaging.Load(path)
	if err != nil {
		return nil, err
	}
	return m.PredictImage(ctx, img)
}

// PredictImage classifies an already decoded image.
func (m *Model) PredictImage(ctx context.Context, img *imaging.Image) (*Result, error) {
	if m == nil || m.session == nil {
		return nil, ErrNotInitialized
	}
	if img == nil {
		return nil, errors.New("image is nil")
	}

	tensor, err := imaging.Preprocess(img.Pixels, m.inputSize)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, ErrNotInitialized
	}
	copy(m.input.GetData(), tensor)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	res := NewResult(m.Names(), normalizeScores(m.output.GetData()))
	res.Image = img.Info
	return res, nil
}

// Close releases the session and its tensors.
func (m *Model) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.session != nil {
		errs = append(errs, m.session.Destroy())
		m.session = nil
	}
	if m.input != nil {
		errs = append(errs, m.input.Destroy())
		m.input = nil
	}
	if m.output != nil {
		errs = append(errs, m.output.Destroy())
		m.output = nil
	}
	return errors.Join(errs...)
}

func resolveModelPath(dir, file string) (string, error) {
	if file = strings.TrimSpace(file); file != "" {
		p := file
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, file)
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("model file missing at %s: %w", p, err)
		}
		return p, nil
	}
	for _, name := range modelCandidates {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("model file missing in %s (tried %s)", dir, strings.Join(modelCandidates, ", "))
}

// loadNames prefers label_map.json and falls back to the "names" ONNX metadata entry.
func loadNames(dir, modelPath string) ([]string, error) {
	names, err := loadLabels(filepath.Join(dir, LabelMapFile))
	if err == nil {
		return names, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", LabelMapFile, err)
	}

	meta, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	defer meta.Destroy()

	raw, ok, err := meta.LookupCustomMetadataMap("names")
	if err != nil {
		return nil, fmt.Errorf("read names metadata: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("no %s and no names metadata in %s", LabelMapFile, filepath.Base(modelPath))
	}
	return parseMetadataNames(raw)
}

func newSessionOptions(intra, inter int) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}
	if intra > 0 {
		if err := opts.SetIntraOpNumThreads(intra); err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("set intra threads: %w", err)
		}
	}
	if inter > 0 {
		if err := opts.SetInterOpNumThreads(inter); err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("set inter threads: %w", err)
		}
	}
	return opts, nil
}

// inputSizeFromDims returns the fixed spatial edge of an NCHW input, or fallback when dynamic.
func inputSizeFromDims(dims []int64, fallback int) int {
	if len(dims) == 4 && dims[2] > 0 && dims[2] == dims[3] {
		return int(dims[2])
	}
	return fallback
}

// classCountFromDims returns the fixed class dimension of an [N, C] output, or 0 when dynamic.
func classCountFromDims(dims []int64) int {
	if len(dims) == 0 {
		return 0
	}
	if last := dims[len(dims)-1]; last > 0 {
		return int(last)
	}
	return 0
}
