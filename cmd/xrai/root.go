package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/x-rai/xrai/internal/classifier"
	"github.com/x-rai/xrai/internal/config"
	"github.com/x-rai/xrai/internal/logging"
	"github.com/x-rai/xrai/internal/redact"
	"github.com/x-rai/xrai/internal/scan"
)

// version is set at build time via -ldflags.
var version = "dev"

type scanFlags struct {
	configPath string
	image      string
	scanDir    string
	modelDir   string
	modelFile  string
	sharedLib  string
	logLevel   string
	skipVerify bool

	// redactDirs holds the configured directories once the config is loaded.
	redactDirs []string
}

func newRootCmd() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

func newRoot() (*cobra.Command, *scanFlags) {
	f := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "xrai",
		Short: "Screen one X-ray image for fractures",
		Long: "xrai classifies a single X-ray image with an ONNX export of the trained\n" +
			"classifier and prints the predicted class, its confidence and an advisory.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			f.redactDirs = sensitiveDirs(cfg)
			return runScan(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	cmd.Version = version

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "xrai.yaml", "Path to xrai config file")
	fl.StringVarP(&f.image, "image", "i", "", "Image filename inside the scan dir (overrides scan.image)")
	fl.StringVar(&f.scanDir, "scan-dir", "", "Directory holding images to scan (overrides scan.dir)")
	fl.StringVar(&f.modelDir, "model-dir", "", "Directory holding the ONNX model (overrides model.dir)")
	fl.StringVar(&f.modelFile, "model-file", "", "ONNX file name inside the model dir (overrides model.file)")
	fl.StringVar(&f.sharedLib, "onnxruntime-lib", "", "Path to the onnxruntime shared library")
	fl.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fl.BoolVar(&f.skipVerify, "skip-manifest", false, "Do not verify manifest.json hashes")

	cmd.AddCommand(newVersionCmd())
	return cmd, f
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the xrai version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func loadConfig(cmd *cobra.Command, f *scanFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, f, cmd.Flags().Changed("skip-manifest"))
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyFlags overlays non-empty flag values onto cfg.
func applyFlags(cfg *config.Config, f *scanFlags, skipSet bool) {
	if f.image != "" {
		cfg.Scan.Image = f.image
	}
	if f.scanDir != "" {
		cfg.Scan.Dir = f.scanDir
	}
	if f.modelDir != "" {
		cfg.Model.Dir = f.modelDir
	}
	if f.modelFile != "" {
		cfg.Model.File = f.modelFile
	}
	if f.sharedLib != "" {
		cfg.ONNXRuntime.SharedLibrary = f.sharedLib
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if skipSet {
		cfg.Model.SkipManifest = f.skipVerify
	}
}

// sensitiveDirs lists the directories scrubbed from logged and printed errors.
func sensitiveDirs(cfg *config.Config) []string {
	dirs := []string{cfg.Scan.Dir, cfg.Model.Dir}
	if p, err := scan.ResolveImagePath(cfg.Scan.Dir, cfg.Scan.Image); err == nil {
		dirs = append(dirs, filepath.Dir(p))
	}
	return dirs
}

func runScan(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	dirs := sensitiveDirs(cfg)

	model, err := classifier.LoadModel(classifier.Options{
		Dir:           cfg.Model.Dir,
		File:          cfg.Model.File,
		InputSize:     cfg.Model.InputSize,
		SharedLibrary: cfg.ONNXRuntime.SharedLibrary,
		IntraThreads:  cfg.Model.IntraThreads,
		InterThreads:  cfg.Model.InterThreads,
		SkipManifest:  cfg.Model.SkipManifest,
	})
	if err != nil {
		logger.Error("model load failed", redact.Error(err, dirs...))
		return fmt.Errorf("load model: %w", err)
	}
	defer func() {
		if err := model.Close(); err != nil {
			logger.Warn("model close failed", redact.Error(err, dirs...))
		}
	}()

	fields := []zap.Field{
		zap.String("model", redact.Path(model.Path())),
		zap.Int("classes", len(model.Names())),
		zap.Int("input_size", model.InputSize()),
	}
	if m := model.Manifest(); m != nil {
		fields = append(fields, zap.String("model_version", m.Version))
	}
	logger.Info("model loaded", fields...)

	if ctx == nil {
		ctx = context.Background()
	}
	_, err = scan.Run(ctx, scan.Options{
		Dir:       cfg.Scan.Dir,
		Filename:  cfg.Scan.Image,
		Predictor: model,
		Rules:     cfg.Decision.Rules(),
		Out:       out,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("scan failed", redact.Error(err, dirs...))
		return err
	}
	return nil
}

func execute() int {
	cmd, f := newRoot()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err, f.redactDirs))
		return 1
	}
	return 0
}

func errorLine(err error, dirs []string) string {
	return "xrai: " + redact.Dirs(err.Error(), dirs...)
}
