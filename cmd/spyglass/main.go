package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	spyglass "github.com/mgrier/spyglass"
	"github.com/mgrier/spyglass/internal/config"
)

var (
	flagConfig string
	flagFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "spyglass",
	Short:         "Multi-language code intelligence",
	Long:          "Spyglass scans source trees into symbol trees and answers definition, completion, and call tip queries over them.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "spyglass.toml", "configuration file path")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
}

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("unknown format %q (want json or text)", format)
}

// loadConfig reads the configured TOML file; a missing file yields the
// defaults.
func loadConfig() (config.Config, error) {
	return config.Load(flagConfig)
}

// newEngine builds an engine from the configuration: language filter,
// scan limits, scripted adapters, and the catalog cache.
func newEngine(cfg config.Config) (*spyglass.Engine, error) {
	opts := []spyglass.Option{
		spyglass.WithWorkers(cfg.Workers),
	}
	if d := cfg.ScanTimeoutDuration(); d > 0 {
		opts = append(opts, spyglass.WithScanTimeout(d))
	}
	if len(cfg.Languages) > 0 {
		opts = append(opts, spyglass.WithLanguages(cfg.Languages...))
	}
	for _, s := range cfg.Scripts {
		src, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("read script %s: %w", s.Path, err)
		}
		opts = append(opts, spyglass.WithScript(s.Language, s.Extensions, string(src)))
	}

	engine, err := spyglass.New(opts...)
	if err != nil {
		return nil, err
	}
	if cfg.CatalogCache != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.CatalogCache), 0o755); err != nil {
			engine.Close()
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		if err := engine.OpenCatalogCache(cfg.CatalogCache); err != nil {
			engine.Close()
			return nil, err
		}
	}
	return engine, nil
}

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Scan a source tree into the symbol store",
	Long:  "Walks the directory, scans every file with a registered language, and reports what was indexed. With a catalog cache configured, trees persist across runs.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	dir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	start := time.Now()
	n, err := engine.IndexDir(cmd.Context(), dir)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Indexed %d files from %s in %s\n",
		n, dir, time.Since(start).Round(time.Millisecond))
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}
