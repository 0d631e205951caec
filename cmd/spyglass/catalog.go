package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage read-only symbol catalogs",
	Long:  "Catalogs are prebuilt symbol sets (standard libraries, bundled frameworks) consulted after workspace files. With a catalog cache configured, built catalogs persist across runs.",
	// No Run; prints help by default.
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogBuildCmd)
	catalogCmd.AddCommand(catalogListCmd)
}

var catalogBuildCmd = &cobra.Command{
	Use:   "build <name> <dir>",
	Short: "Build a catalog from a source tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.CatalogCache == "" {
			return fmt.Errorf("catalog build needs catalog_cache set in %s", flagConfig)
		}
		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer engine.Close()

		dir, err := resolveTargetDir(args[1:])
		if err != nil {
			return err
		}
		n, err := engine.BuildCatalog(cmd.Context(), args[0], dir)
		if err != nil {
			return fmt.Errorf("building catalog %s: %w", args[0], err)
		}
		fmt.Fprintf(os.Stderr, "Built catalog %s: %d units\n", args[0], n)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached catalog units",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer engine.Close()

		for _, key := range engine.Store().CatalogKeys() {
			fmt.Fprintln(os.Stdout, key)
		}
		return nil
	},
}
