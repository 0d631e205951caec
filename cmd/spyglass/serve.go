package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgrier/spyglass/internal/server"
)

var (
	flagListen   string
	flagIndexDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the request protocol",
	Long:  "Answers JSON-line requests over stdin/stdout or a TCP listener. With --index, the directory is scanned before serving; with watching enabled, changed files re-scan automatically.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", `listen address, or "stdio" (overrides the config)`)
	serveCmd.Flags().StringVar(&flagIndexDir, "index", "", "directory to index before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := cmd.Context()
	if flagIndexDir != "" {
		n, err := engine.IndexDir(ctx, flagIndexDir)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", flagIndexDir, err)
		}
		fmt.Fprintf(os.Stderr, "Indexed %d files from %s\n", n, flagIndexDir)
	}

	srv := server.New(engine, server.WithWorkers(cfg.Workers))

	if cfg.Watch.Enabled && flagIndexDir != "" {
		w, err := server.NewWatcher(srv, []string{flagIndexDir}, cfg.Debounce())
		if err != nil {
			return err
		}
		go w.Run(ctx)
	}

	listen := cfg.Server.Listen
	if flagListen != "" {
		listen = flagListen
	}
	if listen == "" || listen == "stdio" {
		return srv.Serve(ctx, os.Stdin, os.Stdout)
	}
	return srv.ListenAndServe(ctx, listen)
}
