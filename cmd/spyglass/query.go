package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	spyglass "github.com/mgrier/spyglass"
)

var (
	flagQueryDir string
	flagPrefix   string
	flagLimit    int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query an indexed source tree",
	Long:  "One-shot queries: index the tree named by --dir, answer, exit. For a long-lived session use serve.",
	// No Run; prints help by default.
}

func init() {
	queryCmd.PersistentFlags().StringVar(&flagQueryDir, "dir", ".", "directory to index before querying")
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 20, "maximum results (0 = unlimited)")

	completeCmd.Flags().StringVar(&flagPrefix, "prefix", "", "typed prefix to complete")

	queryCmd.AddCommand(defCmd)
	queryCmd.AddCommand(completeCmd)
	queryCmd.AddCommand(calltipCmd)
	queryCmd.AddCommand(searchCmd)
}

// queryEngine indexes --dir and hands the engine to fn.
func queryEngine(cmd *cobra.Command, fn func(context.Context, *spyglass.Engine) error) error {
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
	if _, err := engine.IndexDir(ctx, flagQueryDir); err != nil {
		return fmt.Errorf("indexing %s: %w", flagQueryDir, err)
	}
	return fn(ctx, engine)
}

// parsePosition parses "file:line:col" with one-based line and column,
// as editors display them.
func parsePosition(arg string) (string, spyglass.Position, error) {
	i := strings.LastIndex(arg, ":")
	j := strings.LastIndex(arg[:max(i, 0)], ":")
	if i < 0 || j < 0 {
		return "", spyglass.Position{}, fmt.Errorf("want file:line:col, got %q", arg)
	}
	line, err := strconv.Atoi(arg[j+1 : i])
	if err != nil {
		return "", spyglass.Position{}, fmt.Errorf("bad line in %q: %w", arg, err)
	}
	col, err := strconv.Atoi(arg[i+1:])
	if err != nil {
		return "", spyglass.Position{}, fmt.Errorf("bad column in %q: %w", arg, err)
	}
	if line < 1 || col < 1 {
		return "", spyglass.Position{}, fmt.Errorf("line and column are one-based in %q", arg)
	}
	return arg[:j], spyglass.Position{Line: line - 1, Col: col - 1}, nil
}

var defCmd = &cobra.Command{
	Use:   "def <file:line:col>",
	Short: "Jump to the definition under a position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, pos, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		return queryEngine(cmd, func(ctx context.Context, e *spyglass.Engine) error {
			loc, err := e.JumpToDefinition(ctx, file, pos)
			if locs, ok := spyglass.AmbiguousLocations(err); ok {
				fmt.Fprintln(os.Stderr, "ambiguous, candidates:")
				return writeLocations(os.Stdout, locs)
			}
			if err != nil {
				return err
			}
			return writeLocations(os.Stdout, []spyglass.Location{loc})
		})
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <file:line:col>",
	Short: "Complete a prefix at a position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, pos, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		return queryEngine(cmd, func(ctx context.Context, e *spyglass.Engine) error {
			seq, err := e.Complete(ctx, file, pos, flagPrefix, flagLimit)
			if err != nil {
				return err
			}
			var candidates []spyglass.Candidate
			for c := range seq {
				candidates = append(candidates, c)
			}
			return writeCandidates(os.Stdout, candidates)
		})
	},
}

var calltipCmd = &cobra.Command{
	Use:   "calltip <file:line:col>",
	Short: "Show the call tip for the callable under a position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, pos, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		return queryEngine(cmd, func(ctx context.Context, e *spyglass.Engine) error {
			tip, err := e.CallTip(ctx, file, pos)
			if err != nil {
				return err
			}
			return writeCallTip(os.Stdout, tip)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <prefix>",
	Short: "Search declarations by name prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queryEngine(cmd, func(ctx context.Context, e *spyglass.Engine) error {
			locs, err := e.SymbolSearch(ctx, args[0], flagLimit)
			if err != nil {
				return err
			}
			return writeLocations(os.Stdout, locs)
		})
	},
}
