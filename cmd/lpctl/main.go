package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ThetaSpace/lp-pipeline/internal/config"
	"github.com/ThetaSpace/lp-pipeline/internal/runner"
)

type cli struct {
	configPath string
	envFile    string
	logFile    string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "lpctl",
		Short: "Validate, simulate and build Balancer liquidity transactions",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.DisableAutoGenTag = true
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "configs/config.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&c.envFile, "env", ".env", "dotenv file loaded before the config")
	cmd.PersistentFlags().StringVar(&c.logFile, "log-file", "logs/lpctl.log", "log file, empty to log to stderr only")

	cmd.AddCommand(
		newChainsCmd(c),
		newValidateCmd(c),
		newRunCmd(c),
		newPermitCmd(c),
	)
	return cmd
}

func (c *cli) init() error {
	// .env is optional, the environment may already carry the key
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", c.envFile, err)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = setupLogger(cfg.App.LogLevel, c.logFile)
	c.logger.Debug("Config loaded",
		"app", cfg.App.Name,
		"configPath", c.configPath,
		"chains", len(cfg.Chains))
	return nil
}

func (c *cli) runner() (*runner.Runner, error) {
	r, err := runner.New(c.cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	return r, nil
}

func newChainsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List the router deployments in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := c.cfg.Registry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range registry.ChainIDs() {
				contracts, _ := registry.Chain(id)
				rpc := "-"
				if chain := c.cfg.Chain(uint64(id)); chain != nil {
					rpc = chain.RPCURL
				}
				fmt.Fprintf(out, "%d\t%s\trpc=%s\n", uint64(id), id, rpc)
				fmt.Fprintf(out, "\trouter=%s batchRouter=%s\n", contracts.Router.Hex(), contracts.BatchRouter.Hex())
				fmt.Fprintf(out, "\tcompositeLiquidityRouter=%s bufferRouter=%s\n",
					contracts.CompositeLiquidityRouter.Hex(), contracts.BufferRouter.Hex())
				fmt.Fprintf(out, "\tpermit2=%s\n", contracts.Permit2.Hex())
			}
			return nil
		},
	}
}

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <request.yaml>...",
		Short: "Check requests against the pool rules without contacting a node",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.runner()
			if err != nil {
				return err
			}
			return r.ValidateFiles(args)
		},
	}
}

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run <request.yaml>...",
		Short: "Query and build the transaction of each request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.runner()
			if err != nil {
				return err
			}
			return r.Run(context.Background(), args)
		},
	}
}

func newPermitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "permit <request.yaml>...",
		Short: "Sign Permit2 approvals for swaps and nested pool adds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.runner()
			if err != nil {
				return err
			}
			return r.Sign(context.Background(), args)
		},
	}
}

// setupLogger initializes the logger. Results go to stdout, so logs are
// written to stderr and the log file.
func setupLogger(level, logFile string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if logFile == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	// Create logs directory
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		slog.Error("Failed to create logs directory", "error", err)
	}

	// Open log file
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("Failed to open log file", "error", err)
		// Fallback to stderr
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	// Output to both file and stderr
	multiWriter := io.MultiWriter(os.Stderr, f)
	return slog.New(slog.NewTextHandler(multiWriter, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
