package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/ThetaSpace/lp-pipeline/internal/addresses"
	"github.com/ThetaSpace/lp-pipeline/internal/config"
	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/signer"
	"github.com/ThetaSpace/lp-pipeline/internal/validator"
)

// Runner is the pipeline runner
// Responsible for wiring the components and executing request files
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *addresses.Registry
	validator *validator.Dispatcher
	service   *liquidity.Service
	signer    signer.Signer // nil when no key is configured
	dial      liquidity.DialFunc
	out       io.Writer
}

// Option configures a Runner
type Option func(*Runner)

// WithDialer replaces the node dialer
func WithDialer(dial liquidity.DialFunc) Option {
	return func(r *Runner) {
		r.dial = dial
	}
}

// WithSigner uses s instead of the configured key
func WithSigner(s signer.Signer) Option {
	return func(r *Runner) {
		r.signer = s
	}
}

// WithOutput sets where results are written, stdout by default
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// New creates a pipeline runner
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	r := &Runner{
		cfg:    cfg,
		logger: logger.With("component", "Runner"),
		dial:   liquidity.DialEthClient,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}

	// 1. Initialize contract registry
	registry, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build contract registry: %w", err)
	}
	r.registry = registry
	for _, chain := range cfg.Chains {
		r.logger.Info("Registered chain",
			"chainId", chain.ChainID,
			"overrides", len(chain.Contracts))
	}

	// 2. Initialize validators
	r.validator = validator.NewDispatcher(logger)

	// 3. Initialize liquidity service
	r.service = liquidity.NewService(registry, r.validator, logger, liquidity.WithDialer(r.dial))

	// 4. Initialize signer (optional, only Permit2 approvals need it)
	if r.signer == nil && cfg.SignerEnabled() {
		s, err := signer.NewSignerFromConfig(&cfg.Signer)
		if err != nil {
			return nil, fmt.Errorf("failed to create signer: %w", err)
		}
		r.signer = s
	}
	if r.signer != nil {
		r.logger.Info("Signer initialized", "address", r.signer.GetAddress().Hex())
	} else {
		r.logger.Info("No signer configured, Permit2 approvals are disabled")
	}

	return r, nil
}

// Registry returns the contract registry in use
func (r *Runner) Registry() *addresses.Registry {
	return r.registry
}

// Run executes request files in order and writes one yaml document per
// result. A failing request is logged and does not stop the others; the
// returned error joins every failure.
func (r *Runner) Run(ctx context.Context, paths []string) error {
	return r.each(ctx, paths, r.Execute)
}

// Sign executes approval only request files
func (r *Runner) Sign(ctx context.Context, paths []string) error {
	return r.each(ctx, paths, r.Approve)
}

// ValidateFiles checks request files without contacting a node
func (r *Runner) ValidateFiles(paths []string) error {
	var errs []error
	for _, path := range paths {
		req, err := LoadRequest(path)
		if err == nil {
			err = r.Validate(req)
		}
		if err != nil {
			r.logger.Error("Request is invalid", "file", path, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		r.logger.Info("Request is valid", "file", path, "operation", req.Operation)
	}
	return errors.Join(errs...)
}

func (r *Runner) each(ctx context.Context, paths []string, exec func(context.Context, *Request) (*Result, error)) error {
	// Stop on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enc := yaml.NewEncoder(r.out)
	defer enc.Close()

	var errs []error
	for _, path := range paths {
		if ctx.Err() != nil {
			r.logger.Info("Context cancelled, skipping remaining requests")
			errs = append(errs, ctx.Err())
			break
		}
		req, err := LoadRequest(path)
		if err != nil {
			r.logger.Error("Failed to load request", "file", path, "error", err)
			errs = append(errs, err)
			continue
		}
		res, err := exec(ctx, req)
		if err != nil {
			r.logger.Error("Request failed", "file", path, "operation", req.Operation, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		r.logger.Info("Request done", "file", path, "operation", req.Operation, "to", res.To)
	}
	return errors.Join(errs...)
}
