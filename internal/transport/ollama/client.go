// Package ollama talks to a local Ollama server through the official API client.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
)

const (
	serveCommand  = "ollama"
	startPollStep = time.Second
)

var errNoResponse = errors.New("generate: server closed the stream without a final response")

// Options are the sampling options sent with every generation.
type Options struct {
	Temperature float64
	NumPredict  int
	TopP        float64
	NumCtx      int
}

func (o Options) asMap() map[string]any {
	return map[string]any{
		"temperature": o.Temperature,
		"num_predict": o.NumPredict,
		"top_p":       o.TopP,
		"num_ctx":     o.NumCtx,
	}
}

// Config holds the client settings.
type Config struct {
	BaseURL         string
	Model           string
	HealthTimeout   time.Duration
	GenerateTimeout time.Duration
	StartTimeout    time.Duration
	AutoStart       bool
	Options         Options
	Logger          *zap.Logger
}

// Client wraps api.Client with per-call timeouts and best-effort server start.
type Client struct {
	baseURL         string
	model           string
	healthTimeout   time.Duration
	generateTimeout time.Duration
	startTimeout    time.Duration
	autoStart       bool
	options         Options
	api             *api.Client
	logger          *zap.Logger

	// startServer launches the server process; replaced in tests.
	startServer func() error
	pollStep    time.Duration
}

// New creates a client. Timeouts are applied per call, not on the http.Client.
// An unparsable base URL leaves the client unconfigured.
func New(cfg *Config) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		model:           cfg.Model,
		healthTimeout:   cfg.HealthTimeout,
		generateTimeout: cfg.GenerateTimeout,
		startTimeout:    cfg.StartTimeout,
		autoStart:       cfg.AutoStart,
		options:         cfg.Options,
		logger:          cfg.Logger,
		startServer:     startServe,
		pollStep:        startPollStep,
	}
	if c.baseURL == "" {
		return c
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		c.logger.Error("Invalid Ollama base URL", zap.String("url", c.baseURL), zap.Error(err))
		c.baseURL = ""
		return c
	}
	c.api = api.NewClient(base, &http.Client{})
	return c
}

// Configured reports whether a base URL is set.
func (c *Client) Configured() bool { return c != nil && c.baseURL != "" }

// BaseURL returns the server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Model returns the generation model name.
func (c *Client) Model() string { return c.model }

// Models lists installed models. Bounded by the health timeout.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	if c.api == nil {
		return nil, fmt.Errorf("%w: base url not configured", domain.ErrGeneratorUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	list, err := c.api.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list models: %w", domain.ErrGeneratorUnavailable, err)
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Health checks that the server answers GET /api/tags with 200.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.Models(ctx)
	return err
}

// HealthCheck is Health under the name the health service expects.
func (c *Client) HealthCheck(ctx context.Context) error { return c.Health(ctx) }

// EnsureReady returns nil if the server is healthy. Otherwise, when
// auto-start is enabled, it launches the server and polls until it answers
// or the start timeout elapses.
func (c *Client) EnsureReady(ctx context.Context) error {
	if err := c.Health(ctx); err == nil {
		return nil
	}
	if !c.autoStart {
		return fmt.Errorf("%w: server not running and auto start disabled", domain.ErrGeneratorUnavailable)
	}

	c.logger.Warn("Ollama not running, starting it", zap.String("url", c.baseURL))
	if err := c.startServer(); err != nil {
		return fmt.Errorf("%w: start server: %w", domain.ErrGeneratorUnavailable, err)
	}

	deadline := time.NewTimer(c.startTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(c.pollStep)
	defer tick.Stop()

	started := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: server did not start within %s", domain.ErrGeneratorUnavailable, c.startTimeout)
		case <-tick.C:
			if c.Health(ctx) == nil {
				c.logger.Info("Ollama started", zap.Duration("after", time.Since(started)))
				return nil
			}
		}
	}
}

// Generate sends one non-streaming completion request and returns the raw
// response text. Bounded by the generate timeout.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("%w: base url not configured", domain.ErrGeneratorUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.generateTimeout)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: c.options.asMap(),
	}

	var (
		out  strings.Builder
		done bool
	)
	err := c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		done = done || resp.Done
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if !done {
		return "", errNoResponse
	}
	return out.String(), nil
}

func startServe() error {
	cmd := exec.Command(serveCommand, "serve")
	if err := cmd.Start(); err != nil {
		return err
	}
	// Detach: the server outlives this call.
	go func() { _ = cmd.Wait() }()
	return nil
}
