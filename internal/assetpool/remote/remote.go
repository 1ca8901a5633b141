// Package remote fetches placeholder images from an HTTP image service.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/utafrali/catalogseed/internal/assetpool"
	"github.com/utafrali/catalogseed/pkg/httpclient"
)

// Doer fetches a URL. *httpclient.CircuitBreakerClient satisfies it.
type Doer interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Generator downloads images from a URL template. Placeholders {w}, {h},
// {bg}, {fg} and {text} are substituted per request; colours are sent
// without the leading '#'.
type Generator struct {
	client   Doer
	template string
	fallback assetpool.Generator
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New creates a remote generator. fallback, when non-nil, renders the image
// while the circuit breaker is open. rps caps requests per second to the
// service; zero or less means unlimited.
func New(client Doer, template string, fallback assetpool.Generator, rps float64, logger *slog.Logger) *Generator {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Generator{
		client:   client,
		template: template,
		fallback: fallback,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

var _ assetpool.Generator = (*Generator)(nil)

// URL expands the template for req.
func (g *Generator) URL(req assetpool.GenerateRequest) string {
	return strings.NewReplacer(
		"{w}", strconv.Itoa(req.Width),
		"{h}", strconv.Itoa(req.Height),
		"{bg}", strings.TrimPrefix(req.Background, "#"),
		"{fg}", strings.TrimPrefix(req.Foreground, "#"),
		"{text}", url.QueryEscape(req.Text),
	).Replace(g.template)
}

// Generate fetches the image for req and stores it at req.Path.
func (g *Generator) Generate(ctx context.Context, req assetpool.GenerateRequest) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for image service: %w", err)
	}

	target := g.URL(req)
	resp, err := g.client.Get(ctx, target)
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) && g.fallback != nil {
			g.logger.DebugContext(ctx, "image service unavailable, rendering locally",
				slog.String("file", filepath.Base(req.Path)))
			return g.fallback.Generate(ctx, req)
		}
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := httpclient.NewStatusError(resp, "image-service")
		if httpclient.IsClientError(resp.StatusCode) {
			return "", fmt.Errorf("image service rejected %s, check SEED_IMAGE_REMOTE_URL: %w", target, statusErr)
		}
		return "", statusErr
	}

	if err := writeFile(req.Path, resp.Body); err != nil {
		return "", err
	}
	return req.Path, nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".remote-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return fmt.Errorf("download image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if n == 0 {
		return errors.New("image service returned an empty body")
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("move %s: %w", filepath.Base(path), err)
	}
	return nil
}
