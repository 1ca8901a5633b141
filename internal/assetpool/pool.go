// Package assetpool manages a bounded directory of generated images that
// many entities reference.
package assetpool

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/utafrali/catalogseed/internal/lock"
	apperrors "github.com/utafrali/catalogseed/pkg/errors"
)

const namePrefix = "pool_image_"

// Config holds pool settings.
type Config struct {
	Dir     string
	Target  int
	Ext     string
	Width   int
	Height  int
	LockTTL time.Duration
}

// Asset is one pooled file.
type Asset struct {
	Index int
	Name  string
	Path  string
}

// GenerateRequest describes one image to produce.
type GenerateRequest struct {
	Text       string
	Width      int
	Height     int
	Background string
	Foreground string
	// Path is where the generator must write the file.
	Path string
}

// Generator produces an image file and returns its path. Calls may fail
// independently of each other.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// EnsureResult summarizes one Ensure call.
type EnsureResult struct {
	Existing  int
	Generated int
	Failed    int
}

// Pool is safe for concurrent draws. Growth is serialized by the Locker.
type Pool struct {
	cfg     Config
	gen     Generator
	locker  lock.Locker
	logger  *slog.Logger
	pattern *regexp.Regexp

	mu     sync.RWMutex
	assets []Asset
}

// New creates a pool. Call Scan or Ensure before drawing.
func New(cfg Config, gen Generator, locker lock.Locker, logger *slog.Logger) *Pool {
	if cfg.Ext == "" {
		cfg.Ext = "png"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &Pool{
		cfg:     cfg,
		gen:     gen,
		locker:  locker,
		logger:  logger,
		pattern: regexp.MustCompile(`^` + namePrefix + `(\d{3,})\.` + regexp.QuoteMeta(cfg.Ext) + `$`),
	}
}

// FileName returns the pool file name for index.
func (p *Pool) FileName(index int) string {
	return fmt.Sprintf("%s%03d.%s", namePrefix, index, p.cfg.Ext)
}

// Scan reloads the pool contents from disk. A missing directory is an
// empty pool.
func (p *Pool) Scan() error {
	entries, err := os.ReadDir(p.cfg.Dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("scan pool %s: %w", p.cfg.Dir, err)
	}

	var assets []Asset
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := p.pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		assets = append(assets, Asset{Index: idx, Name: e.Name(), Path: filepath.Join(p.cfg.Dir, e.Name())})
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Index < assets[j].Index })

	p.mu.Lock()
	p.assets = assets
	p.mu.Unlock()
	return nil
}

// Ensure grows the pool to the configured target. Indexes 1..target that
// are missing are generated in order until the pool holds target files. A
// failed index is logged and skipped, so the pool may end up smaller.
func (p *Pool) Ensure(ctx context.Context) (EnsureResult, error) {
	return p.EnsureTarget(ctx, p.cfg.Target)
}

// EnsureTarget is Ensure with an explicit target.
func (p *Pool) EnsureTarget(ctx context.Context, target int) (EnsureResult, error) {
	release, err := p.locker.Acquire(ctx, "assetpool:"+p.cfg.Dir, p.cfg.LockTTL)
	if err != nil {
		return EnsureResult{}, fmt.Errorf("lock pool: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			p.logger.WarnContext(ctx, "failed to release pool lock", slog.String("error", err.Error()))
		}
	}()

	if err := p.Scan(); err != nil {
		return EnsureResult{}, err
	}

	have := make(map[int]bool)
	for _, a := range p.Assets() {
		have[a.Index] = true
	}
	res := EnsureResult{Existing: len(have)}
	if res.Existing >= target {
		return res, nil
	}

	if err := os.MkdirAll(p.cfg.Dir, 0o755); err != nil {
		return res, fmt.Errorf("create pool dir: %w", err)
	}

	count := res.Existing
	for idx := 1; idx <= target && count < target; idx++ {
		if have[idx] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		name := p.FileName(idx)
		bg := palette[(idx-1)%len(palette)]
		_, err := p.gen.Generate(ctx, GenerateRequest{
			Text:       fmt.Sprintf("#%03d", idx),
			Width:      p.cfg.Width,
			Height:     p.cfg.Height,
			Background: bg,
			Foreground: contrast(bg),
			Path:       filepath.Join(p.cfg.Dir, name),
		})
		if err != nil {
			res.Failed++
			p.logger.WarnContext(ctx, "pool asset skipped",
				slog.String("file", name),
				slog.String("error", apperrors.AssetGenerationFailure(name, err).Error()),
			)
			continue
		}
		res.Generated++
		count++
	}

	if err := p.Scan(); err != nil {
		return res, err
	}
	p.logger.InfoContext(ctx, "asset pool ensured",
		slog.Int("target", target),
		slog.Int("existing", res.Existing),
		slog.Int("generated", res.Generated),
		slog.Int("failed", res.Failed),
	)
	return res, nil
}

// Assets returns a copy of the pool contents ordered by index.
func (p *Pool) Assets() []Asset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Asset, len(p.assets))
	copy(out, p.assets)
	return out
}

// Size returns the number of pooled files.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.assets)
}

// Draw samples n assets with replacement. An empty pool yields nil.
func (p *Pool) Draw(rng *rand.Rand, n int) []Asset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.assets) == 0 || n <= 0 {
		return nil
	}
	out := make([]Asset, n)
	for i := range out {
		out[i] = p.assets[rng.IntN(len(p.assets))]
	}
	return out
}

// Cleanup removes every pooled file and returns how many were deleted.
func (p *Pool) Cleanup(ctx context.Context) (int, error) {
	release, err := p.locker.Acquire(ctx, "assetpool:"+p.cfg.Dir, p.cfg.LockTTL)
	if err != nil {
		return 0, fmt.Errorf("lock pool: %w", err)
	}
	defer release(context.WithoutCancel(ctx)) //nolint:errcheck

	if err := p.Scan(); err != nil {
		return 0, err
	}
	removed := 0
	for _, a := range p.Assets() {
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", a.Name, err)
		}
		removed++
	}
	p.mu.Lock()
	p.assets = nil
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "asset pool cleaned up", slog.Int("removed", removed))
	return removed, nil
}
