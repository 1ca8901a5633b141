package seeder

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogseed/internal/assetpool"
	"github.com/utafrali/catalogseed/internal/config"
	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/geodata"
	"github.com/utafrali/catalogseed/internal/lock"
	"github.com/utafrali/catalogseed/internal/locale"
	"github.com/utafrali/catalogseed/internal/repository/memory"
	"github.com/utafrali/catalogseed/pkg/logger"
)

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return logger.NewWithWriter("seeder-test", "debug", buf), buf
}

func newTestRecorder(phase string) *Recorder {
	return NewRecorder(domain.NewPhaseReport(phase), nil)
}

type fileGenerator struct{}

func (fileGenerator) Generate(_ context.Context, req assetpool.GenerateRequest) (string, error) {
	return req.Path, os.WriteFile(req.Path, []byte(req.Text), 0o644)
}

func newTestPool(t *testing.T, target int) (*assetpool.Pool, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "pool")
	cfg := assetpool.Config{Dir: dir, Target: target, Ext: "png", Width: 32, Height: 32}
	return assetpool.New(cfg, fileGenerator{}, lock.NewLocal(), logger.Discard()), dir
}

func testOptions() Options {
	return Options{
		Locales:          locale.Resolve("lt,en"),
		FallbackLocale:   "en",
		Seed:             20240601,
		ChunkSize:        7,
		Workers:          3,
		BrandCount:       4,
		ProductsPerBrand: 12,
		Categories:       config.Bounds{Min: 1, Max: 3},
		Attributes:       config.Bounds{Min: 1, Max: 4},
		Images:           config.Bounds{Min: 1, Max: 4},
		Variants:         config.Bounds{Min: 0, Max: 2},
		PriceMin:         5,
		PriceMax:         2500,
		FeaturedRatio:    0.1,
		SaleRatio:        0.2,
		SaleDiscount:     0.15,
		ImageWidth:       32,
		ImageHeight:      32,
	}
}

func newTestSeeder(t *testing.T, opts Options, poolTarget int) (*Seeder, *memory.Store, string) {
	t.Helper()
	data, err := geodata.Load()
	require.NoError(t, err)

	store := memory.New()
	pool, dir := newTestPool(t, poolTarget)
	return New(store, pool, data, opts, nil, logger.Discard()), store, dir
}
