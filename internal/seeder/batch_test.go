package seeder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/repository"
	"github.com/utafrali/catalogseed/internal/repository/memory"
	"github.com/utafrali/catalogseed/pkg/logger"
)

// currencyJob generates currencies whose symbol names the partition, so
// partitions can be counted independently.
func currencyJob(partition string, target int, rec *Recorder) Job {
	return Job{
		Partition: partition,
		Target:    target,
		Count: func(ctx context.Context, store repository.Store) (int, error) {
			return store.Count(ctx, domain.Currency, domain.Filter{"symbol": partition})
		},
		Generate: func(ctx context.Context, store repository.Store, rec *Recorder, rng *rand.Rand, index int) (bool, error) {
			e, err := NewUpserter(store, rec).Upsert(ctx, domain.Currency,
				domain.Key{"code": fmt.Sprintf("%s-%d", partition, index)},
				domain.Attributes{"symbol": partition, "decimals": rng.IntN(4)})
			if err != nil {
				return false, err
			}
			return e.Created, nil
		},
	}
}

// drawnJob keys currencies from the random stream only, like brands and
// products do.
func drawnJob(partition string, target int) Job {
	return Job{
		Partition: partition,
		Target:    target,
		Count: func(ctx context.Context, store repository.Store) (int, error) {
			return store.Count(ctx, domain.Currency, domain.Filter{"symbol": partition})
		},
		Generate: func(ctx context.Context, store repository.Store, rec *Recorder, rng *rand.Rand, _ int) (bool, error) {
			e, err := NewUpserter(store, rec).Upsert(ctx, domain.Currency,
				domain.Key{"code": partition + "-" + Suffix(rng, 8)},
				domain.Attributes{"symbol": partition, "decimals": 2})
			if err != nil {
				return false, err
			}
			return e.Created, nil
		},
	}
}

func TestBatchGenerator_TargetAlreadyMet(t *testing.T) {
	store := memory.New()
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(store, domain.KindCurrency, 100, rec, logger.Discard())
	ctx := context.Background()

	_, err := gen.Run(ctx, currencyJob("p", 100, rec), 1)
	require.NoError(t, err)

	res, err := gen.Run(ctx, currencyJob("p", 100, rec), 1)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Existing)
	assert.Zero(t, res.Created)
	assert.Empty(t, res.Chunks)
	assert.Equal(t, 100, store.Stats()["currencies"])
}

func TestBatchGenerator_Chunks(t *testing.T) {
	store := memory.New()
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(store, domain.KindCurrency, 100, rec, logger.Discard())

	res, err := gen.Run(context.Background(), currencyJob("p", 250, rec), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 50}, res.Chunks)
	assert.Equal(t, 250, res.Created)
	assert.False(t, res.Interrupted)
	assert.Equal(t, 250, store.Stats()["currencies"])
	assert.Equal(t, 250, rec.Report().Get("currency").Created)
}

func TestBatchGenerator_TopsUpPartialPartition(t *testing.T) {
	store := memory.New()
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(store, domain.KindCurrency, 10, rec, logger.Discard())
	ctx := context.Background()

	_, err := gen.Run(ctx, currencyJob("p", 15, rec), 1)
	require.NoError(t, err)

	res, err := gen.Run(ctx, currencyJob("p", 32, rec), 1)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Existing)
	assert.Equal(t, []int{10, 7}, res.Chunks)
	assert.Equal(t, 32, store.Stats()["currencies"])
}

func TestBatchGenerator_CanceledBeforeStart(t *testing.T) {
	store := memory.New()
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(store, domain.KindCurrency, 10, rec, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := gen.Run(ctx, currencyJob("p", 30, rec), 1)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Empty(t, res.Chunks)
	assert.Empty(t, store.Stats())
}

func TestBatchGenerator_CancelDuringChunkFinishesChunk(t *testing.T) {
	store := memory.New()
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(store, domain.KindCurrency, 10, rec, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := currencyJob("p", 30, rec)
	inner := job.Generate
	job.Generate = func(ctx context.Context, store repository.Store, rec *Recorder, rng *rand.Rand, index int) (bool, error) {
		if index == 3 {
			cancel()
		}
		require.NoError(t, ctx.Err(), "chunk context must not be canceled")
		return inner(ctx, store, rec, rng, index)
	}

	res, err := gen.Run(ctx, job, 1)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Equal(t, []int{10}, res.Chunks)
	assert.Equal(t, 10, store.Stats()["currencies"])
}

func TestBatchGenerator_GenerateErrorStops(t *testing.T) {
	store := memory.New()
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(store, domain.KindCurrency, 5, rec, logger.Discard())

	boom := errors.New("boom")
	job := currencyJob("p", 20, rec)
	inner := job.Generate
	job.Generate = func(ctx context.Context, store repository.Store, rec *Recorder, rng *rand.Rand, index int) (bool, error) {
		if index == 7 {
			return false, boom
		}
		return inner(ctx, store, rec, rng, index)
	}

	res, err := gen.Run(context.Background(), job, 1)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "chunk in p")
	assert.Equal(t, []int{5}, res.Chunks)
	assert.Equal(t, 5, res.Created)
	// The failed chunk wrote two rows before it rolled back; they are not
	// reported.
	assert.Equal(t, 5, rec.Report().Get("currency").Created)
}

func TestBatchGenerator_CommittedRunsPerChunk(t *testing.T) {
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(memory.New(), domain.KindCurrency, 4, rec, logger.Discard())

	var commits []int
	job := currencyJob("p", 10, rec)
	job.Committed = func(context.Context) {
		commits = append(commits, rec.Report().Get("currency").Created)
	}

	_, err := gen.Run(context.Background(), job, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 8, 10}, commits)
}

func TestBatchGenerator_RerunWithSameSeedReachesRaisedTarget(t *testing.T) {
	store := memory.New()
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(store, domain.KindCurrency, 3, rec, logger.Discard())
	ctx := context.Background()

	res, err := gen.Run(ctx, drawnJob("p", 5), 9)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Created)

	res, err = gen.Run(ctx, drawnJob("p", 12), 9)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Existing)
	assert.Equal(t, 7, res.Created)
	assert.Zero(t, res.Reused)
	assert.False(t, res.Stalled)
	assert.Equal(t, 12, store.Stats()["currencies"])
}

func TestBatchGenerator_StallsWhenNothingIsCreated(t *testing.T) {
	store := memory.New()
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(store, domain.KindCurrency, 2, rec, logger.Discard())

	job := currencyJob("p", 5, rec)
	job.Count = func(context.Context, repository.Store) (int, error) { return 0, nil }
	job.Generate = func(ctx context.Context, store repository.Store, rec *Recorder, _ *rand.Rand, _ int) (bool, error) {
		e, err := NewUpserter(store, rec).Upsert(ctx, domain.Currency,
			domain.Key{"code": "SAME"}, domain.Attributes{"symbol": "p", "decimals": 2})
		if err != nil {
			return false, err
		}
		return e.Created, nil
	}

	res, err := gen.Run(context.Background(), job, 1)
	require.NoError(t, err)
	assert.True(t, res.Stalled)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2*maxIdleChunks+1, res.Reused)
	assert.Len(t, res.Chunks, maxIdleChunks+1)
	assert.Equal(t, 1, store.Stats()["currencies"])
}

func TestBatchGenerator_CountErrorStops(t *testing.T) {
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(memory.New(), domain.KindCurrency, 5, rec, logger.Discard())

	boom := errors.New("count failed")
	job := currencyJob("p", 20, rec)
	job.Count = func(context.Context, repository.Store) (int, error) { return 0, boom }

	_, err := gen.Run(context.Background(), job, 1)
	assert.ErrorIs(t, err, boom)
}

func TestBatchGenerator_RunAllPartitions(t *testing.T) {
	store := memory.New()
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(store, domain.KindCurrency, 4, rec, logger.Discard())

	jobs := []Job{currencyJob("a", 9, rec), currencyJob("b", 13, rec), currencyJob("c", 2, rec)}
	results, err := gen.RunAll(context.Background(), jobs, 2, 42)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Partition)
	assert.Equal(t, []int{4, 4, 1}, results[0].Chunks)
	assert.Equal(t, []int{4, 4, 4, 1}, results[1].Chunks)
	assert.Equal(t, []int{2}, results[2].Chunks)
	assert.Equal(t, 24, store.Stats()["currencies"])
}

func TestBatchGenerator_RunAllIsDeterministic(t *testing.T) {
	run := func() map[string]any {
		store := memory.New()
		rec := newTestRecorder("test")
		gen := NewBatchGenerator(store, domain.KindCurrency, 3, rec, logger.Discard())
		jobs := []Job{currencyJob("a", 10, rec), currencyJob("b", 10, rec)}
		_, err := gen.RunAll(context.Background(), jobs, 2, 7)
		require.NoError(t, err)

		out := make(map[string]any)
		for _, e := range store.Entities(domain.Currency) {
			out[e.Key["code"]] = e.Attributes["decimals"]
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestBatchGenerator_RunAllStopsOnError(t *testing.T) {
	rec := newTestRecorder("test")
	gen := NewBatchGenerator(memory.New(), domain.KindCurrency, 2, rec, logger.Discard())

	boom := errors.New("boom")
	bad := currencyJob("bad", 4, rec)
	bad.Generate = func(context.Context, repository.Store, *Recorder, *rand.Rand, int) (bool, error) { return false, boom }

	_, err := gen.RunAll(context.Background(), []Job{currencyJob("ok", 4, rec), bad}, 1, 1)
	assert.ErrorIs(t, err, boom)
}

func TestBatchState_String(t *testing.T) {
	assert.Equal(t, "count_existing", stateCountExisting.String())
	assert.Equal(t, "generate_chunk", stateGenerateChunk.String())
	assert.Equal(t, "unknown", batchState(99).String())
}
