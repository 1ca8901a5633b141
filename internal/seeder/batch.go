package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/repository"
	"github.com/utafrali/catalogseed/pkg/logger"
	"github.com/utafrali/catalogseed/pkg/tracing"
)

// batchState is a step of the per-partition generation loop.
type batchState int

const (
	stateInit batchState = iota
	stateCountExisting
	stateTargetMet
	stateGenerateChunk
	stateDone
)

func (s batchState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateCountExisting:
		return "count_existing"
	case stateTargetMet:
		return "target_met"
	case stateGenerateChunk:
		return "generate_chunk"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// maxIdleChunks is how many chunks in a row may create nothing before a
// partition gives up on its target.
const maxIdleChunks = 3

// Job describes the entities to generate for one partition.
type Job struct {
	// Partition must be disjoint from every other job run concurrently.
	Partition string
	Target    int
	// Count returns how many entities the partition already holds.
	Count func(ctx context.Context, store repository.Store) (int, error)
	// Generate creates entity number index of the partition, with its
	// translations and relations, through store, and reports whether the
	// entity is new. Outcomes go to rec, which is committed with the chunk.
	Generate func(ctx context.Context, store repository.Store, rec *Recorder, rng *rand.Rand, index int) (bool, error)
	// Committed, when set, runs after every committed chunk.
	Committed func(ctx context.Context)
}

// PartitionResult reports what a job did.
type PartitionResult struct {
	Partition string `json:"partition"`
	Existing  int    `json:"existing"`
	Target    int    `json:"target"`
	Created   int    `json:"created"`
	// Reused counts generated keys that matched an existing entity.
	Reused      int   `json:"reused"`
	Chunks      []int `json:"chunks"`
	Interrupted bool  `json:"interrupted"`
	// Stalled is set when the partition stopped below target because
	// consecutive chunks produced no new entity.
	Stalled bool `json:"stalled"`
}

// BatchGenerator fills partitions up to their target in fixed-size chunks.
// Each chunk runs in its own transaction and is never cut short by ctx;
// cancellation is honoured between chunks.
type BatchGenerator struct {
	store     repository.Store
	kind      domain.Kind
	chunkSize int
	rec       *Recorder
	logger    *slog.Logger
}

// NewBatchGenerator creates a generator for entities of kind.
func NewBatchGenerator(store repository.Store, kind domain.Kind, chunkSize int, rec *Recorder, logger *slog.Logger) *BatchGenerator {
	if chunkSize < 1 {
		chunkSize = 1
	}
	return &BatchGenerator{store: store, kind: kind, chunkSize: chunkSize, rec: rec, logger: logger}
}

// Run drives job to completion or until ctx ends between chunks. Entity
// number i draws from NewRand(seed, i) and numbering continues from the
// existing count, so a rerun with the same seed produces new keys instead of
// revisiting the ones it already wrote.
func (g *BatchGenerator) Run(ctx context.Context, job Job, seed uint64) (PartitionResult, error) {
	ctx = logger.WithPartition(ctx, job.Partition)
	log := logger.WithContext(ctx, g.logger)
	res := PartitionResult{Partition: job.Partition, Target: job.Target}

	var remaining, next, idle int
	state := stateInit
	for state != stateDone {
		switch state {
		case stateInit:
			state = stateCountExisting

		case stateCountExisting:
			existing, err := job.Count(ctx, g.store)
			if err != nil {
				return res, fmt.Errorf("count %s in %s: %w", g.kind, job.Partition, err)
			}
			res.Existing = existing
			if existing >= job.Target {
				state = stateTargetMet
				continue
			}
			remaining = job.Target - existing
			next = existing
			state = stateGenerateChunk

		case stateTargetMet:
			log.DebugContext(ctx, "partition target met",
				slog.String("kind", string(g.kind)),
				slog.Int("existing", res.Existing),
				slog.Int("target", job.Target),
			)
			state = stateDone

		case stateGenerateChunk:
			if remaining == 0 {
				state = stateDone
				continue
			}
			if ctx.Err() != nil {
				res.Interrupted = true
				log.WarnContext(ctx, "partition interrupted",
					slog.String("kind", string(g.kind)),
					slog.Int("created", res.Created),
					slog.Int("remaining", remaining),
				)
				state = stateDone
				continue
			}
			if idle >= maxIdleChunks {
				res.Stalled = true
				log.WarnContext(ctx, "partition stalled, generated keys keep matching existing entities",
					slog.String("kind", string(g.kind)),
					slog.Int("created", res.Created),
					slog.Int("remaining", remaining),
				)
				state = stateDone
				continue
			}

			size := min(g.chunkSize, remaining)
			created, err := g.runChunk(ctx, job, seed, next, size)
			if err != nil {
				return res, err
			}
			next += size
			res.Chunks = append(res.Chunks, size)
			res.Created += created
			res.Reused += size - created
			remaining -= created
			if created == 0 {
				idle++
			} else {
				idle = 0
			}
		}
	}

	log.InfoContext(ctx, "partition done",
		slog.String("kind", string(g.kind)),
		slog.Int("existing", res.Existing),
		slog.Int("created", res.Created),
		slog.Int("reused", res.Reused),
		slog.Int("chunks", len(res.Chunks)),
		slog.Bool("interrupted", res.Interrupted),
	)
	return res, nil
}

func (g *BatchGenerator) runChunk(ctx context.Context, job Job, seed uint64, offset, size int) (created int, err error) {
	chunkCtx := context.WithoutCancel(ctx)
	chunkCtx, end := tracing.StartSpan(chunkCtx, tracerName, "seeder.chunk")
	defer func() { end(err) }()

	rec := g.rec.Buffer()
	start := time.Now()
	err = g.store.WithinTx(chunkCtx, func(tx repository.Store) error {
		created = 0
		for i := 0; i < size; i++ {
			idx := offset + i
			isNew, err := job.Generate(chunkCtx, tx, rec, NewRand(seed, uint64(idx)), idx)
			if err != nil {
				return err
			}
			if isNew {
				created++
			}
		}
		return nil
	})
	g.rec.Chunk(g.kind, time.Since(start))
	if err != nil {
		rec.Discard()
		return 0, fmt.Errorf("generate %s chunk in %s: %w", g.kind, job.Partition, err)
	}
	rec.Commit()
	if job.Committed != nil {
		job.Committed(chunkCtx)
	}
	return created, nil
}

// RunAll runs jobs with at most workers partitions in flight. Job i runs
// with PartitionSeed(seed, i). The first failing job stops the others
// between chunks.
func (g *BatchGenerator) RunAll(ctx context.Context, jobs []Job, workers int, seed uint64) ([]PartitionResult, error) {
	results := make([]PartitionResult, len(jobs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(workers, 1))

	for i, job := range jobs {
		eg.Go(func() error {
			res, err := g.Run(egCtx, job, PartitionSeed(seed, i))
			results[i] = res
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
