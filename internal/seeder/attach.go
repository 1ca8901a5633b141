package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/utafrali/catalogseed/internal/config"
	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/repository"
	apperrors "github.com/utafrali/catalogseed/pkg/errors"
	"github.com/utafrali/catalogseed/pkg/logger"
)

// Attacher links entities to randomly chosen related entities.
type Attacher struct {
	store  repository.PivotStore
	rec    *Recorder
	logger *slog.Logger
}

// NewAttacher creates an attacher writing to store.
func NewAttacher(store repository.PivotStore, rec *Recorder, logger *slog.Logger) *Attacher {
	return &Attacher{store: store, rec: rec, logger: logger}
}

// Attach tops leftID up to k distinct targets from candidates, where k is
// drawn from bounds. Targets already attached count towards k and are never
// drawn again. An entity that already has at least bounds.Min targets is
// left alone, so repeated calls never exceed bounds.Max. With fewer than
// bounds.Min candidates every candidate is attached and a warning logged.
// It returns the number of rows written.
func (a *Attacher) Attach(ctx context.Context, rel *domain.Relation, leftID string, candidates []string, bounds config.Bounds, rng *rand.Rand) (int, error) {
	existing, err := a.store.ListPivotTargets(ctx, rel, leftID)
	if err != nil {
		return 0, fmt.Errorf("list %s targets: %w", rel.Table, err)
	}
	if len(existing) > 0 && len(existing) >= bounds.Min {
		return 0, nil
	}

	pool := distinctExcluding(candidates, existing)
	if have := len(pool) + len(existing); have < bounds.Min {
		logger.WithContext(ctx, a.logger).WarnContext(ctx, "not enough relation candidates",
			slog.String("entity_id", leftID),
			slog.String("error", apperrors.InsufficientCandidates(rel.Table, have, bounds.Min).Error()),
		)
	}

	k := IntBetween(rng, bounds.Min, bounds.Max)
	need := min(k-len(existing), len(pool))
	if need <= 0 {
		return 0, nil
	}

	perm := rng.Perm(len(pool))
	written := 0
	for i := 0; i < need; i++ {
		ok, err := a.link(ctx, rel, domain.Pivot{LeftID: leftID, RightID: pool[perm[i]], Position: len(existing) + i})
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}
	return written, nil
}

// Link attaches every id in rightIDs to leftID in order, ignoring pairs
// that already exist.
func (a *Attacher) Link(ctx context.Context, rel *domain.Relation, leftID string, rightIDs []string) (int, error) {
	written := 0
	for i, id := range rightIDs {
		ok, err := a.link(ctx, rel, domain.Pivot{LeftID: leftID, RightID: id, Position: i})
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}
	return written, nil
}

// link writes one pivot. Constraint violations are logged and skipped.
func (a *Attacher) link(ctx context.Context, rel *domain.Relation, p domain.Pivot) (bool, error) {
	if !rel.Ordered {
		p.Position = 0
	}
	ok, err := a.store.AttachPivot(ctx, rel, p)
	if err != nil {
		if apperrors.IsConstraintViolation(err) {
			a.rec.Pivot(rel, domain.OutcomeSkipped)
			logger.WithContext(ctx, a.logger).WarnContext(ctx, "relation skipped",
				slog.String("relation", rel.Table),
				slog.String("left_id", p.LeftID),
				slog.String("right_id", p.RightID),
				slog.String("error", err.Error()),
			)
			return false, nil
		}
		return false, fmt.Errorf("attach %s: %w", rel.Table, err)
	}
	if ok {
		a.rec.Pivot(rel, domain.OutcomeCreated)
	} else {
		a.rec.Pivot(rel, domain.OutcomeSkipped)
	}
	return ok, nil
}

func distinctExcluding(candidates, exclude []string) []string {
	seen := make(map[string]bool, len(candidates)+len(exclude))
	for _, id := range exclude {
		seen[id] = true
	}
	out := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
