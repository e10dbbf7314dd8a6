// Package services – ArchiveService
//
// This file implements ArchiveService, which owns the archival transition:
// the atomic move of a record from the active ledger to the archive ledger.
// The transition runs as one transaction (derive the archived projection,
// insert it, delete the active row) so no failure can leave a record in
// both ledgers or in neither.
//
// PruneFetched is the built-in retention sweep: it archives every active
// post whose media obligations are settled (no photos, or photos already
// fetched), which is what keeps the active ledger small across repeated
// runs. External retention policies can call Archive directly instead.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/castlebay/postvault/internal/domain"
	"github.com/castlebay/postvault/internal/metrics"
	"github.com/castlebay/postvault/internal/repo"
)

// ArchiveService moves records from the active to the archive ledger.
type ArchiveService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Archive moves one record to the archive ledger, unconditionally. Returns
// ErrAlreadyArchived for a status id that is already archived and
// ErrPostNotFound for one in neither ledger. The move is atomic: on any
// failure the record stays fully active.
func (s *ArchiveService) Archive(ctx context.Context, statusID string) error {
	tr := otel.Tracer("services/ArchiveService")
	ctx, span := tr.Start(ctx, "Archive",
		trace.WithAttributes(attribute.String("post.status_id", statusID)),
	)
	defer span.End()

	err := repo.WithBusyRetry(ctx, func() error {
		return s.archiveOne(ctx, statusID, time.Now().UTC())
	})
	if errors.Is(err, repo.ErrAlreadyArchived) {
		return ErrAlreadyArchived
	}
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPostNotFound
	}
	if err != nil {
		return err
	}

	metrics.PostsArchived.Inc()
	log.Debug().Str("status_id", statusID).Msg("archived post")
	return nil
}

// archiveOne runs the transition in its own transaction. An
// already-archived detection must still commit: when a duplicate archive
// copy exists, repo.ArchivePost completes the active-side deletion, and
// rolling that back would resurrect the overlap.
func (s *ArchiveService) archiveOne(ctx context.Context, statusID string, at time.Time) error {
	var archiveErr error
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		archiveErr = repo.ArchivePost(ctx, tx, statusID, at)
		if errors.Is(archiveErr, repo.ErrAlreadyArchived) {
			return nil // commit the cleanup
		}
		return archiveErr
	})
	if txErr != nil {
		return txErr
	}
	return archiveErr
}

// PruneFetched archives every active post with no outstanding media work:
// posts without media, posts whose media contains no photos, and posts whose
// photos were already fetched. The whole sweep is one transaction, mirroring
// the all-or-nothing shape of a retention run. Returns how many records were
// moved.
func (s *ArchiveService) PruneFetched(ctx context.Context) (int, error) {
	tr := otel.Tracer("services/ArchiveService")
	ctx, span := tr.Start(ctx, "PruneFetched")
	defer span.End()

	runID := uuid.NewString()
	prunedAt := time.Now().UTC()

	pruned := 0
	err := repo.WithBusyRetry(ctx, func() error {
		pruned = 0
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Snapshot ids first; archiving mutates the table being walked.
			posts, err := repo.SelectPostsByTimelineFlag(ctx, tx, true)
			if err != nil {
				return err
			}
			loose, err := repo.SelectPostsByTimelineFlag(ctx, tx, false)
			if err != nil {
				return err
			}
			posts = append(posts, loose...)

			for _, p := range posts {
				if !prunable(&p) {
					continue
				}
				if err := repo.ArchivePost(ctx, tx, p.StatusID, prunedAt); err != nil {
					return err
				}
				pruned++
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	metrics.PostsArchived.Add(float64(pruned))
	log.Info().
		Str("run_id", runID).
		Int("pruned", pruned).
		Msg("pruned fetched posts")
	return pruned, nil
}

// prunable reports whether a post's media obligations are settled: it has
// no photos, or its photos were already fetched.
func prunable(p *domain.Post) bool {
	if !domain.HasPhotos(p.Content.Media()) {
		return true
	}
	return p.MediaFetchedAt != nil
}
