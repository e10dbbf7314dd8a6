// Package services – LedgerService
//
// This file implements LedgerService, the application-level component that
// owns the producer- and downloader-facing entry points of the ledger. It
// validates incoming content documents, consults the seen-set before
// re-processing, and performs every mutation inside a transaction wrapped in
// the busy-retry policy.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// status ids and batch counts. Outcome counters are exported via the metrics
// package.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/castlebay/postvault/internal/domain"
	"github.com/castlebay/postvault/internal/metrics"
	"github.com/castlebay/postvault/internal/repo"
)

// SourcePost is one post handed over by the fetch collaborator: the external
// status id plus the raw content document as retrieved.
type SourcePost struct {
	StatusID string
	Content  []byte
}

// LedgerService coordinates observation, dedup, and media bookkeeping over
// the active and archive ledgers.
type LedgerService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// PendingBatch caps how many pending-media rows a single PendingMedia
	// call returns when the caller passes no explicit limit (<= 0 means
	// unbounded).
	PendingBatch int
}

// RecordTimelinePosts records a page of posts obtained from a timeline or
// likes listing. Before inserting, the timeline flag of every re-observed
// status id is flipped sticky-true in both ledgers, so a post seen on a
// timeline once stays timeline-sourced even after archival. Returns how many
// posts were genuinely new.
func (s *LedgerService) RecordTimelinePosts(ctx context.Context, posts []SourcePost) (int, error) {
	return s.record(ctx, posts, true)
}

// RecordPosts records posts referenced indirectly (quoted, linked), without
// touching timeline flags. Returns how many posts were genuinely new.
func (s *LedgerService) RecordPosts(ctx context.Context, posts []SourcePost) (int, error) {
	return s.record(ctx, posts, false)
}

func (s *LedgerService) record(ctx context.Context, posts []SourcePost, timeline bool) (int, error) {
	source := metrics.SourceLoose
	if timeline {
		source = metrics.SourceTimeline
	}

	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "Record",
		trace.WithAttributes(
			attribute.Int("batch.size", len(posts)),
			attribute.String("batch.source", source),
		),
	)
	defer span.End()

	if len(posts) == 0 {
		return 0, nil
	}
	for _, p := range posts {
		if strings.TrimSpace(p.StatusID) == "" {
			return 0, ErrEmptyStatusID
		}
	}

	// One timestamp per batch, like one CURRENT_TIMESTAMP per statement run.
	recordedAt := time.Now().UTC()

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.StatusID)
	}

	inserted := 0
	err := s.withBusyRetry(ctx, func() error {
		inserted = 0
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if timeline {
				if err := repo.TouchTimeline(ctx, tx, ids); err != nil {
					return err
				}
			}

			// Only ids absent from BOTH ledgers may enter the active ledger;
			// an archived post must never be re-inserted at full fidelity.
			unseen, err := repo.UnseenStatusIDs(ctx, tx, ids)
			if err != nil {
				return err
			}
			unseenSet := make(map[string]struct{}, len(unseen))
			for _, id := range unseen {
				unseenSet[id] = struct{}{}
			}

			for _, p := range posts {
				if _, ok := unseenSet[p.StatusID]; !ok {
					metrics.PostsObserved.WithLabelValues(domain.AlreadyPresent.String(), source).Inc()
					continue
				}
				doc, err := domain.NewDocument(p.Content)
				if err != nil {
					return err
				}
				outcome, err := repo.InsertPostIfAbsent(ctx, tx, p.StatusID, doc, timeline, recordedAt)
				if err != nil {
					return err
				}
				metrics.PostsObserved.WithLabelValues(outcome.String(), source).Inc()
				if outcome == domain.Inserted {
					inserted++
				}
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	log.Debug().
		Int("batch", len(posts)).
		Int("inserted", inserted).
		Str("source", source).
		Msg("recorded posts")
	return inserted, nil
}

// MarkMediaFetched records that the download pipeline finished fetching a
// post's media at the given time. The first recorded timestamp wins;
// repeating the call is a safe no-op. Returns ErrPostNotFound when the
// status id is not in the active ledger.
func (s *LedgerService) MarkMediaFetched(ctx context.Context, statusID string, at time.Time) error {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "MarkMediaFetched",
		trace.WithAttributes(attribute.String("post.status_id", statusID)),
	)
	defer span.End()

	if strings.TrimSpace(statusID) == "" {
		return ErrEmptyStatusID
	}

	err := s.withBusyRetry(ctx, func() error {
		return repo.MarkMediaFetched(ctx, s.DB, statusID, at.UTC())
	})
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPostNotFound
	}
	if err != nil {
		return err
	}

	metrics.MediaFetched.Inc()
	log.Debug().Str("status_id", statusID).Time("at", at).Msg("media fetched")
	return nil
}

// PendingMedia returns active posts still waiting for a media download,
// oldest first. A non-positive limit falls back to the configured batch cap.
// Each call re-scans current ledger state.
func (s *LedgerService) PendingMedia(ctx context.Context, limit int) ([]domain.Post, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "PendingMedia",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	if limit <= 0 {
		limit = s.PendingBatch
	}
	return repo.SelectPendingMedia(ctx, s.DB, limit)
}

// PendingPhotosets builds download work items from the pending-media set:
// one Photoset per post that actually carries photos. Posts whose media list
// has no photos are skipped; they never blocked on a download to begin with.
func (s *LedgerService) PendingPhotosets(ctx context.Context, limit int) ([]domain.Photoset, error) {
	posts, err := s.PendingMedia(ctx, limit)
	if err != nil {
		return nil, err
	}

	var sets []domain.Photoset
	for _, p := range posts {
		urls := p.Content.PhotoURLs()
		if len(urls) == 0 {
			continue
		}
		sets = append(sets, domain.Photoset{
			PostID:      p.ID,
			StatusID:    p.StatusID,
			AccountName: p.Content.AccountName(),
			PhotoURLs:   urls,
		})
	}
	return sets, nil
}

// PostsByTimelineFlag returns active posts filtered by how they were
// obtained.
func (s *LedgerService) PostsByTimelineFlag(ctx context.Context, inTimeline bool) ([]domain.Post, error) {
	return repo.SelectPostsByTimelineFlag(ctx, s.DB, inTimeline)
}

// Seen is the dedup oracle: nil means the status id has never been observed
// in either ledger. Producers consult it before fetching a post again; the
// download pipeline consults it before re-downloading.
func (s *LedgerService) Seen(ctx context.Context, statusID string) (*domain.SeenPost, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "Seen",
		trace.WithAttributes(attribute.String("post.status_id", statusID)),
	)
	defer span.End()

	if strings.TrimSpace(statusID) == "" {
		return nil, ErrEmptyStatusID
	}
	return repo.IsSeen(ctx, s.DB, statusID)
}

// MaxTimelineStatusID returns the newest timeline-sourced status id known
// for an account, for use as a fetch-cursor ("everything after this id").
// Returns "" when the account has no timeline history.
func (s *LedgerService) MaxTimelineStatusID(ctx context.Context, accountID string) (string, error) {
	return repo.MaxTimelineStatusID(ctx, s.DB, accountID)
}

// withBusyRetry applies the repo-level lock retry and counts budget
// exhaustion.
func (s *LedgerService) withBusyRetry(ctx context.Context, fn func() error) error {
	err := repo.WithBusyRetry(ctx, fn)
	if err != nil && repo.IsBusy(err) {
		metrics.BusyRetries.Inc()
	}
	return err
}
