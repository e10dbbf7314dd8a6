// Package repo implements the data persistence layer for the post ledger,
// backed by GORM. This file provides repository functions for the active
// ledger: the posts still carrying their full content payload.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only persistence
// and query composition.
//
// Error semantics:
//   - When a post is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/castlebay/postvault/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist. It aliases
// gorm.ErrRecordNotFound for convenience and consistency across the service
// layer.
var ErrNotFound = gorm.ErrRecordNotFound

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// glebarez/sqlite often returns plain-text errors for these.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// InsertPostIfAbsent records a newly observed post, keyed by its external
// status id. The content document is validated before anything is written;
// a malformed payload fails with domain.ErrMalformedContent and no row.
//
// If the status id already exists, the stored content and recorded_at are
// never rewritten: the call reports domain.AlreadyPresent, and when
// inTimeline is true the flag is OR'd into the stored row (sticky-true; a
// post seen in a timeline once is always timeline-sourced). Concurrent
// inserts for the same status id race safely to exactly one logical
// insertion, the loser observing AlreadyPresent via the unique index.
func InsertPostIfAbsent(ctx context.Context, db *gorm.DB, statusID string, content domain.Document, inTimeline bool, recordedAt time.Time) (domain.InsertOutcome, error) {
	if err := content.Validate(); err != nil {
		return domain.AlreadyPresent, err
	}

	p := &domain.Post{
		StatusID:   statusID,
		Content:    content,
		InTimeline: inTimeline,
		RecordedAt: recordedAt,
	}
	err := db.WithContext(ctx).Create(p).Error
	if err == nil {
		return domain.Inserted, nil
	}
	if !isUniqueViolation(err) {
		return domain.AlreadyPresent, err
	}

	if inTimeline {
		if uerr := db.WithContext(ctx).
			Model(&domain.Post{}).
			Where("status_id = ? AND in_timeline = ?", statusID, false).
			Update("in_timeline", true).Error; uerr != nil {
			return domain.AlreadyPresent, uerr
		}
	}
	return domain.AlreadyPresent, nil
}

// GetPost fetches a single active post by status id, or ErrNotFound.
func GetPost(ctx context.Context, db *gorm.DB, statusID string) (*domain.Post, error) {
	var p domain.Post
	err := db.WithContext(ctx).Where("status_id = ?", statusID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkMediaFetched records media-download completion for an active post.
// The timestamp is written only while media_fetched_at is still null, so the
// first write wins and repeated calls are safe no-ops. A status id absent
// from the active ledger yields ErrNotFound.
func MarkMediaFetched(ctx context.Context, db *gorm.DB, statusID string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("status_id = ? AND media_fetched_at IS NULL", statusID).
		Update("media_fetched_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// No row updated: either already marked (idempotent success) or missing.
	var count int64
	if err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("status_id = ?", statusID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// SelectPendingMedia returns active posts whose media has not been fetched
// yet, oldest first (surrogate id ascending). A non-positive limit returns
// the full pending set. Each call re-scans current state; no snapshot is
// held between calls.
func SelectPendingMedia(ctx context.Context, db *gorm.DB, limit int) ([]domain.Post, error) {
	q := db.WithContext(ctx).
		Where("media_fetched_at IS NULL").
		Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Post
	err := q.Find(&out).Error
	return out, err
}

// SelectPostsByTimelineFlag returns active posts with the given timeline
// flag, surrogate id ascending.
func SelectPostsByTimelineFlag(ctx context.Context, db *gorm.DB, inTimeline bool) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Where("in_timeline = ?", inTimeline).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// TouchTimeline flips in_timeline to true for the given status ids in both
// ledgers. Called before a timeline batch insert so re-observed posts,
// active or long since archived, become timeline-sourced permanently.
func TouchTimeline(ctx context.Context, db *gorm.DB, statusIDs []string) error {
	if len(statusIDs) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("status_id IN ? AND in_timeline = ?", statusIDs, false).
		Update("in_timeline", true).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.ArchivedPost{}).
		Where("status_id IN ? AND in_timeline = ?", statusIDs, false).
		Update("in_timeline", true).Error
}
