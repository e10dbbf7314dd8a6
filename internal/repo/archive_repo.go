// Package repo implements the data persistence layer for the post ledger,
// backed by GORM. This file covers the archive ledger: read access for dedup
// checks, and the single write path: the archival transition that moves a
// record out of the active ledger.
//
// Archived rows are never inserted directly; they always originate from a
// prior active record via ArchivePost, which is what keeps the cross-ledger
// uniqueness invariant true by construction.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/castlebay/postvault/internal/domain"
)

// ErrAlreadyArchived is returned when the archival transition is attempted
// for a status id that is already in the archive ledger.
var ErrAlreadyArchived = errors.New("post already archived")

// ArchiveContains reports whether the archive ledger holds the status id.
func ArchiveContains(ctx context.Context, db *gorm.DB, statusID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.ArchivedPost{}).
		Where("status_id = ?", statusID).
		Count(&count).Error
	return count > 0, err
}

// LookupArchived fetches an archived record by status id, or ErrNotFound.
func LookupArchived(ctx context.Context, db *gorm.DB, statusID string) (*domain.ArchivedPost, error) {
	var a domain.ArchivedPost
	err := db.WithContext(ctx).Where("status_id = ?", statusID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ArchivePost moves one record from the active to the archive ledger as a
// single unit of work: it reads the active row, derives the archived
// projection (denormalizing the owning account and summarizing media from
// the content document), inserts it, and deletes the active row. It must be
// called inside a transaction; the caller owns commit/rollback.
//
// Outcomes:
//   - status id only in the archive ledger: ErrAlreadyArchived.
//   - status id in neither ledger: ErrNotFound.
//   - status id somehow present in both (a crashed transition from a store
//     not under this code's transactional guarantees): the active row is
//     deleted to complete the move, then ErrAlreadyArchived is reported.
//     The caller must commit in that case, not roll back.
func ArchivePost(ctx context.Context, tx *gorm.DB, statusID string, at time.Time) error {
	p, err := GetPost(ctx, tx, statusID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		archived, aerr := ArchiveContains(ctx, tx, statusID)
		if aerr != nil {
			return aerr
		}
		if archived {
			return ErrAlreadyArchived
		}
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	// archived_at may never precede recorded_at, clock skew or not.
	if at.Before(p.RecordedAt) {
		at = p.RecordedAt
	}

	a := &domain.ArchivedPost{
		StatusID:       p.StatusID,
		AccountID:      p.Content.AccountID(),
		AccountName:    p.Content.AccountName(),
		Media:          p.Content.MediaSummary(),
		InTimeline:     p.InTimeline,
		RecordedAt:     p.RecordedAt,
		MediaFetchedAt: p.MediaFetchedAt,
		ArchivedAt:     at,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		if !isUniqueViolation(err) {
			return err
		}
		// Duplicate archive copy already present: finish the move anyway so
		// the record is never readable as active alongside it.
		if derr := deleteActive(ctx, tx, statusID); derr != nil {
			return derr
		}
		return ErrAlreadyArchived
	}

	return deleteActive(ctx, tx, statusID)
}

func deleteActive(ctx context.Context, tx *gorm.DB, statusID string) error {
	return tx.WithContext(ctx).
		Where("status_id = ?", statusID).
		Delete(&domain.Post{}).Error
}
