// Package repo implements the data persistence layer for the post ledger,
// backed by GORM. This file provides the seen-set: the merged dedup
// projection over the active and archive ledgers.
//
// The projection is a single UNION query, never two separate lookups, so a
// caller can never observe a record mid-archival as "in neither ledger". The
// active side derives the owning account with json_extract over the stored
// content document, which insert-time validation guarantees is well-formed.
package repo

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/castlebay/postvault/internal/domain"
)

const seenUnionSQL = `
SELECT status_id,
       json_extract(content, '$.account.id') AS account_id,
       in_timeline
FROM active_posts
UNION
SELECT status_id, account_id, in_timeline
FROM archived_posts
`

// IsSeen answers whether a status id has ever been observed, in either
// ledger. It returns nil (with a nil error) for an unseen id; otherwise
// exactly one row; the cross-ledger uniqueness invariant makes more than
// one impossible.
func IsSeen(ctx context.Context, db *gorm.DB, statusID string) (*domain.SeenPost, error) {
	var rows []domain.SeenPost
	err := db.WithContext(ctx).
		Raw("SELECT * FROM ("+seenUnionSQL+") WHERE status_id = ?", statusID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UnseenStatusIDs filters candidate status ids down to those absent from
// both ledgers. Used by batch inserts to report how many posts in a fetched
// page are genuinely new.
func UnseenStatusIDs(ctx context.Context, db *gorm.DB, statusIDs []string) ([]string, error) {
	if len(statusIDs) == 0 {
		return nil, nil
	}

	var seen []string
	err := db.WithContext(ctx).
		Raw("SELECT status_id FROM ("+seenUnionSQL+") WHERE status_id IN ?", statusIDs).
		Scan(&seen).Error
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		known[id] = struct{}{}
	}
	var out []string
	for _, id := range statusIDs {
		if _, ok := known[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// MaxTimelineStatusID returns the numerically greatest timeline-sourced
// status id ever seen for an account, across both ledgers. Status ids are
// stored as strings, so the maximum is taken over their integer values in
// Go rather than by SQL collation; ids that do not parse as unsigned
// integers are skipped. Returns "" when the account has no timeline entries.
func MaxTimelineStatusID(ctx context.Context, db *gorm.DB, accountID string) (string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Raw("SELECT status_id FROM ("+seenUnionSQL+") WHERE account_id = ? AND in_timeline = ?", accountID, true).
		Scan(&ids).Error
	if err != nil {
		return "", err
	}

	var (
		max   uint64
		maxID string
	)
	for _, id := range ids {
		n, perr := strconv.ParseUint(id, 10, 64)
		if perr != nil {
			continue
		}
		if maxID == "" || n > max {
			max, maxID = n, id
		}
	}
	return maxID, nil
}
