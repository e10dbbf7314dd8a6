// Package domain defines the persistence models for the post ledger: active
// posts awaiting media download, archived posts kept only for deduplication,
// and the merged "seen" projection over both. These types are mapped with
// GORM and form the core data layer of the application.
package domain

import (
	"time"
)

// Post represents a currently-tracked post in the active ledger, carrying the
// full content payload as retrieved from the source.
//
// Fields:
//   - ID: locally assigned auto-increment surrogate key; stable sort key,
//     never reused.
//   - StatusID: globally unique external post identifier; immutable once set;
//     the natural dedup key (unique index).
//   - Content: full post document as retrieved (validated JSON).
//   - InTimeline: true if the post was obtained via a timeline/likes listing
//     rather than referenced indirectly; once true it stays true.
//   - RecordedAt: timestamp of first insertion; never rewritten.
//   - MediaFetchedAt: nil until the download pipeline reports completion;
//     set exactly once, never reset.
type Post struct {
	ID             int64      `json:"id"               gorm:"primaryKey;autoIncrement"`
	StatusID       string     `json:"status_id"        gorm:"type:varchar(64);not null;uniqueIndex:ux_posts_status"`
	Content        Document   `json:"content"          gorm:"type:text;not null"`
	InTimeline     bool       `json:"in_timeline"      gorm:"not null;index:idx_posts_timeline"`
	RecordedAt     time.Time  `json:"recorded_at"      gorm:"not null"`
	MediaFetchedAt *time.Time `json:"media_fetched_at" gorm:"index:idx_posts_media_fetched"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "active_posts" }

// ArchivedPost represents a post moved out of the active ledger. The full
// content payload is dropped; only the fields needed to keep deduplication
// working forever are retained, plus denormalized owning-account provenance.
//
// Fields:
//   - ID: surrogate key in the archive identity space (independent of the
//     active-ledger key the record once had).
//   - StatusID: same external identifier the record carried while active
//     (unique index; a status id never exists in both ledgers at once).
//   - AccountID / AccountName: owning account, extracted from the content
//     payload at archival time.
//   - Media: JSON summary of the post's media entities, nil when none.
//   - ArchivedAt: timestamp of the archival transition; always >= RecordedAt.
type ArchivedPost struct {
	ID             int64      `json:"id"               gorm:"primaryKey;autoIncrement"`
	StatusID       string     `json:"status_id"        gorm:"type:varchar(64);not null;uniqueIndex:ux_archived_status;index:idx_archived_account,priority:2"`
	AccountID      string     `json:"account_id"       gorm:"type:varchar(64);not null;index:idx_archived_account,priority:1"`
	AccountName    string     `json:"account_name"     gorm:"type:varchar(64);not null"`
	Media          *string    `json:"media,omitempty"  gorm:"type:text"`
	InTimeline     bool       `json:"in_timeline"      gorm:"not null;index:idx_archived_timeline"`
	RecordedAt     time.Time  `json:"recorded_at"      gorm:"not null"`
	MediaFetchedAt *time.Time `json:"media_fetched_at"`
	ArchivedAt     time.Time  `json:"archived_at"      gorm:"not null"`
}

// TableName returns the database table name for ArchivedPost.
func (ArchivedPost) TableName() string { return "archived_posts" }

// SeenPost is the merged dedup projection over both ledgers: for any status
// id known to either table it answers who owns the post and whether it was
// ever timeline-sourced. It is a query result shape, not a table.
type SeenPost struct {
	StatusID   string `json:"status_id"`
	AccountID  string `json:"account_id"`
	InTimeline bool   `json:"in_timeline"`
}

// InsertOutcome reports whether an insert-if-absent call created a new active
// record or found the status id already known.
type InsertOutcome int

const (
	// Inserted means a new active record was created.
	Inserted InsertOutcome = iota
	// AlreadyPresent means the status id was already in the seen set; the
	// stored record was left untouched apart from the sticky timeline flag.
	AlreadyPresent
)

// String returns a short human-readable name for the outcome.
func (o InsertOutcome) String() string {
	if o == Inserted {
		return "inserted"
	}
	return "already_present"
}
