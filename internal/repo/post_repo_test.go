package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/castlebay/postvault/internal/domain"
)

func TestInsertPostIfAbsent_NewRecord(t *testing.T) {
	db := newLedgerDB(t, true)
	ctx := context.Background()

	recordedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	outcome, err := InsertPostIfAbsent(ctx, db, "100", doc(t, "1", "anon"), true, recordedAt)
	if err != nil {
		t.Fatalf("InsertPostIfAbsent: %v", err)
	}
	if outcome != domain.Inserted {
		t.Fatalf("outcome = %v, want Inserted", outcome)
	}

	p, err := GetPost(ctx, db, "100")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if p.ID == 0 || p.StatusID != "100" || !p.InTimeline || p.MediaFetchedAt != nil {
		t.Fatalf("unexpected Post fields: %+v", p)
	}
	if !p.RecordedAt.Equal(recordedAt) {
		t.Fatalf("RecordedAt = %v, want %v", p.RecordedAt, recordedAt)
	}
}

func TestInsertPostIfAbsent_DuplicateNeverRewrites(t *testing.T) {
	db := newLedgerDB(t, true)
	ctx := context.Background()

	first := doc(t, "1", "anon")
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := InsertPostIfAbsent(ctx, db, "100", first, false, t0); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	second := doc(t, "2", "other")
	outcome, err := InsertPostIfAbsent(ctx, db, "100", second, false, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if outcome != domain.AlreadyPresent {
		t.Fatalf("outcome = %v, want AlreadyPresent", outcome)
	}

	p, err := GetPost(ctx, db, "100")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if p.Content.AccountID() != "1" {
		t.Fatalf("content was rewritten: account id = %q", p.Content.AccountID())
	}
	if !p.RecordedAt.Equal(t0) {
		t.Fatalf("RecordedAt was rewritten: %v", p.RecordedAt)
	}
}

func TestInsertPostIfAbsent_TimelineFlagIsStickyTrue(t *testing.T) {
	db := newLedgerDB(t, true)
	ctx := context.Background()
	now := time.Now().UTC()

	// false -> true: re-observation on a timeline upgrades the flag.
	if _, err := InsertPostIfAbsent(ctx, db, "100", doc(t, "1", "anon"), false, now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := InsertPostIfAbsent(ctx, db, "100", doc(t, "1", "anon"), true, now); err != nil {
		t.Fatalf("re-insert: %v", err)
	}
	p, _ := GetPost(ctx, db, "100")
	if !p.InTimeline {
		t.Fatalf("in_timeline should have been upgraded to true")
	}

	// true -> stays true even when re-observed outside a timeline.
	if _, err := InsertPostIfAbsent(ctx, db, "100", doc(t, "1", "anon"), false, now); err != nil {
		t.Fatalf("loose re-insert: %v", err)
	}
	p, _ = GetPost(ctx, db, "100")
	if !p.InTimeline {
		t.Fatalf("in_timeline must never revert to false")
	}
}

func TestInsertPostIfAbsent_MalformedContentRejected(t *testing.T) {
	db := newLedgerDB(t, true)
	ctx := context.Background()

	cases := []string{
		``,
		`not json`,
		`[]`,
		`{"account":{"id":"","name":"anon"}}`,
		`{"text":"no account"}`,
	}
	for _, raw := range cases {
		_, err := InsertPostIfAbsent(ctx, db, "bad", domain.Document(raw), false, time.Now().UTC())
		if !errors.Is(err, domain.ErrMalformedContent) {
			t.Fatalf("payload %q: expected ErrMalformedContent, got %v", raw, err)
		}
	}

	// Nothing was partially written.
	count, err := CountPosts(ctx, db)
	if err != nil {
		t.Fatalf("CountPosts: %v", err)
	}
	if count != 0 {
		t.Fatalf("malformed insert left %d rows behind", count)
	}
}

func TestMarkMediaFetched_FirstWriteWins(t *testing.T) {
	db := newLedgerDB(t, true)
	ctx := context.Background()

	if _, err := InsertPostIfAbsent(ctx, db, "100", doc(t, "1", "anon"), false, time.Now().UTC()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	t1 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if err := MarkMediaFetched(ctx, db, "100", t1); err != nil {
		t.Fatalf("MarkMediaFetched: %v", err)
	}

	// Second call with a later timestamp: safe no-op, t1 stays.
	if err := MarkMediaFetched(ctx, db, "100", t1.Add(time.Hour)); err != nil {
		t.Fatalf("second MarkMediaFetched: %v", err)
	}

	p, _ := GetPost(ctx, db, "100")
	if p.MediaFetchedAt == nil || !p.MediaFetchedAt.Equal(t1) {
		t.Fatalf("media_fetched_at = %v, want %v", p.MediaFetchedAt, t1)
	}
}

func TestMarkMediaFetched_MissingPost(t *testing.T) {
	db := newLedgerDB(t, true)
	err := MarkMediaFetched(context.Background(), db, "nope", time.Now().UTC())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSelectPendingMedia_OrderAndLimit(t *testing.T) {
	db := newLedgerDB(t, true)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"30", "10", "20"} {
		if _, err := InsertPostIfAbsent(ctx, db, id, doc(t, "1", "anon"), false, now); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if err := MarkMediaFetched(ctx, db, "10", now); err != nil {
		t.Fatalf("mark: %v", err)
	}

	pending, err := SelectPendingMedia(ctx, db, 0)
	if err != nil {
		t.Fatalf("SelectPendingMedia: %v", err)
	}
	// Insertion order (surrogate id asc), minus the fetched one.
	if len(pending) != 2 || pending[0].StatusID != "30" || pending[1].StatusID != "20" {
		t.Fatalf("unexpected pending set: %+v", pending)
	}

	limited, err := SelectPendingMedia(ctx, db, 1)
	if err != nil {
		t.Fatalf("SelectPendingMedia limit: %v", err)
	}
	if len(limited) != 1 || limited[0].StatusID != "30" {
		t.Fatalf("unexpected limited set: %+v", limited)
	}
}

func TestSelectPostsByTimelineFlag(t *testing.T) {
	db := newLedgerDB(t, true)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := InsertPostIfAbsent(ctx, db, "1", doc(t, "1", "anon"), true, now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := InsertPostIfAbsent(ctx, db, "2", doc(t, "1", "anon"), false, now); err != nil {
		t.Fatalf("insert: %v", err)
	}

	timeline, err := SelectPostsByTimelineFlag(ctx, db, true)
	if err != nil {
		t.Fatalf("select timeline: %v", err)
	}
	loose, err := SelectPostsByTimelineFlag(ctx, db, false)
	if err != nil {
		t.Fatalf("select loose: %v", err)
	}
	if len(timeline) != 1 || timeline[0].StatusID != "1" {
		t.Fatalf("unexpected timeline set: %+v", timeline)
	}
	if len(loose) != 1 || loose[0].StatusID != "2" {
		t.Fatalf("unexpected loose set: %+v", loose)
	}
}

func TestTouchTimeline_FlipsBothLedgers(t *testing.T) {
	db := newLedgerDB(t, true)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := InsertPostIfAbsent(ctx, db, "active1", doc(t, "1", "anon"), false, now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Create(&domain.ArchivedPost{
		StatusID:    "archived1",
		AccountID:   "1",
		AccountName: "anon",
		InTimeline:  false,
		RecordedAt:  now,
		ArchivedAt:  now,
	}).Error; err != nil {
		t.Fatalf("seed archived: %v", err)
	}

	if err := TouchTimeline(ctx, db, []string{"active1", "archived1", "unknown"}); err != nil {
		t.Fatalf("TouchTimeline: %v", err)
	}

	p, _ := GetPost(ctx, db, "active1")
	if !p.InTimeline {
		t.Fatalf("active row not flipped")
	}
	a, err := LookupArchived(ctx, db, "archived1")
	if err != nil {
		t.Fatalf("LookupArchived: %v", err)
	}
	if !a.InTimeline {
		t.Fatalf("archived row not flipped")
	}
}
