// Package services – InfoService
//
// Store diagnostics for the CLI: file path and size, per-ledger row counts,
// and the schema version marker.
package services

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"gorm.io/gorm"

	"github.com/castlebay/postvault/internal/repo"
)

// StoreInfo is a point-in-time snapshot of store-level facts.
type StoreInfo struct {
	Path          string
	SizeBytes     uint64
	ActivePosts   int64
	ArchivedPosts int64
	PendingMedia  int64
	SchemaVersion int
}

// InfoService reports store diagnostics.
type InfoService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Path is the store file path, kept here because the handle does not
	// expose it.
	Path string
}

// Collect gathers the snapshot. Count failures are reported as errors rather
// than guessed at; a missing store file only blanks the size.
func (s *InfoService) Collect(ctx context.Context) (*StoreInfo, error) {
	info := &StoreInfo{Path: s.Path}

	if st, err := os.Stat(s.Path); err == nil {
		info.SizeBytes = uint64(st.Size())
	}

	var err error
	if info.ActivePosts, err = repo.CountPosts(ctx, s.DB); err != nil {
		return nil, err
	}
	if info.ArchivedPosts, err = repo.CountArchived(ctx, s.DB); err != nil {
		return nil, err
	}
	if info.PendingMedia, err = repo.CountPendingMedia(ctx, s.DB); err != nil {
		return nil, err
	}
	if info.SchemaVersion, err = repo.CurrentSchemaVersion(s.DB); err != nil {
		return nil, err
	}
	return info, nil
}

// Format renders the snapshot as an aligned, human-readable block.
func (i *StoreInfo) Format() string {
	return fmt.Sprintf(
		"Store path     : %s\n"+
			"Store size     : %s\n"+
			"Schema version : %d\n"+
			"Active posts   : %d\n"+
			"Pending media  : %d\n"+
			"Archived posts : %d",
		i.Path,
		humanize.Bytes(i.SizeBytes),
		i.SchemaVersion,
		i.ActivePosts,
		i.PendingMedia,
		i.ArchivedPosts,
	)
}
