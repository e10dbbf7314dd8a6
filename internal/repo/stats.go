// Package repo implements the data persistence layer for the post ledger,
// backed by GORM. This file provides small aggregate/statistics queries and
// maintenance helpers used by the store-info report and the CLI. Each
// function is context-aware and safe to call from services.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/castlebay/postvault/internal/domain"
)

// CountPosts returns the number of rows in the active ledger.
func CountPosts(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Post{}).Count(&count).Error
	return count, err
}

// CountArchived returns the number of rows in the archive ledger.
func CountArchived(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.ArchivedPost{}).Count(&count).Error
	return count, err
}

// CountPendingMedia returns the number of active posts whose media has not
// been fetched yet.
func CountPendingMedia(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("media_fetched_at IS NULL").
		Count(&count).Error
	return count, err
}

// Vacuum compacts the store file. Worth running after a large pruning sweep;
// the space freed by deleted active rows is not returned to the OS otherwise.
func Vacuum(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec("VACUUM;").Error
}
