// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Note model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Partition isolation: every query is scoped by owner_id, so a note that
// belongs to another owner is structurally indistinguishable from a note that
// does not exist. Callers therefore see the same ErrNotFound for both cases.
//
// Error semantics:
//   - When a note is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Ordering: list queries order by updated_at DESC with id ASC as tiebreaker.
// The tiebreaker makes the order total, which pagination depends on.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notehaven/go-notes-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// noteOrder is the canonical total order for note listings.
const noteOrder = "updated_at DESC, id ASC"

// CreateNote inserts a new Note row owned by ownerID. The note ID is a
// randomly generated UUID (string), and both timestamps are set to the same
// UTC instant so that a fresh note satisfies updated_at == created_at.
func CreateNote(ctx context.Context, db *gorm.DB, ownerID, title, content, format, color string, pinned bool) (*domain.Note, error) {
	now := time.Now().UTC()
	n := &domain.Note{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		IsPinned:  pinned,
		Format:    format,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// GetNote fetches a single note by ID within the owner's partition, or
// ErrNotFound when missing (or owned by someone else).
func GetNote(ctx context.Context, db *gorm.DB, ownerID, id string) (*domain.Note, error) {
	var n domain.Note
	err := db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateNote applies the given column updates to a note in the owner's
// partition and returns the stored row. The caller supplies only the fields
// that changed; updated_at is always bumped here so every mutation moves the
// note to the front of the listing order.
//
// Returns ErrNotFound when the note does not exist for this owner.
func UpdateNote(ctx context.Context, db *gorm.DB, ownerID, id string, fields map[string]any) (*domain.Note, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["updated_at"] = time.Now().UTC()

	res := db.WithContext(ctx).
		Model(&domain.Note{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetNote(ctx, db, ownerID, id)
}

// ListNotesPage returns a paginated slice of the owner's notes ordered by
// updated_at DESC, id ASC. When includeDeleted is false, trashed notes are
// filtered out.
func ListNotesPage(ctx context.Context, db *gorm.DB, ownerID string, includeDeleted bool, offset, limit int) ([]domain.Note, error) {
	var out []domain.Note
	q := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order(noteOrder)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// CountNotes returns the number of notes in the owner's partition, optionally
// including trashed ones.
func CountNotes(ctx context.Context, db *gorm.DB, ownerID string, includeDeleted bool) (int64, error) {
	var total int64
	q := db.WithContext(ctx).
		Model(&domain.Note{}).
		Where("owner_id = ?", ownerID)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	err := q.Count(&total).Error
	return total, err
}

// SearchNotesPage returns non-deleted notes whose title or content contains
// term (case-insensitive), paginated with the canonical ordering.
func SearchNotesPage(ctx context.Context, db *gorm.DB, ownerID, term string, offset, limit int) ([]domain.Note, error) {
	var out []domain.Note
	pattern := "%" + term + "%"
	err := db.WithContext(ctx).
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Where("title LIKE ? OR content LIKE ?", pattern, pattern).
		Order(noteOrder).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
