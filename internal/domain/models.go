// Package domain defines the persistence models for notes. These types are
// mapped with GORM and form the core data layer of the note backend.
package domain

import "time"

// Note formats supported by the API. The default format is plain text.
const (
	FormatText = "text"
	FormatRich = "rich"
)

// Note colors supported by the API. The default color is "primary".
const (
	ColorPrimary   = "primary"
	ColorSecondary = "secondary"
	ColorTertiary  = "tertiary"
)

// ValidFormat reports whether f is a supported note format.
func ValidFormat(f string) bool {
	return f == FormatText || f == FormatRich
}

// ValidColor reports whether c is a supported note color.
func ValidColor(c string) bool {
	return c == ColorPrimary || c == ColorSecondary || c == ColorTertiary
}

// Note represents a single note owned by a user. The (OwnerID, ID) pair is
// unique and immutable after creation; every query in the repository layer is
// scoped by OwnerID, so a note is never visible outside its owner's partition.
//
// Deletion is always soft: IsDeleted marks the note as trashed and restore
// clears the flag again. Rows are never physically removed by this service.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - OwnerID: identifier of the note owner; opaque to this service.
//   - Title: optional human-readable title (may be empty).
//   - Content: full note body.
//   - IsDeleted: soft-deletion marker, reversible via restore.
//   - IsPinned: client-side pinning hint.
//   - Format: "text" or "rich".
//   - Color: "primary", "secondary", or "tertiary".
//   - CreatedAt / UpdatedAt: UTC timestamps; UpdatedAt bumps on every mutation.
type Note struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	OwnerID   string    `json:"owner_id"   gorm:"type:varchar(64);not null;index:idx_owner_notes,priority:1"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null;default:''"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	IsDeleted bool      `json:"is_deleted" gorm:"not null;default:false"`
	IsPinned  bool      `json:"is_pinned"  gorm:"not null;default:false"`
	Format    string    `json:"format"     gorm:"type:varchar(16);not null;default:'text';check:format IN ('text','rich')"`
	Color     string    `json:"color"      gorm:"type:varchar(16);not null;default:'primary';check:color IN ('primary','secondary','tertiary')"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index:idx_owner_notes,priority:2"`
}

// TableName returns the database table name for Note.
func (Note) TableName() string { return "notes" }
