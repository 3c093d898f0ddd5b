// Package services – NoteService
//
// This file implements NoteService, the application-level component that owns
// the note lifecycle: create, update, soft-delete, restore, get, list, count,
// and search. It validates input, enforces ownership, and keeps the cache
// layer coherent with the backing store.
//
// Caching contract: reads are read-through (a miss populates the cache from
// the store), writes are invalidate-on-write (the store commit happens first,
// then every cache entry for the owner is dropped, and only then does the
// call return). That ordering is what guarantees a caller can never observe
// its own committed write through a stale cached read. Cache failures are
// never fatal: any cache error degrades the operation to a direct store
// read and is logged at debug level.
//
// Store failures are retried exactly once after a short backoff; not-found
// results and validation errors are never retried.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// owner identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/notehaven/go-notes-backend/internal/cache"
	"github.com/notehaven/go-notes-backend/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Pagination bounds for list/search queries.
	minPageSize = 1
	maxPageSize = 100

	// storeRetryBackoff is the pause before the single retry of a failed
	// store operation.
	storeRetryBackoff = 50 * time.Millisecond
)

// NoteRepo defines the repository contract required by NoteService.
// Implementations are responsible for persistence of note rows inside the
// owner's partition.
type NoteRepo interface {
	// CreateNote inserts a new note row for the given owner.
	CreateNote(ctx context.Context, db *gorm.DB, ownerID, title, content, format, color string, pinned bool) (*domain.Note, error)

	// GetNote fetches a note by ID ensuring it belongs to the owner.
	GetNote(ctx context.Context, db *gorm.DB, ownerID, id string) (*domain.Note, error)

	// UpdateNote applies column updates to an owned note and returns the result.
	UpdateNote(ctx context.Context, db *gorm.DB, ownerID, id string, fields map[string]any) (*domain.Note, error)

	// ListNotesPage returns a page of the owner's notes in canonical order.
	ListNotesPage(ctx context.Context, db *gorm.DB, ownerID string, includeDeleted bool, offset, limit int) ([]domain.Note, error)

	// CountNotes returns the total number of notes for the owner.
	CountNotes(ctx context.Context, db *gorm.DB, ownerID string, includeDeleted bool) (int64, error)

	// SearchNotesPage returns non-deleted notes matching term.
	SearchNotesPage(ctx context.Context, db *gorm.DB, ownerID, term string, offset, limit int) ([]domain.Note, error)
}

// NoteService provides note lifecycle operations with read-through caching
// and write-then-invalidate coherence. Construct with NewNoteService.
type NoteService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the note repository used by this service.
	Repo NoteRepo
	// Cache is the injected cache capability. May be nil, in which case every
	// read goes straight to the store.
	Cache cache.Store

	// CacheTTL bounds staleness of note, list, and count entries.
	CacheTTL time.Duration
}

// NewNoteService constructs a NoteService with a default cache TTL.
func NewNoteService(db *gorm.DB, r NoteRepo, c cache.Store) *NoteService {
	return &NoteService{
		DB:       db,
		Repo:     r,
		Cache:    c,
		CacheTTL: 5 * time.Minute,
	}
}

// CreateNoteInput carries the caller-supplied fields for Create. Zero values
// for Format and Color select the documented defaults.
type CreateNoteInput struct {
	Title   string
	Content string
	Format  string
	Color   string
	Pinned  bool
}

// UpdateNoteInput carries a partial update; nil pointers leave the stored
// field untouched.
type UpdateNoteInput struct {
	Title   *string
	Content *string
	Pinned  *bool
	Format  *string
	Color   *string
}

// Create validates and persists a new note, then invalidates the owner's
// cached listings and counts. A note with neither title nor content is
// rejected with ErrEmptyNote.
func (s *NoteService) Create(ctx context.Context, ownerID string, in CreateNoteInput) (*domain.Note, error) {
	ctx, span := s.span(ctx, "Create", ownerID)
	defer span.End()

	if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Content) == "" {
		return nil, ErrEmptyNote
	}
	format := in.Format
	if format == "" {
		format = domain.FormatText
	}
	if !domain.ValidFormat(format) {
		return nil, ErrInvalidFormat
	}
	color := in.Color
	if color == "" {
		color = domain.ColorPrimary
	}
	if !domain.ValidColor(color) {
		return nil, ErrInvalidColor
	}

	var n *domain.Note
	err := s.withRetry(ctx, func() error {
		var err error
		n, err = s.Repo.CreateNote(ctx, s.DB, ownerID, in.Title, in.Content, format, color, in.Pinned)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ownerID)
	return n, nil
}

// Update applies the supplied fields to an owned note, bumping updated_at.
// Missing and foreign-owned notes both yield ErrNoteNotFound.
func (s *NoteService) Update(ctx context.Context, ownerID, id string, in UpdateNoteInput) (*domain.Note, error) {
	ctx, span := s.span(ctx, "Update", ownerID)
	defer span.End()

	fields := map[string]any{}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Content != nil {
		fields["content"] = *in.Content
	}
	if in.Pinned != nil {
		fields["is_pinned"] = *in.Pinned
	}
	if in.Format != nil {
		if !domain.ValidFormat(*in.Format) {
			return nil, ErrInvalidFormat
		}
		fields["format"] = *in.Format
	}
	if in.Color != nil {
		if !domain.ValidColor(*in.Color) {
			return nil, ErrInvalidColor
		}
		fields["color"] = *in.Color
	}

	n, err := s.mutate(ctx, ownerID, id, fields)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// SoftDelete marks an owned note as trashed. Deleting an already-trashed
// note succeeds (and still bumps updated_at); a missing note yields
// ErrNoteNotFound.
func (s *NoteService) SoftDelete(ctx context.Context, ownerID, id string) error {
	ctx, span := s.span(ctx, "SoftDelete", ownerID)
	defer span.End()

	_, err := s.mutate(ctx, ownerID, id, map[string]any{"is_deleted": true})
	return err
}

// Restore clears the trashed flag on an owned note. Restoring an already
// active note succeeds; a missing note yields ErrNoteNotFound.
func (s *NoteService) Restore(ctx context.Context, ownerID, id string) error {
	ctx, span := s.span(ctx, "Restore", ownerID)
	defer span.End()

	_, err := s.mutate(ctx, ownerID, id, map[string]any{"is_deleted": false})
	return err
}

// Get returns a single owned note, serving from cache when possible. Trashed
// notes are only visible with includeDeleted.
func (s *NoteService) Get(ctx context.Context, ownerID, id string, includeDeleted bool) (*domain.Note, error) {
	ctx, span := s.span(ctx, "Get", ownerID)
	defer span.End()

	if s.Cache != nil {
		if n, ok, err := s.Cache.GetNote(ctx, ownerID, id); err != nil {
			s.degrade("get_note", err)
		} else if ok {
			if n.IsDeleted && !includeDeleted {
				return nil, ErrNoteNotFound
			}
			return n, nil
		}
	}

	var n *domain.Note
	err := s.withRetry(ctx, func() error {
		var err error
		n, err = s.Repo.GetNote(ctx, s.DB, ownerID, id)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.PutNote(ctx, ownerID, n, s.CacheTTL); err != nil {
			s.degrade("put_note", err)
		}
	}
	if n.IsDeleted && !includeDeleted {
		return nil, ErrNoteNotFound
	}
	return n, nil
}

// List returns one page of the owner's notes ordered by updated_at DESC with
// id ASC as tiebreaker. The limit is clamped to [1,100]; an offset past the
// end of the result yields an empty page, never an error.
func (s *NoteService) List(ctx context.Context, ownerID string, includeDeleted bool, limit, offset int) ([]domain.Note, error) {
	ctx, span := s.span(ctx, "List", ownerID,
		attribute.Int("limit", limit), attribute.Int("offset", offset))
	defer span.End()

	limit, offset = clampWindow(limit, offset)
	cursor := cache.ListCursor(includeDeleted, limit, offset)

	if s.Cache != nil {
		if page, ok, err := s.Cache.GetList(ctx, ownerID, cursor); err != nil {
			s.degrade("get_list", err)
		} else if ok {
			return page, nil
		}
	}

	var page []domain.Note
	err := s.withRetry(ctx, func() error {
		var err error
		page, err = s.Repo.ListNotesPage(ctx, s.DB, ownerID, includeDeleted, offset, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.PutList(ctx, ownerID, cursor, page, s.CacheTTL); err != nil {
			s.degrade("put_list", err)
		}
	}
	return page, nil
}

// Count returns the owner's note count, optionally including trashed notes.
func (s *NoteService) Count(ctx context.Context, ownerID string, includeDeleted bool) (int64, error) {
	ctx, span := s.span(ctx, "Count", ownerID)
	defer span.End()

	if s.Cache != nil {
		if n, ok, err := s.Cache.GetCount(ctx, ownerID, includeDeleted); err != nil {
			s.degrade("get_count", err)
		} else if ok {
			return n, nil
		}
	}

	var total int64
	err := s.withRetry(ctx, func() error {
		var err error
		total, err = s.Repo.CountNotes(ctx, s.DB, ownerID, includeDeleted)
		return err
	})
	if err != nil {
		return 0, err
	}

	if s.Cache != nil {
		if err := s.Cache.PutCount(ctx, ownerID, includeDeleted, total, s.CacheTTL); err != nil {
			s.degrade("put_count", err)
		}
	}
	return total, nil
}

// Search returns non-deleted notes whose title or content contains term.
// Results are never cached: search windows are too high-cardinality for the
// owner-scoped invalidation to pay off.
func (s *NoteService) Search(ctx context.Context, ownerID, term string, limit, offset int) ([]domain.Note, error) {
	ctx, span := s.span(ctx, "Search", ownerID)
	defer span.End()

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptySearch
	}
	limit, offset = clampWindow(limit, offset)

	var page []domain.Note
	err := s.withRetry(ctx, func() error {
		var err error
		page, err = s.Repo.SearchNotesPage(ctx, s.DB, ownerID, term, offset, limit)
		return err
	})
	return page, err
}

// mutate runs an owned-note column update with retry, then invalidates the
// owner's cache entries before reporting success.
func (s *NoteService) mutate(ctx context.Context, ownerID, id string, fields map[string]any) (*domain.Note, error) {
	var n *domain.Note
	err := s.withRetry(ctx, func() error {
		var err error
		n, err = s.Repo.UpdateNote(ctx, s.DB, ownerID, id, fields)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}

	// Store commit is durable at this point; drop every derived cache entry
	// before returning so no later read can observe pre-mutation state.
	s.invalidate(ctx, ownerID)
	return n, nil
}

// invalidate drops all cached state for the owner. Cache unavailability is
// logged and swallowed: TTLs bound the resulting staleness.
func (s *NoteService) invalidate(ctx context.Context, ownerID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidateOwner(ctx, ownerID); err != nil {
		log.Warn().Err(err).Str("owner_id", ownerID).Msg("cache invalidation failed; relying on TTL")
	}
}

// withRetry runs fn, retrying once after a short backoff when it fails with
// anything other than a not-found result or a cancelled context.
func (s *NoteService) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) || ctx.Err() != nil {
		return err
	}

	log.Warn().Err(err).Msg("store operation failed; retrying once")
	select {
	case <-time.After(storeRetryBackoff):
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn()
}

// degrade records a cache failure and lets the caller fall through to the
// store path.
func (s *NoteService) degrade(op string, err error) {
	log.Debug().Err(err).Str("cache_op", op).Msg("cache unavailable; degrading to store")
}

// span starts an OTel span for a NoteService method.
func (s *NoteService) span(ctx context.Context, name, ownerID string, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	tr := otel.Tracer("services/NoteService")
	attrs := append([]attribute.KeyValue{attribute.String("owner.id", ownerID)}, extra...)
	return tr.Start(ctx, name, trace.WithAttributes(attrs...))
}

// clampWindow bounds a caller-supplied pagination window.
func clampWindow(limit, offset int) (int, int) {
	if limit < minPageSize {
		limit = minPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
