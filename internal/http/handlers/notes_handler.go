// Note HTTP handlers.
//
// This file exposes REST endpoints for note resources:
//   - POST   /notes               (create, idempotency-aware)
//   - GET    /notes               (list, paginated, ETag support)
//   - GET    /notes/count         (count)
//   - GET    /notes/search        (substring search)
//   - GET    /notes/{id}          (fetch one)
//   - PUT    /notes/{id}          (partial update)
//   - DELETE /notes/{id}          (soft delete)
//   - POST   /notes/{id}/restore  (undo soft delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// create exists for (user, key), the handler returns the recorded note and
// sets `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notehaven/go-notes-backend/internal/domain"
	"github.com/notehaven/go-notes-backend/internal/repo"
	"github.com/notehaven/go-notes-backend/internal/services"
	"github.com/notehaven/go-notes-backend/internal/utils"
)

// maxContentRunes caps note bodies at the edge before the service runs.
const maxContentRunes = 20000

//
// Service contracts (context-aware)
//

// NoteService defines note lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type NoteService interface {
	// Create persists a new note for the owner.
	Create(ctx context.Context, ownerID string, in services.CreateNoteInput) (*domain.Note, error)
	// Update applies a partial update to an owned note.
	Update(ctx context.Context, ownerID, id string, in services.UpdateNoteInput) (*domain.Note, error)
	// SoftDelete moves an owned note to the trash.
	SoftDelete(ctx context.Context, ownerID, id string) error
	// Restore brings a trashed note back.
	Restore(ctx context.Context, ownerID, id string) error
	// Get fetches a single owned note.
	Get(ctx context.Context, ownerID, id string, includeDeleted bool) (*domain.Note, error)
	// List returns one page of the owner's notes.
	List(ctx context.Context, ownerID string, includeDeleted bool, limit, offset int) ([]domain.Note, error)
	// Count returns the owner's note count.
	Count(ctx context.Context, ownerID string, includeDeleted bool) (int64, error)
	// Search returns non-deleted notes matching term.
	Search(ctx context.Context, ownerID, term string, limit, offset int) ([]domain.Note, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for notes and AI assistance. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	noteSvc   NoteService
	assistSvc AssistService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(noteSvc NoteService, assistSvc AssistService) *Handlers {
	return &Handlers{noteSvc: noteSvc, assistSvc: assistSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateNoteRequest is the JSON payload for creating a note.
type CreateNoteRequest struct {
	// Title optionally names the note; it may be empty when Content is set.
	Title string `json:"title" example:"Groceries"`
	// Content is the note body; it may be empty when Title is set.
	Content string `json:"content" example:"milk, eggs, bread"`
	// Format selects the body format: text (default) or rich.
	Format string `json:"format" example:"text"`
	// Color selects the display color: primary (default), secondary, tertiary.
	Color string `json:"color" example:"primary"`
	// Pinned marks the note as pinned.
	Pinned bool `json:"pinned"`
}

// UpdateNoteRequest is the JSON payload for a partial note update. Absent
// fields leave the stored value untouched.
type UpdateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Pinned  *bool   `json:"pinned"`
	Format  *string `json:"format"`
	Color   *string `json:"color"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// ListNotesResponse wraps a page of notes and pagination information.
type ListNotesResponse struct {
	Notes      []domain.Note `json:"notes"`
	Pagination Pagination    `json:"pagination"`
}

// CountNotesResponse carries the owner's note count.
type CountNotesResponse struct {
	Count int64 `json:"count"`
}

//
// Helpers
//

// clampWindow parses and bounds limit and offset query params to sane
// defaults and limits, returning (limit, offset).
func clampWindow(c *gin.Context) (limit, offset int) {
	const (
		defaultLimit = 20
		maxLimit     = 100
	)
	limit = utils.AtoiDefault(c.Query("limit"), defaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = utils.AtoiDefault(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	return
}

// includeDeleted reads the include_deleted query flag.
func includeDeleted(c *gin.Context) bool {
	switch strings.ToLower(c.Query("include_deleted")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// handlerDB surfaces the concrete service's DB handle for best-effort
// transport concerns (ETags, idempotency records).
func (h *Handlers) handlerDB() *gorm.DB {
	if svc, ok := h.noteSvc.(*services.NoteService); ok {
		return svc.DB
	}
	return nil
}

// idempotencyKey reads the Idempotency-Key header, normalized.
func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("Idempotency-Key"))
}

//
// Handlers
//

// CreateNote godoc
// @ID          createNote
// @Summary     Create a note
// @Description Creates a note for the current user and returns the stored resource.
// @Description Supports idempotency via the Idempotency-Key header (same key → same note).
// @Tags        Notes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    handlers.CreateNoteRequest  true  "Create note payload"
//
// @Success     201  {object}  domain.Note
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notes [post]
func (h *Handlers) CreateNote(c *gin.Context) {
	ctx := c.Request.Context()
	owner := userID(c)

	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if utf8.RuneCountInString(req.Content) > maxContentRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxContentRunes))
		return
	}

	// Idempotency (replay path) – return the previously created note.
	idemKey := idempotencyKey(c)
	if idemKey != "" {
		if db := h.handlerDB(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, owner, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := h.noteSvc.Get(ctx, owner, rec.NoteID, true); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusCreated, prev)
					return
				}
			}
		}
	}

	n, err := h.noteSvc.Create(ctx, owner, services.CreateNoteInput{
		Title:   req.Title,
		Content: req.Content,
		Format:  req.Format,
		Color:   req.Color,
		Pinned:  req.Pinned,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyNote):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title or content required")
		case errors.Is(err, services.ErrInvalidFormat), errors.Is(err, services.ErrInvalidColor):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if db := h.handlerDB(); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, owner, idemKey, n.ID, http.StatusCreated, 24*time.Hour)
		}
	}

	ok(c, http.StatusCreated, n)
}

// ListNotes godoc
// @ID          listNotes
// @Summary     List notes (paginated)
// @Description Returns a page of the user's notes ordered by recency. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Notes
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"        example(user123)
// @Param       If-None-Match    header  string  false "Return 304 if ETag matches"
// @Param       limit            query   int     false "Page size"                    minimum(1) maximum(100) default(20)
// @Param       offset           query   int     false "Items to skip"                minimum(0) default(0)
// @Param       include_deleted  query   bool    false "Include trashed notes"        default(false)
//
// @Success     200  {object} handlers.ListNotesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes [get]
func (h *Handlers) ListNotes(c *gin.Context) {
	ctx := c.Request.Context()
	owner := userID(c)
	limit, offset := clampWindow(c)
	withDeleted := includeDeleted(c)

	// ETag pre-check (best effort).
	if db := h.handlerDB(); db != nil {
		count, maxTS, err := repo.NotesStats(ctx, db, owner)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"notes:%s:%d:%d"`, owner, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.noteSvc.List(ctx, owner, withDeleted, limit, offset)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	total, err := h.noteSvc.Count(ctx, owner, withDeleted)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListNotesResponse{
		Notes: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			Total:   total,
			HasMore: int64(offset+len(items)) < total,
		},
	})
}

// CountNotes godoc
// @ID          countNotes
// @Summary     Count notes
// @Tags        Notes
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       include_deleted  query   bool    false "Include trashed notes"  default(false)
//
// @Success     200  {object} handlers.CountNotesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes/count [get]
func (h *Handlers) CountNotes(c *gin.Context) {
	total, err := h.noteSvc.Count(c.Request.Context(), userID(c), includeDeleted(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, CountNotesResponse{Count: total})
}

// SearchNotes godoc
// @ID          searchNotes
// @Summary     Search notes
// @Description Returns non-deleted notes whose title or content contains the query term.
// @Tags        Notes
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       q          query   string  true  "Search term"
// @Param       limit      query   int     false "Page size"   minimum(1) maximum(100) default(20)
// @Param       offset     query   int     false "Items to skip" minimum(0) default(0)
//
// @Success     200  {object} handlers.ListNotesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes/search [get]
func (h *Handlers) SearchNotes(c *gin.Context) {
	ctx := c.Request.Context()
	owner := userID(c)
	limit, offset := clampWindow(c)

	items, err := h.noteSvc.Search(ctx, owner, c.Query("q"), limit, offset)
	if err != nil {
		if errors.Is(err, services.ErrEmptySearch) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query term required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListNotesResponse{
		Notes: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			Total:   int64(len(items)),
			HasMore: len(items) == limit,
		},
	})
}

// GetNote godoc
// @ID          getNote
// @Summary     Fetch a note
// @Tags        Notes
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       id               path    string  true  "Note ID (UUID)"         format(uuid)
// @Param       include_deleted  query   bool    false "Allow trashed notes"    default(false)
//
// @Success     200  {object} domain.Note
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Note not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes/{id} [get]
func (h *Handlers) GetNote(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "note id must be a UUID")
		return
	}

	n, err := h.noteSvc.Get(c.Request.Context(), userID(c), id, includeDeleted(c))
	if err != nil {
		if errors.Is(err, services.ErrNoteNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "note not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, n)
}

// UpdateNote godoc
// @ID          updateNote
// @Summary     Update a note
// @Description Applies a partial update to a note owned by the current user.
// @Tags        Notes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Note ID (UUID)"         format(uuid)
// @Param       body       body    handlers.UpdateNoteRequest  true  "Fields to update"
//
// @Success     200  {object} domain.Note
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Note not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes/{id} [put]
func (h *Handlers) UpdateNote(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "note id must be a UUID")
		return
	}

	var req UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Content != nil && utf8.RuneCountInString(*req.Content) > maxContentRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxContentRunes))
		return
	}

	n, err := h.noteSvc.Update(c.Request.Context(), userID(c), id, services.UpdateNoteInput{
		Title:   req.Title,
		Content: req.Content,
		Pinned:  req.Pinned,
		Format:  req.Format,
		Color:   req.Color,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoteNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "note not found")
		case errors.Is(err, services.ErrInvalidFormat), errors.Is(err, services.ErrInvalidColor):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, n)
}

// DeleteNote godoc
// @ID          deleteNote
// @Summary     Move a note to the trash
// @Tags        Notes
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Note ID (UUID)"         format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Note not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes/{id} [delete]
func (h *Handlers) DeleteNote(c *gin.Context) {
	h.noteLifecycle(c, h.noteSvc.SoftDelete)
}

// RestoreNote godoc
// @ID          restoreNote
// @Summary     Restore a trashed note
// @Tags        Notes
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Note ID (UUID)"         format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Note not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes/{id}/restore [post]
func (h *Handlers) RestoreNote(c *gin.Context) {
	h.noteLifecycle(c, h.noteSvc.Restore)
}

// noteLifecycle shares the delete/restore plumbing: both take an owned note
// id and return no body.
func (h *Handlers) noteLifecycle(c *gin.Context, op func(ctx context.Context, ownerID, id string) error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "note id must be a UUID")
		return
	}

	if err := op(c.Request.Context(), userID(c), id); err != nil {
		if errors.Is(err, services.ErrNoteNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "note not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		return
	}
	noContent(c)
}
