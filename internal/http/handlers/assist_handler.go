// AI assist HTTP handlers.
//
// This file exposes the content-transformation endpoint:
//   - POST /assist/{kind}   (generate-title | summarize | improve-content |
//     generate-ideas | suggest-tags)
//
// The handler is transport-thin: it validates the kind and payload, delegates
// to the assist orchestrator, and reports the result together with its
// provenance (cache, primary, or fallback), so clients can surface degraded
// answers differently.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/notehaven/go-notes-backend/internal/assist"
)

// AssistService defines the AI orchestration operation consumed by HTTP
// handlers. Implementations must be safe for concurrent use.
type AssistService interface {
	// Assist runs one transformation request through cache, primary, and
	// fallback backends.
	Assist(ctx context.Context, kind assist.Kind, content string) (assist.Result, error)
}

// AssistRequest is the JSON payload for an assist call.
type AssistRequest struct {
	// Content is the note text to transform.
	Content string `json:"content" binding:"required" example:"Buy milk, eggs, bread"`
}

// AssistResponse reports the transformation result and its provenance.
type AssistResponse struct {
	Kind    string   `json:"kind" example:"suggest-tags"`
	Text    string   `json:"text,omitempty"`
	Items   []string `json:"items,omitempty"`
	Source  string   `json:"source" example:"fallback"`
	Success bool     `json:"success"`
}

// Assist godoc
// @ID          assist
// @Summary     Run an AI content transformation
// @Description Transforms note content. Falls back to a deterministic local backend when the
// @Description primary inference provider is slow, rate-limited, or unavailable; the `source`
// @Description field reports which backend produced the result.
// @Tags        Assist
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       kind       path    string  true  "Operation kind"  Enums(generate-title, summarize, improve-content, generate-ideas, suggest-tags)
// @Param       body       body    handlers.AssistRequest  true  "Content to transform"
//
// @Success     200  {object} handlers.AssistResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     503  {object} handlers.ErrorResponse "Assist unavailable"
// @Router      /assist/{kind} [post]
func (h *Handlers) Assist(c *gin.Context) {
	kind, err := assist.ParseKind(c.Param("kind"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown assist kind")
		return
	}

	var req AssistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	if utf8.RuneCountInString(req.Content) > maxContentRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxContentRunes))
		return
	}

	res, err := h.assistSvc.Assist(c.Request.Context(), kind, req.Content)
	if err != nil {
		if errors.Is(err, assist.ErrUnavailable) {
			fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "assist temporarily unavailable")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeAssistFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, AssistResponse{
		Kind:    string(res.Kind),
		Text:    res.Text,
		Items:   res.Items,
		Source:  res.Source,
		Success: res.Success,
	})
}
