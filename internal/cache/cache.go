// Package cache provides the caching capability that sits in front of the
// note store and the assist orchestrator. The Store interface is an injected
// dependency (no package-level singleton): the service layer receives a
// handle at construction time and treats every cache failure as a miss.
//
// Key families (single flat namespace, one builder per family so keys never
// drift across call sites):
//
//	note:<owner>:<id>                 single note
//	notes:<owner>:<cursor>            one page of a listing
//	notes_count:<owner>:<deleted>     count per include-deleted flag
//	ai:<fingerprint>                  memoized assist result
//
// The cache never holds the authoritative copy of anything; entries carry a
// TTL as a safety bound against invalidations lost to a crash between the
// store write and InvalidateOwner. Writers always invalidate, never update
// in place.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/notehaven/go-notes-backend/internal/domain"
)

// Store is the cache capability consumed by NoteService and the assist
// orchestrator. A miss is reported as ok=false with a nil error;
// infrastructure failures are reported as errors and callers must degrade to
// direct store reads.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// GetNote returns the cached note for (owner, id), if present.
	GetNote(ctx context.Context, owner, id string) (*domain.Note, bool, error)
	// PutNote caches one note under its (owner, id) key.
	PutNote(ctx context.Context, owner string, note *domain.Note, ttl time.Duration) error

	// GetList returns a cached listing page for (owner, cursor), if present.
	GetList(ctx context.Context, owner, cursor string) ([]domain.Note, bool, error)
	// PutList caches one listing page.
	PutList(ctx context.Context, owner, cursor string, notes []domain.Note, ttl time.Duration) error

	// GetCount returns the cached note count for (owner, includeDeleted).
	GetCount(ctx context.Context, owner string, includeDeleted bool) (int64, bool, error)
	// PutCount caches a note count.
	PutCount(ctx context.Context, owner string, includeDeleted bool, n int64, ttl time.Duration) error

	// InvalidateOwner removes every note, listing, and count entry that was
	// derived from the owner's partition. Over-invalidation is always safe;
	// under-invalidation is not, so this is deliberately coarse.
	InvalidateOwner(ctx context.Context, owner string) error

	// GetAIResult returns a memoized assist payload by fingerprint.
	GetAIResult(ctx context.Context, fingerprint string) ([]byte, bool, error)
	// PutAIResult memoizes an assist payload by fingerprint.
	PutAIResult(ctx context.Context, fingerprint string, payload []byte, ttl time.Duration) error
}

// ListCursor encodes the list-query shape into a stable cursor string used as
// the page key. Two queries with the same flags and window share one entry.
func ListCursor(includeDeleted bool, limit, offset int) string {
	return "deleted:" + strconv.FormatBool(includeDeleted) +
		":limit:" + strconv.Itoa(limit) +
		":offset:" + strconv.Itoa(offset)
}

func noteKey(owner, id string) string { return "note:" + owner + ":" + id }

func listKey(owner, cursor string) string { return "notes:" + owner + ":" + cursor }

func countKey(owner string, includeDeleted bool) string {
	return "notes_count:" + owner + ":" + strconv.FormatBool(includeDeleted)
}

func aiKey(fingerprint string) string { return "ai:" + fingerprint }

// ownerPrefixes lists the key prefixes InvalidateOwner clears. The ai: family
// is keyed by content fingerprint, not owner, and is intentionally excluded:
// assist results are pure functions of their input.
func ownerPrefixes(owner string) []string {
	return []string{
		"note:" + owner + ":",
		"notes:" + owner + ":",
		"notes_count:" + owner + ":",
	}
}
