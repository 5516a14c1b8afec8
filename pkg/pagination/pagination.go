// Package pagination implements keyset cursors over (created_at, id).
// Cursors are opaque to clients: a url-safe base64 blob they hand back
// verbatim to fetch the next page.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/handova/handova-backend/pkg/errors"
)

const (
	// DefaultLimit is the page size when the caller does not pick one.
	DefaultLimit = 25
	// MaxLimit caps how many rows any single page can request.
	MaxLimit = 100

	cursorSeparator = "|"
)

// Params holds the cursor pagination inputs a listing accepts.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the decoded keyset position.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], defaulting when unset.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer adds one row to the normalized limit so queries can
// detect whether another page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor serializes a keyset position into an opaque token.
func EncodeCursor(cursor Cursor) string {
	payload := cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a client-supplied token. An empty token means the
// first page; a malformed one is a validation error, never a server fault.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed cursor")
	}

	raw := string(decoded)
	sep := strings.LastIndex(raw, cursorSeparator)
	if sep < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed cursor")
	}

	at, err := time.Parse(time.RFC3339Nano, raw[:sep])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("bad cursor timestamp %q", raw[:sep]))
	}
	id, err := uuid.Parse(raw[sep+1:])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "bad cursor id")
	}

	return &Cursor{CreatedAt: at, ID: id}, nil
}
