package storage

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Cursor is the decoded form of the opaque keyset pagination token:
// the (created_at, id) pair of the last row on the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// EncodeCursor produces the opaque token handed to callers. The token
// round-trips exactly through DecodeCursor.
func EncodeCursor(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token
// decodes to the zero cursor (start from the beginning).
func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return Cursor{}, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}

	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: malformed cursor timestamp", ErrInvalidInput)
	}

	return Cursor{CreatedAt: ts, ID: parts[1]}, nil
}
