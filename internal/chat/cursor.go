package chat

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursors are opaque to clients. The payload is the last-seen sort key of the
// keyset: a timestamp plus the tie-breaking row ID.
type cursorPayload struct {
	T  int64  `json:"t"` // unix nanoseconds
	ID uint64 `json:"id"`
}

func encodeCursor(t time.Time, id uint64) string {
	b, _ := json.Marshal(cursorPayload{T: t.UnixNano(), ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

// decodeCursor rejects anything it did not produce; a stale or hand-built
// cursor is a validation failure, not a silent empty page.
func decodeCursor(s string) (time.Time, uint64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return time.Time{}, 0, invalid("cursor", "malformed cursor")
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return time.Time{}, 0, invalid("cursor", "malformed cursor")
	}
	if p.T <= 0 || p.ID == 0 {
		return time.Time{}, 0, invalid("cursor", "malformed cursor")
	}
	return time.Unix(0, p.T), p.ID, nil
}
