package chat

import (
	"errors"
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	now := time.Now()
	enc := encodeCursor(now, 42)

	gotT, gotID, err := decodeCursor(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotID != 42 {
		t.Fatalf("id = %d, want 42", gotID)
	}
	if !gotT.Equal(now) {
		t.Fatalf("time = %v, want %v", gotT, now)
	}
}

func TestCursorRejectsGarbage(t *testing.T) {
	cases := []string{
		"not base64 !!!",
		"bm90IGpzb24",                      // base64 of "not json"
		"e30",                              // base64 of "{}"
		"eyJ0IjotMSwiaWQiOjB9",             // negative timestamp, zero id
	}
	for _, in := range cases {
		_, _, err := decodeCursor(in)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("decodeCursor(%q) = %v, want validation error", in, err)
		}
	}
}
