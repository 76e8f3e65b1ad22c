package sync

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	in := cursorClaims{
		UserID:     userA,
		EntityType: "work_orders",
		Scope:      ScopeAssigned,
		UpdatedAt:  time.Date(2025, 11, 3, 10, 15, 42, 123456000, time.UTC),
		ID:         entID(1),
	}
	token := encodeCursor(in)

	if strings.ContainsAny(token, "+/=") {
		t.Errorf("token %q is not URL-safe", token)
	}

	out, err := decodeCursor(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.UserID != in.UserID || out.EntityType != in.EntityType || out.Scope != in.Scope || out.ID != in.ID {
		t.Errorf("round trip mutated claims: %+v", out)
	}
	if !out.UpdatedAt.Equal(in.UpdatedAt) {
		t.Errorf("round trip lost precision: %v != %v", out.UpdatedAt, in.UpdatedAt)
	}
}

func TestCursorNormalizesToUTC(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	in := cursorClaims{
		UserID:     userA,
		EntityType: "clients",
		Scope:      ScopeAll,
		UpdatedAt:  time.Date(2025, 11, 3, 11, 0, 0, 0, berlin),
		ID:         entID(2),
	}
	out, err := decodeCursor(encodeCursor(in))
	if err != nil {
		t.Fatal(err)
	}
	if !out.UpdatedAt.Equal(in.UpdatedAt) {
		t.Errorf("instant changed: %v != %v", out.UpdatedAt, in.UpdatedAt)
	}
	if zone, _ := out.UpdatedAt.Zone(); zone != "UTC" {
		t.Errorf("decoded zone = %s, want UTC", zone)
	}
}

func TestCursorRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"not base64":      "%%%",
		"not json":        base64.RawURLEncoding.EncodeToString([]byte("hello")),
		"missing claims":  base64.RawURLEncoding.EncodeToString([]byte(`{"s":"all"}`)),
		"empty JSON body": base64.RawURLEncoding.EncodeToString([]byte(`{}`)),
	}
	for name, token := range cases {
		if _, err := decodeCursor(token); !errors.Is(err, ErrBadCursor) {
			t.Errorf("%s: err = %v, want ErrBadCursor", name, err)
		}
	}
}
