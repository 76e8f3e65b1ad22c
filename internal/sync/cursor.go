package sync

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// cursorClaims is the decoded form of a pull cursor. The token seals the
// issuing account, entity type and scope alongside the resume position,
// so a replayed or crossed cursor cannot widen what a session sees.
type cursorClaims struct {
	UserID     string    `json:"u"`
	EntityType string    `json:"e"`
	Scope      Scope     `json:"s"`
	UpdatedAt  time.Time `json:"t"`
	ID         string    `json:"i"`
}

func encodeCursor(c cursorClaims) string {
	c.UpdatedAt = c.UpdatedAt.UTC()
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(token string) (*cursorClaims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	var c cursorClaims
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	if c.UserID == "" || c.EntityType == "" || c.ID == "" {
		return nil, ErrBadCursor
	}
	return &c, nil
}
