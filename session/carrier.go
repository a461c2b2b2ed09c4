package session

import (
	"context"
	"time"
)

// Carrier is the per-request handle on the current session. The request
// layer reads and writes identity through it and persists it with Save.
type Carrier interface {
	ID() string
	UserID() string
	SetUserID(userID string)
	LastRenewed() (time.Time, bool)
	SetLastRenewed(t time.Time)
	// Touch extends the server-side lifetime without changing contents.
	Touch(ctx context.Context) error
	// Destroy removes the server-side record and expires the client cookie.
	Destroy(ctx context.Context) error
	Save(ctx context.Context) error
}
