package session

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrRecordCorrupt is returned when a stored record cannot be decoded.
var ErrRecordCorrupt = errors.New("session record corrupt")

// CookieMeta mirrors the cookie attributes stored alongside a session.
// OriginalMaxAge is in milliseconds.
type CookieMeta struct {
	OriginalMaxAge int64      `json:"originalMaxAge"`
	Expires        *time.Time `json:"expires,omitempty"`
	Secure         bool       `json:"secure"`
	HTTPOnly       bool       `json:"httpOnly"`
	Domain         string     `json:"domain,omitempty"`
	Path           string     `json:"path"`
	SameSite       string     `json:"sameSite,omitempty"`
}

// Record is the server-side state of one session.
type Record struct {
	Cookie      CookieMeta `json:"cookie"`
	UserID      string     `json:"userId,omitempty"`
	LastRenewed int64      `json:"lastRenewed,omitempty"`
}

// LastRenewedAt converts the epoch-millisecond stamp. The bool is false
// when the session was never stamped.
func (r *Record) LastRenewedAt() (time.Time, bool) {
	if r == nil || r.LastRenewed <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(r.LastRenewed), true
}

func (r *Record) SetLastRenewed(t time.Time) {
	r.LastRenewed = t.UnixMilli()
}

// Encode returns the JSON form written to Redis.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil session record")
	}
	return json.Marshal(r)
}

// Decode parses a stored record. Unknown fields written by other stores are
// ignored.
func Decode(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, ErrRecordCorrupt
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, ErrRecordCorrupt
	}
	return &r, nil
}
