package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/sessionauth/internal"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// Keys used in sessions.Session.Values. Only these two survive a round trip
// through the Redis record.
const (
	ValueUserID      = "userId"
	ValueLastRenewed = "lastRenewed"
)

// DefaultCookieName keeps cookies interchangeable with express-session deployments.
const DefaultCookieName = "connect.sid"

var errNoSessionID = errors.New("session has no id")

// GorillaStore is a sessions.Store whose cookie carries only a signed session
// id; the state lives in the Redis [Store].
type GorillaStore struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options

	records *Store
	now     func() time.Time
}

var _ sessions.Store = (*GorillaStore)(nil)

// NewGorillaStore signs cookie values with keyPairs (see securecookie.CodecsFromPairs).
// Cookies default to HttpOnly, SameSite=Strict and a max age equal to the
// record TTL.
func NewGorillaStore(records *Store, keyPairs ...[]byte) *GorillaStore {
	gs := &GorillaStore{
		Codecs: securecookie.CodecsFromPairs(keyPairs...),
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   int(records.TTL() / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		},
		records: records,
		now:     time.Now,
	}
	gs.MaxAge(gs.Options.MaxAge)
	return gs
}

// MaxAge sets the cookie and codec max age in seconds.
func (s *GorillaStore) MaxAge(age int) {
	s.Options.MaxAge = age
	for _, codec := range s.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
		}
	}
}

// Get returns the session cached in the request registry, loading it on first use.
func (s *GorillaStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie. A missing, unsigned or
// expired cookie yields a fresh session with IsNew set; signature errors are
// returned alongside it.
func (s *GorillaStore) New(r *http.Request, name string) (*sessions.Session, error) {
	sess := sessions.NewSession(s, name)
	opts := *s.Options
	sess.Options = &opts
	sess.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return sess, nil
	}

	var sessionID string
	if err := securecookie.DecodeMulti(name, c.Value, &sessionID, s.Codecs...); err != nil {
		return sess, err
	}

	rec, err := s.records.Load(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return sess, nil
		}
		return sess, err
	}

	sess.ID = sessionID
	if rec.UserID != "" {
		sess.Values[ValueUserID] = rec.UserID
	}
	if rec.LastRenewed > 0 {
		sess.Values[ValueLastRenewed] = rec.LastRenewed
	}
	sess.IsNew = false
	return sess, nil
}

// Save persists the record and writes the signed id cookie. A negative
// MaxAge destroys the record and expires the cookie.
func (s *GorillaStore) Save(r *http.Request, w http.ResponseWriter, sess *sessions.Session) error {
	ctx := r.Context()

	if sess.Options.MaxAge < 0 {
		if sess.ID != "" {
			if err := s.records.Destroy(ctx, sess.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(sess.Name(), "", sess.Options))
		return nil
	}

	if sess.ID == "" {
		sessionID, err := internal.NewSessionID()
		if err != nil {
			return err
		}
		sess.ID = sessionID
	}

	if err := s.records.Save(ctx, sess.ID, s.record(sess)); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(sess.Name(), sess.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(sess.Name(), encoded, sess.Options))
	return nil
}

func (s *GorillaStore) record(sess *sessions.Session) *Record {
	opts := sess.Options
	rec := &Record{
		Cookie: CookieMeta{
			OriginalMaxAge: int64(opts.MaxAge) * 1000,
			Secure:         opts.Secure,
			HTTPOnly:       opts.HttpOnly,
			Domain:         opts.Domain,
			Path:           opts.Path,
			SameSite:       sameSiteName(opts.SameSite),
		},
	}
	if opts.MaxAge > 0 {
		expires := s.now().Add(time.Duration(opts.MaxAge) * time.Second).UTC()
		rec.Cookie.Expires = &expires
	}
	if v, ok := sess.Values[ValueUserID].(string); ok {
		rec.UserID = v
	}
	if v, ok := sess.Values[ValueLastRenewed].(int64); ok {
		rec.LastRenewed = v
	}
	return rec
}

func sameSiteName(mode http.SameSite) string {
	switch mode {
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return ""
	}
}

// Carrier binds the named session of r to w. The session gets an id
// immediately so it can be registered before its first Save.
func (s *GorillaStore) Carrier(w http.ResponseWriter, r *http.Request, name string) (*HTTPCarrier, error) {
	sess, err := s.Get(r, name)
	if sess == nil {
		return nil, err
	}
	if sess.ID == "" {
		sessionID, idErr := internal.NewSessionID()
		if idErr != nil {
			return nil, idErr
		}
		sess.ID = sessionID
	}
	return &HTTPCarrier{store: s, sess: sess, r: r, w: w}, err
}

// HTTPCarrier is the [Carrier] over a gorilla session bound to one request.
type HTTPCarrier struct {
	store *GorillaStore
	sess  *sessions.Session
	r     *http.Request
	w     http.ResponseWriter
}

var _ Carrier = (*HTTPCarrier)(nil)

func (c *HTTPCarrier) ID() string { return c.sess.ID }

// IsNew reports whether no server-side record backed the request cookie.
func (c *HTTPCarrier) IsNew() bool { return c.sess.IsNew }

func (c *HTTPCarrier) UserID() string {
	v, _ := c.sess.Values[ValueUserID].(string)
	return v
}

func (c *HTTPCarrier) SetUserID(userID string) {
	if userID == "" {
		delete(c.sess.Values, ValueUserID)
		return
	}
	c.sess.Values[ValueUserID] = userID
}

func (c *HTTPCarrier) LastRenewed() (time.Time, bool) {
	v, ok := c.sess.Values[ValueLastRenewed].(int64)
	if !ok || v <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(v), true
}

func (c *HTTPCarrier) SetLastRenewed(t time.Time) {
	c.sess.Values[ValueLastRenewed] = t.UnixMilli()
}

func (c *HTTPCarrier) Touch(ctx context.Context) error {
	if c.sess.ID == "" {
		return errNoSessionID
	}
	return c.store.records.Touch(ctx, c.sess.ID)
}

func (c *HTTPCarrier) Destroy(ctx context.Context) error {
	for k := range c.sess.Values {
		delete(c.sess.Values, k)
	}
	c.sess.Options.MaxAge = -1
	return c.store.Save(c.r.WithContext(ctx), c.w, c.sess)
}

func (c *HTTPCarrier) Save(ctx context.Context) error {
	return c.store.Save(c.r.WithContext(ctx), c.w, c.sess)
}
