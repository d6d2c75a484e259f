// Package session binds HTTP requests to users through a signed cookie.
//
// The cookie holds an HS256 token naming the user and a server-side session
// row. A request is authenticated only when the signature verifies and the
// row is neither revoked nor expired, so logging out takes effect on the
// server and not just in the browser.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"blog/internal/models"
)

type Options struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

type Manager struct {
	db     *sql.DB
	secret []byte
	ttl    time.Duration
	cookie string
	secure bool
	log    *slog.Logger
	now    func() time.Time
}

func NewManager(db *sql.DB, opts Options, log *slog.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.CookieName == "" {
		opts.CookieName = "session"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		db:     db,
		secret: []byte(opts.Secret),
		ttl:    opts.TTL,
		cookie: opts.CookieName,
		secure: opts.Secure,
		log:    log,
		now:    time.Now,
	}
}

func (m *Manager) CookieName() string { return m.cookie }

// Request is the session state of one inbound request. It is resolved once by
// Load and is not safe for concurrent use.
type Request struct {
	m         *Manager
	w         http.ResponseWriter
	sessionID uuid.UUID
	userID    uuid.UUID
}

// Load resolves the session presented on r. A missing, malformed, tampered,
// expired or revoked cookie yields an anonymous Request.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) *Request {
	req := &Request{m: m, w: w}
	c, err := r.Cookie(m.cookie)
	if err != nil || c.Value == "" {
		return req
	}
	claims, err := m.parse(c.Value)
	if err != nil {
		m.log.DebugContext(r.Context(), "session token rejected", slog.String("error", err.Error()))
		return req
	}
	sid, err := uuid.Parse(claims.ID)
	if err != nil {
		return req
	}
	// Remember the presented session even if it turns out to be dead, so
	// Start and End can revoke it.
	req.sessionID = sid
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return req
	}
	sess, err := models.GetSession(r.Context(), m.db, sid)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			m.log.ErrorContext(r.Context(), "load session", slog.String("error", err.Error()))
		}
		return req
	}
	if sess.UserID != uid || !sess.Active(m.now()) {
		return req
	}
	req.userID = uid
	return req
}

// UserID returns the authenticated user, if any.
func (s *Request) UserID() (uuid.UUID, bool) {
	return s.userID, s.userID != uuid.Nil
}

// Start discards whatever session the request carried and binds a fresh one
// to userID. db is normally the caller's transaction, so the new row and the
// revocation of the old one commit together with the rest of the login.
func (s *Request) Start(ctx context.Context, db models.DBTX, userID uuid.UUID) error {
	if err := s.clear(ctx, db); err != nil {
		return err
	}
	now := s.m.now().UTC()
	sess := &models.Session{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.m.ttl),
	}
	if err := models.CreateSession(ctx, db, sess); err != nil {
		return err
	}
	token, err := s.m.sign(sess)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.m.cookie,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.sessionID = sess.ID
	s.userID = userID
	return nil
}

// End revokes the current session and expires the cookie. Afterwards the
// request is anonymous.
func (s *Request) End(ctx context.Context) error {
	err := s.clear(ctx, s.m.db)
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.m.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return err
}

func (s *Request) clear(ctx context.Context, db models.DBTX) error {
	s.userID = uuid.Nil
	if s.sessionID == uuid.Nil {
		return nil
	}
	id := s.sessionID
	s.sessionID = uuid.Nil
	return models.RevokeSession(ctx, db, id, s.m.now().UTC())
}

func (m *Manager) sign(sess *models.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sess.UserID.String(),
		ID:        sess.ID.String(),
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
