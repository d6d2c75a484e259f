// Package blog implements the blog's use cases: accounts, posts and
// comments. Every write runs in a single transaction, and every operation enforces
// authentication and ownership through the access package.
package blog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"

	"blog/internal/access"
	"blog/internal/auth"
	"blog/internal/models"
)

// Messages shown to users for expected failures.
const (
	MsgUsernameRequired    = "Username is required."
	MsgPasswordRequired    = "Password is required."
	MsgUsernameTooLong     = "Username must be at most 30 characters."
	MsgPasswordTooLong     = "Password must be at most 72 bytes."
	MsgIncorrectUsername   = "Incorrect username."
	MsgIncorrectPassword   = "Incorrect password."
	MsgTitleRequired       = "Title is required."
	MsgCommentTextRequired = "Comment text is required."
)

func msgAlreadyRegistered(name string) string {
	return fmt.Sprintf("User %s is already registered.", name)
}

// Session is the per-request session state the service reads and changes.
type Session interface {
	UserID() (uuid.UUID, bool)
	// Start binds the session to userID, writing through db.
	Start(ctx context.Context, db models.DBTX, userID uuid.UUID) error
	End(ctx context.Context) error
}

type Service struct {
	db     *sql.DB
	hasher auth.Hasher
	log    *slog.Logger
}

func New(db *sql.DB, hasher auth.Hasher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{db: db, hasher: hasher, log: log}
}

// CurrentUser resolves the user bound to sess, or nil when anonymous. A
// session naming a user that no longer exists counts as anonymous.
func (s *Service) CurrentUser(ctx context.Context, sess Session) (*models.User, error) {
	if sess == nil {
		return nil, nil
	}
	id, ok := sess.UserID()
	if !ok {
		return nil, nil
	}
	u, err := models.GetUserByID(ctx, s.db, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// run resolves the actor once and invokes op behind interceptors.
func (s *Service) run(ctx context.Context, sess Session, op access.Operation, interceptors ...access.Interceptor) error {
	actor, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return err
	}
	return access.Chain(op, interceptors...)(ctx, &access.Call{Actor: actor, Tx: s.db})
}

// transaction runs the rest of the chain in one transaction, committing only
// when it succeeds.
func (s *Service) transaction(next access.Operation) access.Operation {
	return func(ctx context.Context, call *access.Call) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		inner := *call
		inner.Tx = tx
		if err := next(ctx, &inner); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	}
}

func postByID(raw string) access.Finder[*models.Post] {
	return func(ctx context.Context, call *access.Call) (*models.Post, error) {
		id, err := models.ParseID(raw)
		if err != nil {
			return nil, err
		}
		return models.GetPost(ctx, call.Tx, id)
	}
}

func commentByID(raw string) access.Finder[*models.Comment] {
	return func(ctx context.Context, call *access.Call) (*models.Comment, error) {
		id, err := models.ParseID(raw)
		if err != nil {
			return nil, err
		}
		return models.GetComment(ctx, call.Tx, id)
	}
}

func validateCredentials(username, password string) error {
	switch {
	case username == "":
		return models.Invalid(MsgUsernameRequired)
	case password == "":
		return models.Invalid(MsgPasswordRequired)
	case utf8.RuneCountInString(username) > models.MaxUsernameLength:
		return models.Invalid(MsgUsernameTooLong)
	}
	return nil
}
