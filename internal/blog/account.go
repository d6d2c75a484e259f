package blog

import (
	"context"
	"errors"
	"log/slog"

	"blog/internal/access"
	"blog/internal/auth"
	"blog/internal/models"
)

// Register creates a user with a hashed password. The storage layer enforces
// name uniqueness, so of two concurrent registrations for one name exactly
// one succeeds and the other gets ErrConflict.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, models.Invalid(MsgPasswordTooLong)
		}
		return nil, err
	}
	u := &models.User{ID: models.NewID(), Name: username, Password: hash}
	err = s.run(ctx, nil, func(ctx context.Context, call *access.Call) error {
		return models.CreateUser(ctx, call.Tx, u)
	}, s.transaction)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateUsername) {
			return nil, models.Conflict(msgAlreadyRegistered(username))
		}
		return nil, err
	}
	s.log.InfoContext(ctx, "user registered", slog.String("user_id", u.ID.String()))
	return u, nil
}

// Login checks the credentials and binds sess to the user, all in one
// transaction. On failure the session is left untouched.
func (s *Service) Login(ctx context.Context, sess Session, username, password string) (*models.User, error) {
	var user *models.User
	err := s.run(ctx, nil, func(ctx context.Context, call *access.Call) error {
		u, err := models.GetUserByName(ctx, call.Tx, username)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.BadCredentials(MsgIncorrectUsername)
			}
			return err
		}
		if !s.hasher.Verify(password, u.Password) {
			return models.BadCredentials(MsgIncorrectPassword)
		}
		if err := sess.Start(ctx, call.Tx, u.ID); err != nil {
			return err
		}
		user = u
		return nil
	}, s.transaction)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Logout ends the session whatever state it was in.
func (s *Service) Logout(ctx context.Context, sess Session) error {
	return sess.End(ctx)
}
