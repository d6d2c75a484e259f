package blog

import (
	"context"
	"log/slog"

	"blog/internal/access"
	"blog/internal/models"
)

// ListPosts returns all posts, newest first, each with its author.
func (s *Service) ListPosts(ctx context.Context) ([]models.Post, error) {
	return models.ListPosts(ctx, s.db)
}

// ViewPost returns one post with its author and comments. Anyone may read.
// It runs outside a transaction so readers never take the write lock.
func (s *Service) ViewPost(ctx context.Context, rawID string) (*models.Post, error) {
	var post *models.Post
	err := s.run(ctx, nil, func(ctx context.Context, call *access.Call) error {
		p, err := access.Resolve(ctx, call, postByID(rawID), false)
		if err != nil {
			return err
		}
		p.Comments, err = models.ListComments(ctx, call.Tx, p.ID)
		if err != nil {
			return err
		}
		post = p
		return nil
	})
	return post, err
}

func (s *Service) CreatePost(ctx context.Context, sess Session, title, body string) (*models.Post, error) {
	var post *models.Post
	err := s.run(ctx, sess, func(ctx context.Context, call *access.Call) error {
		if title == "" {
			return models.Invalid(MsgTitleRequired)
		}
		p := &models.Post{AuthorID: call.Actor.ID, Author: call.Actor, Title: title, Body: body}
		if err := models.CreatePost(ctx, call.Tx, p); err != nil {
			return err
		}
		post = p
		return nil
	}, access.Authenticate, s.transaction)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "post created",
		slog.String("post_id", post.ID.String()),
		slog.String("author_id", post.AuthorID.String()))
	return post, nil
}

// UpdatePost replaces the title and body of a post owned by the caller.
func (s *Service) UpdatePost(ctx context.Context, sess Session, rawID, title, body string) (*models.Post, error) {
	var post *models.Post
	err := s.run(ctx, sess, func(ctx context.Context, call *access.Call) error {
		if title == "" {
			return models.Invalid(MsgTitleRequired)
		}
		post.Title = title
		post.Body = body
		return models.UpdatePost(ctx, call.Tx, post)
	},
		access.Authenticate,
		s.transaction,
		access.Authorize(postByID(rawID), func(p *models.Post) { post = p }),
	)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "post updated", slog.String("post_id", post.ID.String()))
	return post, nil
}

// DeletePost removes a post owned by the caller together with its comments.
func (s *Service) DeletePost(ctx context.Context, sess Session, rawID string) error {
	var post *models.Post
	err := s.run(ctx, sess, func(ctx context.Context, call *access.Call) error {
		return models.DeletePost(ctx, call.Tx, post.ID)
	},
		access.Authenticate,
		s.transaction,
		access.Authorize(postByID(rawID), func(p *models.Post) { post = p }),
	)
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "post deleted", slog.String("post_id", post.ID.String()))
	return nil
}
