package blog

import (
	"context"
	"log/slog"

	"blog/internal/access"
	"blog/internal/models"
)

// CommentResult is the outcome of AddComment. Empty text is not an error:
// Comment stays nil and Warning says why.
type CommentResult struct {
	Comment *models.Comment
	Warning string
}

// AddComment lets any logged-in user comment on any existing post.
func (s *Service) AddComment(ctx context.Context, sess Session, rawPostID, text string) (*CommentResult, error) {
	res := &CommentResult{}
	err := s.run(ctx, sess, func(ctx context.Context, call *access.Call) error {
		post, err := access.Resolve(ctx, call, postByID(rawPostID), false)
		if err != nil {
			return err
		}
		if text == "" {
			res.Warning = MsgCommentTextRequired
			return nil
		}
		c := &models.Comment{ParentPostID: post.ID, AuthorID: call.Actor.ID, Author: call.Actor, Text: text}
		if err := models.CreateComment(ctx, call.Tx, c); err != nil {
			return err
		}
		res.Comment = c
		return nil
	}, access.Authenticate, s.transaction)
	if err != nil {
		return nil, err
	}
	if res.Comment != nil {
		s.log.InfoContext(ctx, "comment added",
			slog.String("comment_id", res.Comment.ID.String()),
			slog.String("post_id", res.Comment.ParentPostID.String()))
	}
	return res, nil
}

// EditComment replaces the text of a comment owned by the caller. A missing
// comment is ErrNotFound and someone else's is ErrForbidden.
func (s *Service) EditComment(ctx context.Context, sess Session, rawID, text string) (*models.Comment, error) {
	var comment *models.Comment
	err := s.run(ctx, sess, func(ctx context.Context, call *access.Call) error {
		if text == "" {
			return models.Invalid(MsgCommentTextRequired)
		}
		comment.Text = text
		return models.UpdateComment(ctx, call.Tx, comment)
	},
		access.Authenticate,
		s.transaction,
		access.Authorize(commentByID(rawID), func(c *models.Comment) { comment = c }),
	)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "comment edited", slog.String("comment_id", comment.ID.String()))
	return comment, nil
}
