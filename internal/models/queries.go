package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every query below can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("get %s %v: %w", what, id, err)
}

// expectOne turns a zero-row UPDATE or DELETE into ErrNotFound.
func expectOne(res sql.Result, what string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return nil
}

func CreateUser(ctx context.Context, db DBTX, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = NewID()
	}
	_, err := db.ExecContext(ctx, `INSERT INTO users (id, name, password) VALUES (?, ?, ?)`, u.ID, u.Name, u.Password)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func GetUserByName(ctx context.Context, db DBTX, name string) (*User, error) {
	var u User
	err := db.QueryRowContext(ctx, `SELECT id, name, password FROM users WHERE name = ?`, name).
		Scan(&u.ID, &u.Name, &u.Password)
	if err != nil {
		return nil, notFound(err, "user", name)
	}
	return &u, nil
}

func GetUserByID(ctx context.Context, db DBTX, id uuid.UUID) (*User, error) {
	var u User
	err := db.QueryRowContext(ctx, `SELECT id, name, password FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Password)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

func CountUsers(ctx context.Context, db DBTX) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func CreateSession(ctx context.Context, db DBTX, s *Session) error {
	_, err := db.ExecContext(ctx, `INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func GetSession(ctx context.Context, db DBTX, id uuid.UUID) (*Session, error) {
	var s Session
	var revoked sql.NullTime
	err := db.QueryRowContext(ctx, `SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &revoked)
	if err != nil {
		return nil, notFound(err, "session", id)
	}
	if revoked.Valid {
		s.RevokedAt = &revoked.Time
	}
	return &s, nil
}

// RevokeSession is a no-op for unknown or already revoked sessions.
func RevokeSession(ctx context.Context, db DBTX, id uuid.UUID, at time.Time) error {
	_, err := db.ExecContext(ctx, `UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func CreatePost(ctx context.Context, db DBTX, p *Post) error {
	if p.ID == uuid.Nil {
		p.ID = NewID()
	}
	if p.Created.IsZero() {
		p.Created = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `INSERT INTO posts (id, author_id, created, title, body) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.AuthorID, p.Created, p.Title, p.Body)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

const postColumns = `p.id, p.author_id, p.created, p.title, p.body, u.id, u.name`

func scanPost(row interface{ Scan(...any) error }) (*Post, error) {
	var p Post
	var author User
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Created, &p.Title, &p.Body, &author.ID, &author.Name); err != nil {
		return nil, err
	}
	p.Author = &author
	return &p, nil
}

// ListPosts returns every post, newest first, with its author resolved.
func ListPosts(ctx context.Context, db DBTX) ([]Post, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created DESC, p.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()
	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func GetPost(ctx context.Context, db DBTX, id uuid.UUID) (*Post, error) {
	row := db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = ?`, id)
	p, err := scanPost(row)
	if err != nil {
		return nil, notFound(err, "post", id)
	}
	return p, nil
}

func CountPosts(ctx context.Context, db DBTX) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

func UpdatePost(ctx context.Context, db DBTX, p *Post) error {
	res, err := db.ExecContext(ctx, `UPDATE posts SET title = ?, body = ? WHERE id = ?`, p.Title, p.Body, p.ID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return expectOne(res, "post", p.ID)
}

// DeletePost removes the post; its comments go with it (ON DELETE CASCADE).
func DeletePost(ctx context.Context, db DBTX, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectOne(res, "post", id)
}

func CreateComment(ctx context.Context, db DBTX, c *Comment) error {
	if c.ID == uuid.Nil {
		c.ID = NewID()
	}
	if c.Created.IsZero() {
		c.Created = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `INSERT INTO comments (id, parent_post_id, author_id, created, text) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ParentPostID, c.AuthorID, c.Created, c.Text)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

const commentColumns = `c.id, c.parent_post_id, c.author_id, c.created, c.text, u.id, u.name`

func scanComment(row interface{ Scan(...any) error }) (*Comment, error) {
	var c Comment
	var author User
	if err := row.Scan(&c.ID, &c.ParentPostID, &c.AuthorID, &c.Created, &c.Text, &author.ID, &author.Name); err != nil {
		return nil, err
	}
	c.Author = &author
	return &c, nil
}

func GetComment(ctx context.Context, db DBTX, id uuid.UUID) (*Comment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = ?`, id)
	c, err := scanComment(row)
	if err != nil {
		return nil, notFound(err, "comment", id)
	}
	return c, nil
}

// ListComments returns the comments of one post, oldest first.
func ListComments(ctx context.Context, db DBTX, postID uuid.UUID) ([]Comment, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+commentColumns+` FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.parent_post_id = ?
		ORDER BY c.created, c.rowid`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	var cs []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		cs = append(cs, *c)
	}
	return cs, rows.Err()
}

func CountComments(ctx context.Context, db DBTX) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n)
	return n, err
}

func UpdateComment(ctx context.Context, db DBTX, c *Comment) error {
	res, err := db.ExecContext(ctx, `UPDATE comments SET text = ? WHERE id = ?`, c.Text, c.ID)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return expectOne(res, "comment", c.ID)
}
