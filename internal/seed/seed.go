// Package seed loads demonstration data.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"blog/internal/auth"
	"blog/internal/db"
	"blog/internal/models"
)

type fixtureUser struct {
	name, password string
}

type fixturePost struct {
	author, title, body string
}

type fixtureComment struct {
	post, author, text string
}

var (
	users = []fixtureUser{
		{"admin", "password"},
		{"beta_tester", "other_password"},
	}
	posts = []fixturePost{
		{"admin", "Test Post", "A full body of text to test"},
		{"beta_tester", "Automation is good", "Hello fellow humans."},
	}
	comments = []fixtureComment{
		{"Test Post", "admin", "Ooo, I do love more content."},
		{"Test Post", "beta_tester", "Content or riot!"},
	}
)

// Seed wipes the store and fills it with a fixed set of users, posts and
// comments.
func Seed(ctx context.Context, conn *sql.DB) error {
	return SeedWith(ctx, conn, auth.DefaultHasher)
}

func SeedWith(ctx context.Context, conn *sql.DB, hasher auth.Hasher) error {
	if err := db.Reset(conn); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	byName := map[string]*models.User{}
	for _, fu := range users {
		hash, err := hasher.Hash(fu.password)
		if err != nil {
			return err
		}
		u := &models.User{Name: fu.name, Password: hash}
		if err := models.CreateUser(ctx, tx, u); err != nil {
			return err
		}
		byName[fu.name] = u
	}

	// Spread creation times so listing order is stable.
	created := time.Now().UTC().Add(-time.Hour)
	byTitle := map[string]*models.Post{}
	for _, fp := range posts {
		created = created.Add(time.Minute)
		p := &models.Post{AuthorID: byName[fp.author].ID, Created: created, Title: fp.title, Body: fp.body}
		if err := models.CreatePost(ctx, tx, p); err != nil {
			return err
		}
		byTitle[fp.title] = p
	}

	for _, fc := range comments {
		created = created.Add(time.Minute)
		c := &models.Comment{
			ParentPostID: byTitle[fc.post].ID,
			AuthorID:     byName[fc.author].ID,
			Created:      created,
			Text:         fc.text,
		}
		if err := models.CreateComment(ctx, tx, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}
