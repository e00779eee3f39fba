// Package posts persists users and generated blog posts.
package posts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/speakpost/internal/models"
)

// RecentLimit is how many prior posts are used as a style reference.
const RecentLimit = 3

var ErrNotFound = errors.New("post not found")

// Repository is the persistence contract used by the pipeline and handlers.
type Repository interface {
	SavePost(ctx context.Context, userID, title, content string) (uuid.UUID, error)
	RecentPosts(ctx context.Context, userID string, limit int) ([]string, error)
	UpsertUser(ctx context.Context, userID, fullName, email string) error
	GetPost(ctx context.Context, userID string, id uuid.UUID) (*models.Post, error)
	ListPosts(ctx context.Context, userID string, limit, offset int) ([]models.PostSummary, error)
	UpdatePostContent(ctx context.Context, userID string, id uuid.UUID, content string) error
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) SavePost(ctx context.Context, userID, title, content string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.Exec(ctx,
		`INSERT INTO posts (id, user_id, title, content) VALUES ($1, $2, $3, $4)`,
		id, userID, title, content,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert post: %w", err)
	}
	return id, nil
}

// RecentPosts returns the content of the user's newest posts, newest first.
func (s *Store) RecentPosts(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = RecentLimit
	}

	rows, err := s.db.Query(ctx,
		`SELECT content FROM posts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent posts: %w", err)
	}

	contents, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan recent posts: %w", err)
	}
	return contents, nil
}

// UpsertUser updates the user's profile when a row matches either the user
// id or the email, and inserts one otherwise.
func (s *Store) UpsertUser(ctx context.Context, userID, fullName, email string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin user upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1 OR email = $2)`,
		userID, email,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}

	if exists {
		_, err = tx.Exec(ctx,
			`UPDATE users SET full_name = $2, email = $3 WHERE user_id = $1`,
			userID, fullName, email,
		)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
	} else {
		_, err = tx.Exec(ctx,
			`INSERT INTO users (user_id, full_name, email) VALUES ($1, $2, $3)`,
			userID, fullName, email,
		)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit user upsert: %w", err)
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, userID string, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, title, content, created_at, updated_at
		 FROM posts WHERE user_id = $1 AND id = $2`,
		userID, id,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

func (s *Store) ListPosts(ctx context.Context, userID string, limit, offset int) ([]models.PostSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, title, created_at FROM posts
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	list, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.PostSummary])
	if err != nil {
		return nil, fmt.Errorf("scan posts: %w", err)
	}
	return list, nil
}

func (s *Store) UpdatePostContent(ctx context.Context, userID string, id uuid.UUID, content string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE posts SET content = $3, updated_at = now() WHERE user_id = $1 AND id = $2`,
		userID, id, content,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
