// Package microposts provides a PostgreSQL-backed repository for microposts,
// including the feed query that unions a user's own posts with those of
// followed users.
package microposts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"microblog/internal/common"
	"microblog/internal/dbx"
	"microblog/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a post and returns it with the server-assigned id and
// timestamp.
func (r *PostgresRepository) Create(ctx context.Context, post *models.Micropost) (*models.Micropost, error) {
	query := `
		INSERT INTO microposts (user_id, content)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, post.UserID, post.Content).
		Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return post, nil
}

// GetByID returns the post with the given id, or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Micropost, error) {
	query := `
		SELECT id, user_id, content, created_at
		FROM microposts
		WHERE id = $1
	`
	post := &models.Micropost{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&post.ID, &post.UserID, &post.Content, &post.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return post, nil
}

// Delete removes a post by id. Deleting a missing post is a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM microposts
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByUser removes every post owned by userID. Used by the user cascade
// delete inside its transaction.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	query := `
		DELETE FROM microposts
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByUser returns userID's posts, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Micropost, error) {
	query := `
		SELECT id, user_id, content, created_at
		FROM microposts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, userID, limit, offset)
}

// CountByUser returns the number of posts owned by userID.
func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM microposts WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Feed returns the posts visible to userID: their own plus those of every
// user they currently follow, newest first. The follow set is evaluated
// inside the query, so the result always reflects the live follow graph.
func (r *PostgresRepository) Feed(ctx context.Context, userID string, limit, offset int) ([]*models.Micropost, error) {
	query := `
		SELECT id, user_id, content, created_at
		FROM microposts
		WHERE user_id = $1
		   OR user_id IN (SELECT followed_id FROM relationships WHERE follower_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, userID, limit, offset)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Micropost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	posts := []*models.Micropost{}
	for rows.Next() {
		post := &models.Micropost{}
		if err := rows.Scan(&post.ID, &post.UserID, &post.Content, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return posts, nil
}
