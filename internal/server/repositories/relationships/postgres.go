// Package relationships provides a PostgreSQL-backed repository for follow
// edges. The feed never traverses the graph beyond depth 1, so all
// operations are simple relational predicates.
package relationships

import (
	"context"
	"fmt"

	"microblog/internal/dbx"
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

// Create inserts the follower→followed edge. A duplicate edge is a no-op;
// the unique index makes follow idempotent.
func (r *PostgresRepository) Create(ctx context.Context, followerID, followedID string) error {
	query := `
		INSERT INTO relationships (follower_id, followed_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followed_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, followerID, followedID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the edge matching both endpoints. Removing a missing edge
// is a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, followerID, followedID string) error {
	query := `
		DELETE FROM relationships
		WHERE follower_id = $1 AND followed_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, followerID, followedID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every edge where userID is follower or followed.
// Used by the user cascade delete inside its transaction.
func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	query := `
		DELETE FROM relationships
		WHERE follower_id = $1 OR followed_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Exists reports whether followerID currently follows followedID.
func (r *PostgresRepository) Exists(ctx context.Context, followerID, followedID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM relationships
			WHERE follower_id = $1 AND followed_id = $2
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, followerID, followedID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// FollowingIDs returns the ids of users that userID follows, in edge
// creation order.
func (r *PostgresRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT followed_id
		FROM relationships
		WHERE follower_id = $1
		ORDER BY created_at, id
	`
	return r.listIDs(ctx, query, userID)
}

// FollowerIDs returns the ids of users following userID, in edge creation
// order.
func (r *PostgresRepository) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT follower_id
		FROM relationships
		WHERE followed_id = $1
		ORDER BY created_at, id
	`
	return r.listIDs(ctx, query, userID)
}

// CountFollowing returns how many users userID follows.
func (r *PostgresRepository) CountFollowing(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM relationships WHERE follower_id = $1`, userID)
}

// CountFollowers returns how many users follow userID.
func (r *PostgresRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM relationships WHERE followed_id = $1`, userID)
}

func (r *PostgresRepository) listIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ids, nil
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
