package relationships

import "context"

// Repository persists the directed follow graph. Creating an edge that
// already exists is a no-op; at most one edge exists per (follower,
// followed) pair.
type Repository interface {
	Create(ctx context.Context, followerID, followedID string) error
	Delete(ctx context.Context, followerID, followedID string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	Exists(ctx context.Context, followerID, followedID string) (bool, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	FollowerIDs(ctx context.Context, userID string) ([]string, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
}
