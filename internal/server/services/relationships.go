package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"microblog/internal/common"
	"microblog/internal/server/config"
	"microblog/internal/server/models"
	"microblog/internal/server/repositories/repomanager"
	"microblog/internal/server/validation"
)

// RelationshipService maintains the directed follow graph and resolves the
// follower and following listings to full user records.
type RelationshipService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewRelationshipService constructs a RelationshipService.
func NewRelationshipService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *RelationshipService {
	return &RelationshipService{db: db, repomanager: m}
}

// Follow adds a follow edge from follower to followed. Following yourself is
// a validation error; following someone already followed is a no-op. A
// missing followed user yields common.ErrorNotFound.
func (s *RelationshipService) Follow(ctx context.Context, followerID, followedID string) error {

	if followerID == followedID {
		fe := validation.FieldErrors{}
		fe.Add("followed_id", "can't be yourself")
		return fe
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, followedID); err != nil {
		return err
	}

	if err := s.repomanager.Relationships(s.db).Create(ctx, followerID, followedID); err != nil {
		return fmt.Errorf("error creating relationship: %w", err)
	}

	return nil
}

// Unfollow removes the follow edge. Removing a missing edge is a no-op.
func (s *RelationshipService) Unfollow(ctx context.Context, followerID, followedID string) error {
	return s.repomanager.Relationships(s.db).Delete(ctx, followerID, followedID)
}

// IsFollowing reports whether follower currently follows followed.
func (s *RelationshipService) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	return s.repomanager.Relationships(s.db).Exists(ctx, followerID, followedID)
}

// Following returns the users the given user follows, resolved to full
// records in stable follow order.
func (s *RelationshipService) Following(ctx context.Context, userID string) ([]*models.User, error) {
	ids, err := s.repomanager.Relationships(s.db).FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveUsers(ctx, ids)
}

// Followers returns the users following the given user, resolved to full
// records in stable follow order.
func (s *RelationshipService) Followers(ctx context.Context, userID string) ([]*models.User, error) {
	ids, err := s.repomanager.Relationships(s.db).FollowerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveUsers(ctx, ids)
}

// CountFollowing returns how many users the given user follows.
func (s *RelationshipService) CountFollowing(ctx context.Context, userID string) (int64, error) {
	return s.repomanager.Relationships(s.db).CountFollowing(ctx, userID)
}

// CountFollowers returns how many users follow the given user.
func (s *RelationshipService) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return s.repomanager.Relationships(s.db).CountFollowers(ctx, userID)
}

// resolveUsers loads each id through the users repository, skipping edges
// whose user vanished between the two reads.
func (s *RelationshipService) resolveUsers(ctx context.Context, ids []string) ([]*models.User, error) {
	repo := s.repomanager.Users(s.db)

	result := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				continue
			}
			return nil, err
		}
		result = append(result, user)
	}

	return result, nil
}
