package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"microblog/internal/common"
	"microblog/internal/server/config"
	"microblog/internal/server/models"
	"microblog/internal/server/repositories/repomanager"
	"microblog/internal/server/validation"
)

func newRelationshipService(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager) *RelationshipService {
	t.Helper()
	return NewRelationshipService(db, rm, &config.Config{DefaultPerPage: 30})
}

func TestFollow_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byID: map[string]*models.User{"u-2": {ID: "u-2"}}},
		r: &fakeRelationshipsRepo{},
	}
	s := newRelationshipService(t, db, rm)

	if err := s.Follow(context.Background(), "u-1", "u-2"); err != nil {
		t.Fatalf("Follow error: %v", err)
	}
	if len(rm.r.createdPairs) != 1 || rm.r.createdPairs[0] != [2]string{"u-1", "u-2"} {
		t.Fatalf("edge not created: %v", rm.r.createdPairs)
	}
}

func TestFollow_Self(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newRelationshipService(t, db, &fakeRepoManager{})

	err := s.Follow(context.Background(), "u-1", "u-1")

	var fe validation.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("want FieldErrors, got %v", err)
	}
	if len(fe["followed_id"]) == 0 {
		t.Fatalf("want error on followed_id, got %v", fe)
	}
}

func TestFollow_UnknownFollowed(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{byID: map[string]*models.User{}}}
	s := newRelationshipService(t, db, rm)

	err := s.Follow(context.Background(), "u-1", "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestUnfollow(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{r: &fakeRelationshipsRepo{}}
	s := newRelationshipService(t, db, rm)

	if err := s.Unfollow(context.Background(), "u-1", "u-2"); err != nil {
		t.Fatalf("Unfollow error: %v", err)
	}
	if len(rm.r.deletedPairs) != 1 || rm.r.deletedPairs[0] != [2]string{"u-1", "u-2"} {
		t.Fatalf("edge not deleted: %v", rm.r.deletedPairs)
	}
}

func TestIsFollowing(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{r: &fakeRelationshipsRepo{existsOut: true}}
	s := newRelationshipService(t, db, rm)

	ok, err := s.IsFollowing(context.Background(), "u-1", "u-2")
	if err != nil {
		t.Fatalf("IsFollowing error: %v", err)
	}
	if !ok {
		t.Fatalf("want true")
	}
}

func TestFollowing_ResolvesUsers(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byID: map[string]*models.User{
			"u-2": {ID: "u-2", Name: "Bob"},
			"u-3": {ID: "u-3", Name: "Carol"},
		}},
		r: &fakeRelationshipsRepo{followingOut: []string{"u-2", "u-3"}},
	}
	s := newRelationshipService(t, db, rm)

	users, err := s.Following(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Following error: %v", err)
	}
	if len(users) != 2 || users[0].ID != "u-2" || users[1].ID != "u-3" {
		t.Fatalf("unexpected following list: %+v", users)
	}
}

func TestFollowers_SkipsVanishedUsers(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byID: map[string]*models.User{
			"u-2": {ID: "u-2"},
		}},
		r: &fakeRelationshipsRepo{followersOut: []string{"u-2", "gone"}},
	}
	s := newRelationshipService(t, db, rm)

	users, err := s.Followers(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Followers error: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u-2" {
		t.Fatalf("unexpected followers list: %+v", users)
	}
}
