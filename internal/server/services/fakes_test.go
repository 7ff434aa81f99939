package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"microblog/internal/common"
	"microblog/internal/dbx"
	"microblog/internal/server/models"
	micropostsrepo "microblog/internal/server/repositories/microposts"
	relationshipsrepo "microblog/internal/server/repositories/relationships"
	sessiontokensrepo "microblog/internal/server/repositories/sessiontokens"
	usersrepo "microblog/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func errNotFound() error { return common.ErrorNotFound }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	byID    map[string]*models.User
	byIDErr error

	byEmailOut *models.User
	byEmailErr error

	updateErr error
	updated   *models.User

	deleteErr error
	deletedID string

	listOut []*models.User
	listErr error

	countOut int64
	countErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, errNotFound()
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmailOut, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, u *models.User) error {
	f.updated = u
	return f.updateErr
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	f.deletedID = id
	return f.deleteErr
}

func (f *fakeUsersRepo) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return f.listOut, f.listErr
}

func (f *fakeUsersRepo) Count(ctx context.Context) (int64, error) {
	return f.countOut, f.countErr
}

type fakeMicropostsRepo struct {
	createOut *models.Micropost
	createErr error

	getOut *models.Micropost
	getErr error

	deleteErr error
	deletedID string

	deleteByUserErr error
	deleteByUserID  string

	listOut []*models.Micropost
	listErr error

	countOut int64

	feedOut    []*models.Micropost
	feedErr    error
	feedLimit  int
	feedOffset int
}

func (f *fakeMicropostsRepo) Create(ctx context.Context, p *models.Micropost) (*models.Micropost, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeMicropostsRepo) GetByID(ctx context.Context, id string) (*models.Micropost, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeMicropostsRepo) Delete(ctx context.Context, id string) error {
	f.deletedID = id
	return f.deleteErr
}

func (f *fakeMicropostsRepo) DeleteByUser(ctx context.Context, userID string) error {
	f.deleteByUserID = userID
	return f.deleteByUserErr
}

func (f *fakeMicropostsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Micropost, error) {
	return f.listOut, f.listErr
}

func (f *fakeMicropostsRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	return f.countOut, nil
}

func (f *fakeMicropostsRepo) Feed(ctx context.Context, userID string, limit, offset int) ([]*models.Micropost, error) {
	f.feedLimit = limit
	f.feedOffset = offset
	return f.feedOut, f.feedErr
}

type fakeRelationshipsRepo struct {
	createErr      error
	createdPairs   [][2]string
	deleteErr      error
	deletedPairs   [][2]string
	deleteAllErr   error
	deleteAllID    string
	existsOut      bool
	existsErr      error
	followingOut   []string
	followingErr   error
	followersOut   []string
	followersErr   error
	countFollowing int64
	countFollowers int64
}

func (f *fakeRelationshipsRepo) Create(ctx context.Context, followerID, followedID string) error {
	f.createdPairs = append(f.createdPairs, [2]string{followerID, followedID})
	return f.createErr
}

func (f *fakeRelationshipsRepo) Delete(ctx context.Context, followerID, followedID string) error {
	f.deletedPairs = append(f.deletedPairs, [2]string{followerID, followedID})
	return f.deleteErr
}

func (f *fakeRelationshipsRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	f.deleteAllID = userID
	return f.deleteAllErr
}

func (f *fakeRelationshipsRepo) Exists(ctx context.Context, followerID, followedID string) (bool, error) {
	return f.existsOut, f.existsErr
}

func (f *fakeRelationshipsRepo) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	return f.followingOut, f.followingErr
}

func (f *fakeRelationshipsRepo) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return f.followersOut, f.followersErr
}

func (f *fakeRelationshipsRepo) CountFollowing(ctx context.Context, userID string) (int64, error) {
	return f.countFollowing, nil
}

func (f *fakeRelationshipsRepo) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return f.countFollowers, nil
}

type fakeSessionTokensRepo struct {
	createErr error
	created   []string

	findOut *models.SessionToken
	findErr error

	delErr  error
	deleted []string

	delAllErr error
	delAllID  string
}

func (f *fakeSessionTokensRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	f.created = append(f.created, token)
	return f.createErr
}

func (f *fakeSessionTokensRepo) Find(ctx context.Context, token string) (*models.SessionToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeSessionTokensRepo) Delete(ctx context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	return f.delErr
}

func (f *fakeSessionTokensRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	f.delAllID = userID
	return f.delAllErr
}

type fakeRepoManager struct {
	u  *fakeUsersRepo
	m  *fakeMicropostsRepo
	r  *fakeRelationshipsRepo
	st *fakeSessionTokensRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository {
	if m.u == nil {
		m.u = &fakeUsersRepo{}
	}
	return m.u
}

func (m *fakeRepoManager) Microposts(db dbx.DBTX) micropostsrepo.Repository {
	if m.m == nil {
		m.m = &fakeMicropostsRepo{}
	}
	return m.m
}

func (m *fakeRepoManager) Relationships(db dbx.DBTX) relationshipsrepo.Repository {
	if m.r == nil {
		m.r = &fakeRelationshipsRepo{}
	}
	return m.r
}

func (m *fakeRepoManager) SessionTokens(db dbx.DBTX) sessiontokensrepo.Repository {
	if m.st == nil {
		m.st = &fakeSessionTokensRepo{}
	}
	return m.st
}
