package microposts

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"microblog/internal/common"
	"microblog/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var postCols = []string{"id", "user_id", "content", "created_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+microposts\s*\(user_id,\s*content\)`).
		WithArgs("u-1", "Lorem ipsum").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("p-1", now))

	post, err := repo.Create(context.Background(), &models.Micropost{UserID: "u-1", Content: "Lorem ipsum"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if post.ID != "p-1" || !post.CreatedAt.Equal(now) {
		t.Fatalf("unexpected post: %+v", post)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT.+FROM\s+microposts\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestListByUser_NewestFirst(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)SELECT.+FROM\s+microposts\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC,\s*id\s+DESC`

	now := time.Now()
	rows := sqlmock.NewRows(postCols).
		AddRow("p-2", "u-1", "newer", now).
		AddRow("p-1", "u-1", "older", now.Add(-time.Hour))
	mock.ExpectQuery(q).WithArgs("u-1", 30, 0).WillReturnRows(rows)

	posts, err := repo.ListByUser(context.Background(), "u-1", 30, 0)
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(posts) != 2 || posts[0].Content != "newer" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
}

func TestFeed_UnionQuery(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)SELECT.+FROM\s+microposts\s+WHERE\s+user_id\s*=\s*\$1\s+OR\s+user_id\s+IN\s+\(SELECT\s+followed_id\s+FROM\s+relationships\s+WHERE\s+follower_id\s*=\s*\$1\)`

	now := time.Now()
	rows := sqlmock.NewRows(postCols).
		AddRow("p-3", "u-2", "Baz quux", now).
		AddRow("p-2", "u-2", "Foo bar", now.Add(-time.Minute)).
		AddRow("p-1", "u-1", "mine", now.Add(-time.Hour))
	mock.ExpectQuery(q).WithArgs("u-1", 30, 0).WillReturnRows(rows)

	posts, err := repo.Feed(context.Background(), "u-1", 30, 0)
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if len(posts) != 3 || posts[0].ID != "p-3" || posts[2].ID != "p-1" {
		t.Fatalf("unexpected feed: %+v", posts)
	}
}

func TestFeed_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT.+FROM\s+microposts`).
		WithArgs("loner", 30, 0).
		WillReturnRows(sqlmock.NewRows(postCols))

	posts, err := repo.Feed(context.Background(), "loner", 30, 0)
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", posts)
	}
}

func TestDelete_Noop(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+microposts\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "ghost"); err != nil {
		t.Fatalf("Delete of missing post must be a no-op, got %v", err)
	}
}

func TestDeleteByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+microposts\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteByUser(context.Background(), "u-1"); err != nil {
		t.Fatalf("DeleteByUser error: %v", err)
	}
}

func TestCountByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\)\s+FROM\s+microposts\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	n, err := repo.CountByUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("CountByUser error: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2, got %d", n)
	}
}
