package repomanager

import (
	"context"
	"database/sql"

	"microblog/internal/dbx"
	"microblog/internal/server/repositories/microposts"
	"microblog/internal/server/repositories/relationships"
	"microblog/internal/server/repositories/sessiontokens"
	"microblog/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so a
// service can run the same repository against the pool or against an open
// transaction. It also owns schema migrations.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Microposts(db dbx.DBTX) microposts.Repository
	Relationships(db dbx.DBTX) relationships.Repository
	SessionTokens(db dbx.DBTX) sessiontokens.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
