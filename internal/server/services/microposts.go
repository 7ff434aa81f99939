package services

import (
	"context"
	"database/sql"
	"fmt"

	"microblog/internal/server/config"
	"microblog/internal/server/models"
	"microblog/internal/server/repositories/repomanager"
	"microblog/internal/server/validation"
)

type micropostForm struct {
	Content string `form:"content" validate:"required,max=140"`
}

// MicropostService implements posting and the two read paths over microposts:
// a single author's page and the aggregated feed.
type MicropostService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	defaultPerPage int
}

// NewMicropostService constructs a MicropostService.
func NewMicropostService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *MicropostService {
	return &MicropostService{db: db, repomanager: m, defaultPerPage: cfg.DefaultPerPage}
}

// CreatePost validates the content (1 to 140 characters) and stores the post
// for the given author. A missing author yields common.ErrorNotFound.
func (s *MicropostService) CreatePost(ctx context.Context, userID, content string) (*models.Micropost, error) {

	fe := validation.Struct(micropostForm{Content: content})
	if fe != nil && fe.Any() {
		return nil, fe
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		return nil, err
	}

	post, err := s.repomanager.Microposts(s.db).Create(ctx, &models.Micropost{UserID: userID, Content: content})
	if err != nil {
		return nil, fmt.Errorf("error creating micropost: %w", err)
	}

	return post, nil
}

// GetPost returns the post with the given id, or common.ErrorNotFound.
func (s *MicropostService) GetPost(ctx context.Context, id string) (*models.Micropost, error) {
	return s.repomanager.Microposts(s.db).GetByID(ctx, id)
}

// DeletePost removes the post. Deleting a missing post is a no-op.
func (s *MicropostService) DeletePost(ctx context.Context, id string) error {
	return s.repomanager.Microposts(s.db).Delete(ctx, id)
}

// PostsByUser returns one page of a single user's posts, newest first.
func (s *MicropostService) PostsByUser(ctx context.Context, userID string, page, perPage int) ([]*models.Micropost, error) {
	limit, offset := pageBounds(page, perPage, s.defaultPerPage)
	return s.repomanager.Microposts(s.db).ListByUser(ctx, userID, limit, offset)
}

// CountByUser returns how many posts the user has.
func (s *MicropostService) CountByUser(ctx context.Context, userID string) (int64, error) {
	return s.repomanager.Microposts(s.db).CountByUser(ctx, userID)
}

// Feed returns one page of the user's aggregated timeline: their own posts
// plus posts of everyone they follow, newest first.
func (s *MicropostService) Feed(ctx context.Context, userID string, page, perPage int) ([]*models.Micropost, error) {
	limit, offset := pageBounds(page, perPage, s.defaultPerPage)
	return s.repomanager.Microposts(s.db).Feed(ctx, userID, limit, offset)
}
