// Package services contains server-side business logic. This file implements
// UserService: the user directory (create/update/delete/list) and the
// credential store (password and remember-salt authentication, session
// tokens).
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"microblog/internal/common"
	"microblog/internal/cryptox"
	"microblog/internal/dbx"
	"microblog/internal/server/auth"
	"microblog/internal/server/config"
	"microblog/internal/server/models"
	"microblog/internal/server/repositories/repomanager"
	"microblog/internal/server/validation"
)

// TokenPair bundles a short-lived access JWT and the opaque server-stored
// session token used to refresh it.
type TokenPair struct {
	AccessToken  string
	SessionToken string
}

// RegisterParams carries a signup request. Field-format rules live in the
// validate tags; email uniqueness is checked against the directory.
type RegisterParams struct {
	Name                 string `json:"name" form:"name" validate:"required,max=50"`
	Email                string `json:"email" form:"email" validate:"required,email_format"`
	Password             string `json:"password" form:"password" validate:"required,min=6,max=40"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation" validate:"eqfield=Password"`
}

// UpdateParams carries a profile update. An empty Password means "leave the
// password unchanged"; when set, the signup rules apply again.
type UpdateParams struct {
	Name                 string `json:"name" form:"name" validate:"required,max=50"`
	Email                string `json:"email" form:"email" validate:"required,email_format"`
	Password             string `json:"password" form:"password" validate:"omitempty,min=6,max=40"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation" validate:"eqfield=Password"`
}

// UserService provides directory and authentication operations over the
// users and session-token repositories.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	sessionTokenValidityDuration time.Duration
	defaultPerPage               int
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		sessionTokenValidityDuration: cfg.SessionTokenValidityDuration,
		defaultPerPage:               cfg.DefaultPerPage,
	}
}

// Register validates the signup form, derives the password hash and remember
// salt, and persists the new user. Rule violations come back as
// validation.FieldErrors through the error value.
func (s *UserService) Register(ctx context.Context, p RegisterParams) (*models.User, error) {

	fe := validation.Struct(p)
	if fe == nil {
		fe = validation.FieldErrors{}
	}

	repo := s.repomanager.Users(s.db)

	if _, ok := fe["email"]; !ok {
		if err := s.checkEmailFree(ctx, p.Email, ""); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				fe.Add("email", "has already been taken")
			} else {
				return nil, err
			}
		}
	}

	if fe.Any() {
		return nil, fe
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	salt, err := cryptox.NewRememberSalt()
	if err != nil {
		return nil, fmt.Errorf("error generating salt: %w", err)
	}

	user := &models.User{
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: hash,
		RememberSalt: salt,
	}

	user, err = repo.Create(ctx, user)
	if err != nil {
		// Lost the race against a concurrent signup with the same email.
		if errors.Is(err, common.ErrorAlreadyExists) {
			fe.Add("email", "has already been taken")
			return nil, fe
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// Update applies a profile change to an existing user. Validation mirrors
// Register except that the password is only checked when supplied.
func (s *UserService) Update(ctx context.Context, id string, p UpdateParams) (*models.User, error) {

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fe := validation.Struct(p)
	if fe == nil {
		fe = validation.FieldErrors{}
	}

	if _, ok := fe["email"]; !ok && !strings.EqualFold(p.Email, user.Email) {
		if err := s.checkEmailFree(ctx, p.Email, user.ID); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				fe.Add("email", "has already been taken")
			} else {
				return nil, err
			}
		}
	}

	if fe.Any() {
		return nil, fe
	}

	user.Name = p.Name
	user.Email = p.Email

	if p.Password != "" {
		hash, err := cryptox.HashPassword(p.Password)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		salt, err := cryptox.NewRememberSalt()
		if err != nil {
			return nil, fmt.Errorf("error generating salt: %w", err)
		}
		user.PasswordHash = hash
		user.RememberSalt = salt
	}

	if err := repo.Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			fe.Add("email", "has already been taken")
			return nil, fe
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	return user, nil
}

// Delete removes the user and everything hanging off them — microposts,
// follow edges in both directions, and open sessions — in one transaction.
// Deleting a missing user is a no-op.
func (s *UserService) Delete(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Microposts(tx).DeleteByUser(ctx, id); err != nil {
			return err
		}
		if err := s.repomanager.Relationships(tx).DeleteAllForUser(ctx, id); err != nil {
			return err
		}
		if err := s.repomanager.SessionTokens(tx).DeleteAllForUser(ctx, id); err != nil {
			return err
		}
		return s.repomanager.Users(tx).Delete(ctx, id)
	})
}

// Get returns the user with the given id, or common.ErrorNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// List returns one page of the user directory in stable order. page is
// 1-based; perPage <= 0 falls back to the configured default.
func (s *UserService) List(ctx context.Context, page, perPage int) ([]*models.User, error) {
	limit, offset := pageBounds(page, perPage, s.defaultPerPage)
	return s.repomanager.Users(s.db).List(ctx, limit, offset)
}

// Count returns the total number of users.
func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.repomanager.Users(s.db).Count(ctx)
}

// MakeAdmin flips the admin flag on the user identified by email.
func (s *UserService) MakeAdmin(ctx context.Context, email string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	user.Admin = true
	if err := repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate resolves the email case-insensitively and verifies the
// password against the stored bcrypt digest. A missing user and a wrong
// password are indistinguishable to the caller: both yield
// common.ErrorUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if !cryptox.CheckPassword(user.PasswordHash, password) {
		return nil, common.ErrorUnauthorized
	}

	return user, nil
}

// AuthenticateWithSalt re-authenticates a remember-me cookie: it looks the
// user up by id and compares the cookie's salt with the stored one in
// constant time.
func (s *UserService) AuthenticateWithSalt(ctx context.Context, userID, salt string) (*models.User, error) {

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if !cryptox.CheckRememberSalt(user.RememberSalt, salt) {
		return nil, common.ErrorUnauthorized
	}

	return user, nil
}

// Login verifies credentials and mints a token pair for the user.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {

	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.generateTokenPair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// RefreshSession rotates the session token: the old token is deleted and a
// fresh pair is minted inside one transaction. Expired sessions yield
// common.ErrSessionExpired.
func (s *UserService) RefreshSession(ctx context.Context, sessionToken string) (*TokenPair, error) {

	repo := s.repomanager.SessionTokens(s.db)

	token, err := repo.Find(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching session token: %w", err)
	}

	if token.Expires.Before(time.Now()) {
		return nil, common.ErrSessionExpired
	}

	var tokenPair *TokenPair

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.SessionTokens(tx).Delete(ctx, sessionToken); err != nil {
			return fmt.Errorf("error deleting session token: %w", err)
		}

		tokenPair, err = s.generateTokenPairOn(ctx, tx, token.UserID)
		if err != nil {
			return fmt.Errorf("error generating token pair: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return tokenPair, nil
}

// Logout deletes the session token. Unknown tokens are a no-op.
func (s *UserService) Logout(ctx context.Context, sessionToken string) error {
	return s.repomanager.SessionTokens(s.db).Delete(ctx, sessionToken)
}

func (s *UserService) checkEmailFree(ctx context.Context, email, selfID string) error {
	other, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}
	if other.ID == selfID {
		return nil
	}
	return common.ErrorAlreadyExists
}

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateSessionToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string) (*TokenPair, error) {
	return s.generateTokenPairOn(ctx, s.db, userID)
}

func (s *UserService) generateTokenPairOn(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	sessionToken, err := s.generateSessionToken()
	if err != nil {
		return nil, common.ErrorInternal
	}

	err = s.repomanager.SessionTokens(db).Create(ctx, userID, sessionToken, s.sessionTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, SessionToken: sessionToken}, nil
}

// pageBounds converts a 1-based page and page size into LIMIT/OFFSET values.
func pageBounds(page, perPage, defaultPerPage int) (limit, offset int) {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}
