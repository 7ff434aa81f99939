package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"microblog/internal/common"
	"microblog/internal/server/models"
	"microblog/internal/server/services"
	"microblog/internal/server/validation"
)

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
}

type micropostResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Admin: u.Admin, CreatedAt: u.CreatedAt}
}

func toUserResponses(users []*models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toMicropostResponses(posts []*models.Micropost) []micropostResponse {
	out := make([]micropostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, micropostResponse{ID: p.ID, UserID: p.UserID, Content: p.Content, CreatedAt: p.CreatedAt})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors onto HTTP statuses. Validation
// failures become a 422 with the per-field messages.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fe validation.FieldErrors
	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]validation.FieldErrors{"errors": fe})
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "session expired")
	default:
		s.logger.Error(r.Context(), "Internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pageParams(r *http.Request) (page, perPage int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	perPage, _ = strconv.Atoi(q.Get("per_page"))
	return page, perPage
}

// --- users ---

func (s *HTTPServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	var p services.RegisterParams
	if !decodeBody(w, r, &p) {
		return
	}

	user, err := s.users.Register(r.Context(), p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "User registered", "email", user.Email)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)

	users, err := s.users.List(r.Context(), page, perPage)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	total, err := s.users.Count(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": toUserResponses(users),
		"total": total,
	})
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if requestUserID(r) != id {
		writeError(w, http.StatusForbidden, "can only update your own profile")
		return
	}

	var p services.UpdateParams
	if !decodeBody(w, r, &p) {
		return
	}

	user, err := s.users.Update(r.Context(), id, p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	caller, err := s.users.Get(r.Context(), requestUserID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if !caller.Admin && caller.ID != id {
		writeError(w, http.StatusForbidden, "admin privileges required")
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "User deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// --- sessions ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	SessionToken string `json:"session_token"`
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, pair, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if req.Remember {
		s.setRememberCookie(w, r, user.ID, user.RememberSalt)
	}

	s.logger.Info(r.Context(), "User logged in", "id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   toUserResponse(user),
		"tokens": tokenResponse{AccessToken: pair.AccessToken, SessionToken: pair.SessionToken},
	})
}

type refreshRequest struct {
	SessionToken string `json:"session_token"`
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pair, err := s.users.RefreshSession(r.Context(), req.SessionToken)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, SessionToken: pair.SessionToken})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.users.Logout(r.Context(), req.SessionToken); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.clearRememberCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// --- follow graph ---

func (s *HTTPServer) handleFollow(w http.ResponseWriter, r *http.Request) {
	followedID := mux.Vars(r)["id"]

	if err := s.relationships.Follow(r.Context(), requestUserID(r), followedID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.metrics.FollowRequests.WithLabelValues(r.URL.Path).Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	followedID := mux.Vars(r)["id"]

	if err := s.relationships.Unfollow(r.Context(), requestUserID(r), followedID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.metrics.UnfollowRequests.WithLabelValues(r.URL.Path).Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleFollowing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	users, err := s.relationships.Following(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": toUserResponses(users)})
}

func (s *HTTPServer) handleFollowers(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	users, err := s.relationships.Followers(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": toUserResponses(users)})
}

// --- microposts ---

type createMicropostRequest struct {
	Content string `json:"content"`
}

func (s *HTTPServer) handleCreateMicropost(w http.ResponseWriter, r *http.Request) {
	var req createMicropostRequest
	if !decodeBody(w, r, &req) {
		return
	}

	post, err := s.microposts.CreatePost(r.Context(), requestUserID(r), req.Content)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.metrics.PostsCreated.WithLabelValues(r.URL.Path).Inc()
	writeJSON(w, http.StatusCreated, micropostResponse{
		ID: post.ID, UserID: post.UserID, Content: post.Content, CreatedAt: post.CreatedAt,
	})
}

func (s *HTTPServer) handleDeleteMicropost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	post, err := s.microposts.GetPost(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if post.UserID != requestUserID(r) {
		caller, err := s.users.Get(r.Context(), requestUserID(r))
		if err != nil || !caller.Admin {
			writeError(w, http.StatusForbidden, "can only delete your own posts")
			return
		}
	}

	if err := s.microposts.DeletePost(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleUserMicroposts(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	page, perPage := pageParams(r)

	posts, err := s.microposts.PostsByUser(r.Context(), id, page, perPage)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	total, err := s.microposts.CountByUser(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"microposts": toMicropostResponses(posts),
		"total":      total,
	})
}

func (s *HTTPServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)

	posts, err := s.microposts.Feed(r.Context(), requestUserID(r), page, perPage)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"microposts": toMicropostResponses(posts)})
}

// --- avatars ---

func (s *HTTPServer) handleAvatarUploadURL(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.avatars.GetUploadURL(r.Context(), requestUserID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}

type avatarConfirmRequest struct {
	Key string `json:"key"`
}

func (s *HTTPServer) handleAvatarConfirm(w http.ResponseWriter, r *http.Request) {
	var req avatarConfirmRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.avatars.ConfirmUpload(r.Context(), requestUserID(r), req.Key); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	url, err := s.avatars.GetDownloadURL(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
