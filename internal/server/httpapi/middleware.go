package httpapi

import (
	"context"
	"net/http"
	"strings"

	"microblog/internal/server/auth"
)

type ctxKey string

const userIDKey ctxKey = "userID"

const rememberSessionName = "remember"

// withAuth resolves the caller before the handler runs. A bearer access
// token wins; without one the remember-me cookie is re-validated against the
// stored salt. Unauthenticated requests get 401.
func (s *HTTPServer) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		if token := bearerToken(r); token != "" {
			userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid access token")
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
			return
		}

		if userID, ok := s.userFromRememberCookie(r); ok {
			next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
			return
		}

		writeError(w, http.StatusUnauthorized, "authentication required")
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func (s *HTTPServer) userFromRememberCookie(r *http.Request) (string, bool) {
	session, err := s.store.Get(r, rememberSessionName)
	if err != nil {
		return "", false
	}

	userID, ok := session.Values["user_id"].(string)
	if !ok || userID == "" {
		return "", false
	}
	salt, ok := session.Values["salt"].(string)
	if !ok || salt == "" {
		return "", false
	}

	user, err := s.users.AuthenticateWithSalt(r.Context(), userID, salt)
	if err != nil {
		return "", false
	}

	return user.ID, true
}

func (s *HTTPServer) setRememberCookie(w http.ResponseWriter, r *http.Request, userID, salt string) {
	session, _ := s.store.Get(r, rememberSessionName)
	session.Values["user_id"] = userID
	session.Values["salt"] = salt
	if err := session.Save(r, w); err != nil {
		s.logger.Warn(r.Context(), "Error saving remember cookie", "error", err)
	}
}

func (s *HTTPServer) clearRememberCookie(w http.ResponseWriter, r *http.Request) {
	session, _ := s.store.Get(r, rememberSessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		s.logger.Warn(r.Context(), "Error clearing remember cookie", "error", err)
	}
}

func requestUserID(r *http.Request) string {
	if v, ok := r.Context().Value(userIDKey).(string); ok {
		return v
	}
	return ""
}
