package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const SessionCookie = "__session"

type SessionConfig struct {
	AdminUser     string
	AdminPassHash string // bcrypt
	TTL           time.Duration
	Secure        bool
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setSessionCookie(w http.ResponseWriter, value string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// POST /auth/admin/login  { "username": "...", "password": "..." }
func AdminLoginHandler(a *AuthService, cfg SessionConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
			return
		}
		if req.Username != cfg.AdminUser ||
			bcrypt.CompareHashAndPassword([]byte(cfg.AdminPassHash), []byte(req.Password)) != nil {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		tok, err := a.IssueSession(req.Username, cfg.TTL)
		if err != nil {
			respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
			return
		}
		setSessionCookie(w, tok, int(cfg.TTL/time.Second), cfg.Secure)
		respondJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// POST /auth/logout
func LogoutHandler(secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setSessionCookie(w, "", -1, secure)
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
	}
}

// GET /auth/verify
func VerifyHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value == "" {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "No session found"})
			return
		}
		claims, err := a.Parse(c.Value)
		if err != nil {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid session"})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "uid": claims.Sub, "role": claims.Role})
	}
}
