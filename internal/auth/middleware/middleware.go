package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/mindengage-french/internal/rbac"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"

	tokenTTL = 8 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

type AuthService struct{ hmac []byte }

func NewAuthService(secret string) *AuthService { return &AuthService{hmac: []byte(secret)} }

type Claims struct {
	Sub   string `json:"sub"`
	Role  string `json:"role"` // "student" or "admin"
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func (a *AuthService) issue(c Claims, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &c)
	return t.SignedString(a.hmac)
}

func (a *AuthService) IssueJWT(sub, role string) (string, error) {
	return a.issue(Claims{Sub: sub, Role: role}, "mindengage-french", tokenTTL)
}

// IssueIDToken mints a learner token carrying profile fields, as the identity
// provider would.
func (a *AuthService) IssueIDToken(sub, email, name string) (string, error) {
	return a.issue(Claims{Sub: sub, Role: RoleStudent, Email: email, Name: name}, "mindengage-french", tokenTTL)
}

// IssueSession mints the admin session token stored in the session cookie.
func (a *AuthService) IssueSession(sub string, ttl time.Duration) (string, error) {
	return a.issue(Claims{Sub: sub, Role: RoleAdmin}, "mindengage-french-session", ttl)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || c.Sub == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// POST /auth/login  { "username": "...", "password": "...", "email": "...", "name": "..." }
// Dev/offline stand-in for the identity provider: issues a learner token when
// username equals password.
func LoginHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Email    string `json:"email"`
			Name     string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Username != req.Password {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueIDToken(req.Username, req.Email, req.Name)
		if err != nil {
			http.Error(w, "issue token", 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok})
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func withClaims(r *http.Request, c *Claims) *http.Request {
	ctx := WithSubject(r.Context(), c.Sub)
	ctx = rbac.WithRole(ctx, c.Role)
	ctx = WithClaims(ctx, c)
	return r.WithContext(ctx)
}

// JWTMiddleware requires a valid bearer token and puts its subject, role and
// claims in the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearer(r)
			if tok == "" {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(tok)
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, withClaims(r, c))
		})
	}
}

// SessionMiddleware authenticates admins by the session cookie, falling back
// to a bearer token. Non-admin tokens are rejected with 403.
func SessionMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				tok = c.Value
			}
			if tok == "" {
				tok = bearer(r)
			}
			if tok == "" {
				http.Error(w, "no session", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(tok)
			if err != nil {
				http.Error(w, "invalid session", http.StatusUnauthorized)
				return
			}
			if c.Role != RoleAdmin {
				http.Error(w, "admin access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, withClaims(r, c))
		})
	}
}
