package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role names carried in access tokens. Admins and experts see everything;
// authors see their own works; engineers see works assigned to them.
const (
	RoleAdmin    = "admin"
	RoleExpert   = "expert"
	RoleAuthor   = "author"
	RoleEngineer = "engineer"
)

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

// SeesEverything reports whether the role bypasses ownership filters.
func (p Principal) SeesEverything() bool {
	return p.Role == RoleAdmin || p.Role == RoleExpert
}

type principalKey struct{}

// PrincipalFrom extracts the authenticated principal from the context.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ContextWithPrincipal injects a principal, for tests and internal calls.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// accessClaims is the token payload issued by the external auth service.
// Only the subject and role are trusted here; issuing stays external.
type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the access_token cookie on every request.
type AuthMiddleware struct {
	secret []byte
	logger *slog.Logger
}

// NewAuthMiddleware creates the middleware with the shared HMAC secret.
func NewAuthMiddleware(secret []byte, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{secret: secret, logger: logger}
}

// Require wraps a handler, rejecting requests without a valid token.
func (m *AuthMiddleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("access_token")
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing access token")
			return
		}

		principal, err := m.parse(cookie.Value)
		if err != nil {
			m.logger.Debug("rejected access token", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		next(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	}
}

func (m *AuthMiddleware) parse(token string) (Principal, error) {
	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		return Principal{}, err
	}
	if !parsed.Valid {
		return Principal{}, fmt.Errorf("token invalid")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid subject: %w", err)
	}
	if claims.Role == "" {
		return Principal{}, fmt.Errorf("missing role claim")
	}

	return Principal{UserID: userID, Role: claims.Role}, nil
}
