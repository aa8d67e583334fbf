package httpsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Роли, которые понимает API.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Principal — аутентифицированный вызывающий.
type Principal struct {
	UserID string
	Role   string
}

// IsAdmin сообщает, есть ли у вызывающего права администратора.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Claims — ожидаемое содержимое bearer-токена.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Authenticator проверяет HS256-токены общим секретом.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// NewAuthenticator создаёт проверку токенов. Пустой секрет отклоняет все запросы.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// Issue выпускает токен для пользователя. Используется для демо-стенда и тестов.
func (a *Authenticator) Issue(userID, role string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify разбирает токен и строит Principal.
func (a *Authenticator) Verify(token string) (Principal, error) {
	if len(a.secret) == 0 {
		return Principal{}, errors.New("authentication not configured")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("token validation failed: %w", err)
	}
	if !parsed.Valid {
		return Principal{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return Principal{}, errors.New("token subject is required")
	}

	role := claims.Role
	if role == "" {
		role = RoleUser
	}
	return Principal{UserID: claims.Subject, Role: role}, nil
}

// Middleware требует валидный bearer-токен.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing Authorization header")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "expected 'Bearer <token>'")
			return
		}

		principal, err := a.Verify(strings.TrimSpace(token))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireAdmin пропускает только администраторов.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !principal.IsAdmin() {
			respondError(w, http.StatusForbidden, "forbidden", "access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type principalKey struct{}

// WithPrincipal кладёт вызывающего в контекст.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom достаёт вызывающего из контекста.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
