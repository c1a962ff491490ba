package providers

import (
	"context"
	"ecgd/internal/apperrors"
	"ecgd/internal/structures"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

// Principal is the authenticated caller.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

func unauthorized(op, msg string) error {
	return apperrors.New(apperrors.KindUnauthorized, op, msg)
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator verifies HS256 tokens locally.
type JWTAuthenticator struct {
	secret []byte
	issuer string
}

func NewJWTAuthenticator(secret, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (*Principal, error) {
	const op = "auth.jwt"
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, unauthorized(op, "token expired")
		}
		return nil, unauthorized(op, "invalid token")
	}
	if !parsed.Valid {
		return nil, unauthorized(op, "invalid token")
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, unauthorized(op, "token has no subject")
	}
	return &Principal{UserID: userID, Email: claims.Email, Role: claims.Role}, nil
}

// Issue signs a token for p. Used by tooling and tests; the daemon itself
// never mints credentials.
func (a *JWTAuthenticator) Issue(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: p.UserID,
		Email:  p.Email,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

type remoteUser struct {
	ID    json.RawMessage `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  string          `json:"role"`
}

type remoteMeResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	User    remoteUser `json:"user"`
}

// RemoteAuthenticator resolves the caller through the account service's
// GET /api/auth/me endpoint.
type RemoteAuthenticator struct {
	client *resty.Client
	logger Logger
}

func NewRemoteAuthenticator(conf *structures.AuthConfig, logger Logger) *RemoteAuthenticator {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(conf.URL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetJSONUnmarshaler(json.Unmarshal)
	return &RemoteAuthenticator{client: client, logger: logger}
}

func (a *RemoteAuthenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	const op = "auth.remote"
	var body remoteMeResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		ForceContentType("application/json").
		SetResult(&body).
		Get("/api/auth/me")
	if err != nil {
		a.logger.Errorf(TypeAuth, "Auth service unreachable: %v", err)
		return nil, fmt.Errorf("%s: auth service unreachable: %w", op, err)
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, unauthorized(op, "invalid token")
	case status != http.StatusOK:
		a.logger.Errorf(TypeAuth, "Auth service returned %d", status)
		return nil, fmt.Errorf("%s: auth service returned %d", op, status)
	}

	id := strings.Trim(strings.TrimSpace(string(body.User.ID)), `"`)
	if !body.Success || id == "" || id == "null" {
		return nil, unauthorized(op, "invalid token")
	}
	return &Principal{UserID: id, Email: body.User.Email, Role: body.User.Role}, nil
}

func NewAuthenticator(conf *structures.Config, logger Logger) (Authenticator, error) {
	switch conf.Auth.Mode {
	case "jwt":
		return NewJWTAuthenticator(conf.Auth.Secret, conf.Auth.Issuer), nil
	case "remote":
		return NewRemoteAuthenticator(&conf.Auth, logger), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", conf.Auth.Mode)
	}
}

type AuthMiddleware struct {
	auth    Authenticator
	logger  Logger
	metrics MetricsProviderInterface
}

func NewAuthMiddleware(auth Authenticator, logger Logger, metrics MetricsProviderInterface) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, logger: logger, metrics: metrics}
}

// Require rejects requests without a valid bearer credential before they
// reach the handler.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			m.metrics.IncAuthFailures("missing_token")
			writeAuthError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		p, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			status := apperrors.HTTPStatus(err)
			if status == http.StatusUnauthorized {
				m.metrics.IncAuthFailures("invalid_token")
				m.logger.Debugf(TypeAuth, "Rejected token from %s: %v", r.RemoteAddr, err)
				writeAuthError(w, status, apperrors.PublicMessage(err))
				return
			}
			m.metrics.IncAuthFailures("upstream")
			m.logger.Errorf(TypeAuth, "Authentication failed: %v", err)
			writeAuthError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func (m *AuthMiddleware) RequireRole(role string, next http.Handler) http.Handler {
	return m.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		if p.Role != role {
			m.metrics.IncAuthFailures("forbidden")
			m.logger.Warnf(TypeAuth, "User %s denied %s %s", p.UserID, r.Method, r.URL.Path)
			writeAuthError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
