package providers

import (
	"context"
	"ecgd/internal/apperrors"
	"ecgd/internal/structures"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type authTestMetrics struct {
	mockMetrics
	failures []string
}

func (m *authTestMetrics) IncAuthFailures(reason string) { m.failures = append(m.failures, reason) }

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := BearerToken(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Bearer abc.def")
	token, ok := BearerToken(r)
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	r.Header.Set("Authorization", "bearer  xyz ")
	token, ok = BearerToken(r)
	assert.True(t, ok)
	assert.Equal(t, "xyz", token)

	r.Header.Set("Authorization", "Basic dXNlcg==")
	_, ok = BearerToken(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Bearer ")
	_, ok = BearerToken(r)
	assert.False(t, ok)
}

func TestJWTAuthenticator_RoundTrip(t *testing.T) {
	a := NewJWTAuthenticator(testSecret, "ecgd")
	token, err := a.Issue(Principal{UserID: "u1", Email: "u1@example.com", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	p, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &Principal{UserID: "u1", Email: "u1@example.com", Role: RoleAdmin}, p)
	assert.True(t, p.IsAdmin())
}

func TestJWTAuthenticator_Rejects(t *testing.T) {
	a := NewJWTAuthenticator(testSecret, "ecgd")
	ctx := context.Background()

	expired, err := a.Issue(Principal{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, expired)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	other, err := NewJWTAuthenticator("other-secret", "ecgd").Issue(Principal{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, other)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	wrongIssuer, err := NewJWTAuthenticator(testSecret, "someone-else").Issue(Principal{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, wrongIssuer)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, unsigned)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = a.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestJWTAuthenticator_SubjectFallback(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "42", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	p, err := NewJWTAuthenticator(testSecret, "").Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "42", p.UserID)
}

func newMockedRemote(t *testing.T) *RemoteAuthenticator {
	t.Helper()
	a := NewRemoteAuthenticator(&structures.AuthConfig{URL: "http://auth.local/", Timeout: time.Second}, &cacheTestLogger{})
	httpmock.ActivateNonDefault(a.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return a
}

func TestRemoteAuthenticator_ResolvesUser(t *testing.T) {
	a := newMockedRemote(t)
	httpmock.RegisterResponder(http.MethodGet, "http://auth.local/api/auth/me",
		func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") != "Bearer good" {
				return httpmock.NewStringResponse(http.StatusUnauthorized, `{"success":false}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK,
				`{"success":true,"user":{"id":17,"name":"Ana","email":"ana@example.com","role":"user"}}`), nil
		})

	p, err := a.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "17", p.UserID)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.False(t, p.IsAdmin())

	_, err = a.Authenticate(context.Background(), "bad")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestRemoteAuthenticator_StringIDAndFailures(t *testing.T) {
	a := newMockedRemote(t)
	httpmock.RegisterResponder(http.MethodGet, "http://auth.local/api/auth/me",
		httpmock.NewStringResponder(http.StatusOK, `{"success":true,"user":{"id":"665f1c","role":"admin"}}`))

	p, err := a.Authenticate(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "665f1c", p.UserID)
	assert.True(t, p.IsAdmin())

	httpmock.RegisterResponder(http.MethodGet, "http://auth.local/api/auth/me",
		httpmock.NewStringResponder(http.StatusOK, `{"success":false,"message":"expired"}`))
	_, err = a.Authenticate(context.Background(), "t")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	httpmock.RegisterResponder(http.MethodGet, "http://auth.local/api/auth/me",
		httpmock.NewStringResponder(http.StatusBadGateway, `upstream down`))
	_, err = a.Authenticate(context.Background(), "t")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))
}

func TestNewAuthenticator(t *testing.T) {
	a, err := NewAuthenticator(&structures.Config{Auth: structures.AuthConfig{Mode: "jwt", Secret: "s"}}, &cacheTestLogger{})
	require.NoError(t, err)
	assert.IsType(t, &JWTAuthenticator{}, a)

	a, err = NewAuthenticator(&structures.Config{Auth: structures.AuthConfig{Mode: "remote", URL: "http://x"}}, &cacheTestLogger{})
	require.NoError(t, err)
	assert.IsType(t, &RemoteAuthenticator{}, a)

	_, err = NewAuthenticator(&structures.Config{Auth: structures.AuthConfig{Mode: "saml"}}, &cacheTestLogger{})
	assert.Error(t, err)
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(p.UserID))
	})
}

func TestAuthMiddleware_Require(t *testing.T) {
	a := NewJWTAuthenticator(testSecret, "")
	metrics := &authTestMetrics{}
	mw := NewAuthMiddleware(a, &cacheTestLogger{}, metrics)
	h := mw.Require(principalEcho())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"Authentication required"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("Authorization", "Bearer nope")
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := a.Issue(Principal{UserID: "u9"}, time.Hour)
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u9", rr.Body.String())

	assert.Equal(t, []string{"missing_token", "invalid_token"}, metrics.failures)
}

func TestAuthMiddleware_RequireRole(t *testing.T) {
	a := NewJWTAuthenticator(testSecret, "")
	mw := NewAuthMiddleware(a, &cacheTestLogger{}, &authTestMetrics{})
	h := mw.RequireRole(RoleAdmin, principalEcho())

	userToken, _ := a.Issue(Principal{UserID: "u1", Role: "user"}, time.Hour)
	adminToken, _ := a.Issue(Principal{UserID: "root", Role: RoleAdmin}, time.Hour)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users/u1/measurements", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/admin/users/u1/measurements", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "root", rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/admin/users/u1/measurements", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
