package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ratelimit "blog-admin/internal/repository/redis"
	"blog-admin/internal/service"
	"blog-admin/internal/session"
)

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	res := apitest.New().
		Handler(env.router).
		Post("/api/auth/login").
		JSON(`{"email":" ADA@example.com ","password":"correct horse"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.success`, true)).
		Assert(jsonpath.Equal(`$.data.user.id`, env.user.ID)).
		Assert(jsonpath.Equal(`$.data.user.role`, "admin")).
		Assert(jsonpath.Present(`$.data.expires`)).
		CookiePresent(session.DefaultCookieName).
		End()

	var token string
	for _, c := range res.Response.Cookies() {
		if c.Name == session.DefaultCookieName {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)
	s := env.issuer.ResolveToken(token)
	require.NotNil(t, s)
	assert.Equal(t, env.user.Claim(), s.User)
}

func TestLogin_FailuresLookIdentical(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	for _, body := range []string{
		`{"email":"nobody@example.com","password":"correct horse"}`,
		`{"email":"ada@example.com","password":"wrong horse"}`,
	} {
		apitest.New().
			Handler(env.router).
			Post("/api/auth/login").
			JSON(body).
			Expect(t).
			Status(http.StatusUnauthorized).
			Body(`{"success":false,"error":"invalid_credentials","message":"Invalid email or password"}`).
			CookieNotPresent(session.DefaultCookieName).
			End()
	}
}

func TestLogin_MissingCredentials(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	apitest.New().
		Handler(env.router).
		Post("/api/auth/login").
		JSON(`{"email":"ada@example.com"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal(`$.error`, "missing_credentials")).
		End()

	apitest.New().
		Handler(env.router).
		Post("/api/auth/login").
		Body(`not json`).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal(`$.error`, "invalid_request")).
		End()
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := &stubLimiter{result: ratelimit.RateLimitResult{Allowed: false, Count: 10, Limit: 10, RetryAfter: 1500 * time.Millisecond}}
	env := newTestEnv(t, limiter, nil)
	apitest.New().
		Handler(env.router).
		Post("/api/auth/login").
		JSON(`{"email":"ada@example.com","password":"correct horse"}`).
		Header("X-Forwarded-For", "203.0.113.7, 10.0.0.1").
		Expect(t).
		Status(http.StatusTooManyRequests).
		Header("Retry-After", "2").
		Header("X-RateLimit-Remaining", "0").
		End()
	assert.Equal(t, 1, limiter.calls)
}

func TestLogin_SuccessResetsRateLimit(t *testing.T) {
	limiter := &stubLimiter{result: ratelimit.RateLimitResult{Allowed: true, Count: 3, Limit: 10}}
	env := newTestEnv(t, limiter, nil)

	apitest.New().
		Handler(env.router).
		Post("/api/auth/login").
		JSON(`{"email":"ada@example.com","password":"wrong horse"}`).
		Header("X-Real-IP", "203.0.113.9").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	assert.Empty(t, limiter.resets)

	apitest.New().
		Handler(env.router).
		Post("/api/auth/login").
		JSON(`{"email":"ada@example.com","password":"correct horse"}`).
		Header("X-Real-IP", "203.0.113.9").
		Expect(t).
		Status(http.StatusOK).
		End()
	assert.Equal(t, []string{"203.0.113.9", "203.0.113.9"}, limiter.keys)
	assert.Equal(t, []string{"203.0.113.9"}, limiter.resets)
}

func TestLogin_RateLimiterErrorFailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errBoom}
	env := newTestEnv(t, limiter, nil)
	apitest.New().
		Handler(env.router).
		Post("/api/auth/login").
		JSON(`{"email":"ada@example.com","password":"correct horse"}`).
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	res := apitest.New().
		Handler(env.router).
		Post("/api/auth/logout").
		Expect(t).
		Status(http.StatusOK).
		End()
	cookies := res.Response.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestSessionEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	apitest.New().
		Handler(env.router).
		Get("/api/auth/session").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	apitest.New().
		Handler(env.router).
		Get("/api/auth/session").
		Header("Authorization", "Bearer "+env.token(t)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.data.user.name`, "Ada")).
		End()
}

func TestChangePassword_Endpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	apitest.New().
		Handler(env.router).
		Post("/api/admin/change-password").
		JSON(`{"currentPassword":"correct horse","newPassword":"brand new pass","confirmPassword":"brand new pass"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	cases := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"short", `{"currentPassword":"correct horse","newPassword":"short","confirmPassword":"short"}`,
			http.StatusBadRequest, "New password must be at least 8 characters"},
		{"mismatch", `{"currentPassword":"correct horse","newPassword":"brand new pass","confirmPassword":"other pass!"}`,
			http.StatusBadRequest, "Passwords don't match"},
		{"wrong current", `{"currentPassword":"wrong horse","newPassword":"brand new pass","confirmPassword":"brand new pass"}`,
			http.StatusBadRequest, "Current password is incorrect"},
		{"ok", `{"currentPassword":"correct horse","newPassword":"brand new pass","confirmPassword":"brand new pass"}`,
			http.StatusOK, "Password updated successfully"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			apitest.New().
				Handler(env.router).
				Post("/api/admin/change-password").
				Cookie(session.DefaultCookieName, env.token(t)).
				JSON(tc.body).
				Expect(t).
				Status(tc.status).
				Assert(jsonpath.Equal(`$.message`, tc.msg)).
				End()
		})
	}

	apitest.New().
		Handler(env.router).
		Post("/api/auth/login").
		JSON(`{"email":"ada@example.com","password":"brand new pass"}`).
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestChangePassword_UnknownSubject(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	claim := env.user.Claim()
	claim.ID = "deleted-account"
	token, _, err := env.issuer.Issue(claim)
	require.NoError(t, err)

	apitest.New().
		Handler(env.router).
		Post("/api/admin/change-password").
		Cookie(session.DefaultCookieName, token).
		JSON(`{"currentPassword":"correct horse","newPassword":"brand new pass","confirmPassword":"brand new pass"}`).
		Expect(t).
		Status(http.StatusNotFound).
		Assert(jsonpath.Equal(`$.message`, "User not found")).
		End()
}

func TestPasswordChangeError_Default(t *testing.T) {
	status, code, _ := passwordChangeError(errBoom)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", code)

	status, _, _ = passwordChangeError(service.ErrCurrentPasswordIncorrect)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestClientID(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	r.RemoteAddr = "198.51.100.2:5555"
	assert.Equal(t, "198.51.100.2", clientID(r))

	// A raw forwarding header does not override the resolved remote address.
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "198.51.100.2", clientID(r))

	r.RemoteAddr = ""
	assert.Equal(t, "anonymous", clientID(r))
}
