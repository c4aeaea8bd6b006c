package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2beens/inkwell/internal/auth"
	"github.com/2beens/inkwell/internal/telemetry/metrics"
	"github.com/2beens/inkwell/pkg"

	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// placeholder hash for tests that never verify the password
const testPasswordHash = "test-password-hash"

type sessionsMock struct {
	tokens    map[string]int
	nextToken int
}

func newSessionsMock() *sessionsMock {
	return &sessionsMock{
		tokens: make(map[string]int),
	}
}

func (s *sessionsMock) NewSession(_ context.Context, userID int) (string, error) {
	s.nextToken++
	token := fmt.Sprintf("test-token-%d", s.nextToken)
	s.tokens[token] = userID
	return token, nil
}

func (s *sessionsMock) Logout(_ context.Context, token string) (bool, error) {
	_, ok := s.tokens[token]
	delete(s.tokens, token)
	return ok, nil
}

type rateLimiterMock struct{}

func (rateLimiterMock) Allow(_ context.Context, _ string, _ redis_rate.Limit) (*redis_rate.Result, error) {
	return &redis_rate.Result{Allowed: 1}, nil
}

func newTestHandler(t *testing.T) (*Handler, *repoMock, *sessionsMock, *mux.Router) {
	t.Helper()
	repo := newRepoMock()
	sessions := newSessionsMock()
	handler := NewHandler(repo, sessions, metrics.NewTestManager())
	require.NotNil(t, handler)

	r := mux.NewRouter()
	handler.SetupRoutes(r, rateLimiterMock{}, 100)
	return handler, repo, sessions, r
}

func TestHandler_routes(t *testing.T) {
	_, _, _, r := newTestHandler(t)

	for caseName, route := range map[string]struct {
		name   string
		path   string
		method string
	}{
		"register":      {name: "register", path: "/api/auth/register", method: "POST"},
		"login":         {name: "login", path: "/api/auth/login", method: "POST"},
		"logout":        {name: "logout", path: "/api/auth/logout", method: "POST"},
		"me":            {name: "me", path: "/api/users/me", method: "GET"},
		"profile-put":   {name: "update-profile", path: "/api/users/me", method: "PUT"},
		"user-profile":  {name: "user-profile", path: "/api/users/5", method: "GET"},
		"followers":     {name: "user-followers", path: "/api/users/5/followers", method: "GET"},
		"following":     {name: "user-following", path: "/api/users/5/following", method: "GET"},
		"follow-user":   {name: "follow-user", path: "/api/users/5/follow", method: "POST"},
		"unfollow-user": {name: "unfollow-user", path: "/api/users/5/follow", method: "DELETE"},
	} {
		t.Run(caseName, func(t *testing.T) {
			req, err := http.NewRequest(route.method, route.path, nil)
			require.NoError(t, err)

			routeMatch := &mux.RouteMatch{}
			muxRoute := r.Get(route.name)
			require.NotNil(t, muxRoute)
			assert.True(t, muxRoute.Match(req, routeMatch), caseName)
		})
	}
}

func TestHandler_register(t *testing.T) {
	_, repo, _, r := newTestHandler(t)

	body := `{"email":"ink@well.blog","password":"testpass1234"}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "ink@well.blog", resp.User.Email)
	assert.NotContains(t, rr.Body.String(), "password")

	// duplicate email
	req = httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)

	// short password
	req = httptest.NewRequest("POST", "/api/auth/register",
		strings.NewReader(`{"email":"other@well.blog","password":"short"}`))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Len(t, repo.users, 1)
}

func TestHandler_login(t *testing.T) {
	_, repo, _, r := newTestHandler(t)

	passwordHash, err := pkg.HashPassword("testpass1234")
	require.NoError(t, err)
	user, err := repo.Create(context.Background(), "ink@well.blog", passwordHash)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"ink@well.blog","password":"testpass1234"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)

	// wrong password and unknown email produce identical responses
	req = httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"ink@well.blog","password":"wrong-password"}`))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	wrongPassBody := rr.Body.String()

	req = httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"unknown@well.blog","password":"testpass1234"}`))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, wrongPassBody, rr.Body.String())
}

func TestHandler_logout(t *testing.T) {
	_, _, sessions, r := newTestHandler(t)

	token, err := sessions.NewSession(context.Background(), 1)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.Header.Set(auth.TokenHeader, token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// same token again, session is gone
	req = httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.Header.Set(auth.TokenHeader, token)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_getProfile_public(t *testing.T) {
	_, repo, _, r := newTestHandler(t)

	user, err := repo.Create(context.Background(), "ink@well.blog", testPasswordHash)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateProfile(context.Background(), user.ID, ProfileUpdate{
		Name: "Ink Well",
		Bio:  "scribbles",
	}))

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/users/%d", user.ID), nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var profile PublicProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, "Ink Well", profile.Name)
	// public profile leaks neither email nor hash
	assert.NotContains(t, rr.Body.String(), "ink@well.blog")
	assert.NotContains(t, rr.Body.String(), testPasswordHash)

	req = httptest.NewRequest("GET", "/api/users/999", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_updateProfile(t *testing.T) {
	_, repo, _, r := newTestHandler(t)

	user, err := repo.Create(context.Background(), "ink@well.blog", testPasswordHash)
	require.NoError(t, err)

	body := `{"name":"Ink Well","bio":"scribbles","github_handle":"inkwell"}`
	req := httptest.NewRequest("PUT", "/api/users/me", strings.NewReader(body))
	req = req.WithContext(auth.SetUserIDToContext(req.Context(), user.ID))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Ink Well", repo.users[user.ID].Name)
	assert.Equal(t, "inkwell", repo.users[user.ID].GithubHandle)
}

func TestHandler_followUnfollow(t *testing.T) {
	_, repo, _, r := newTestHandler(t)

	ctx := context.Background()
	follower, err := repo.Create(ctx, "follower@well.blog", testPasswordHash)
	require.NoError(t, err)
	followed, err := repo.Create(ctx, "followed@well.blog", testPasswordHash)
	require.NoError(t, err)

	doReq := func(method, path string, asUserID int) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req = req.WithContext(auth.SetUserIDToContext(req.Context(), asUserID))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	rr := doReq("POST", fmt.Sprintf("/api/users/%d/follow", followed.ID), follower.ID)
	assert.Equal(t, http.StatusOK, rr.Code)

	// follow twice is a no-op
	rr = doReq("POST", fmt.Sprintf("/api/users/%d/follow", followed.ID), follower.ID)
	assert.Equal(t, http.StatusOK, rr.Code)

	// self follow rejected before touching storage
	rr = doReq("POST", fmt.Sprintf("/api/users/%d/follow", follower.ID), follower.ID)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// unknown user
	rr = doReq("POST", "/api/users/999/follow", follower.ID)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	followers, err := repo.Followers(ctx, followed.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, follower.ID, followers[0].ID)

	rr = doReq("DELETE", fmt.Sprintf("/api/users/%d/follow", followed.ID), follower.ID)
	assert.Equal(t, http.StatusOK, rr.Code)

	followers, err = repo.Followers(ctx, followed.ID)
	require.NoError(t, err)
	assert.Empty(t, followers)
}
