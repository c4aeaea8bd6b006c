package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/2beens/inkwell/internal/auth"

	"github.com/stretchr/testify/require"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    int    `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// doRequest sends a JSON request to the running server, attaching the session
// token when given, and returns the response. The caller closes the body.
func doRequest(
	ctx context.Context,
	t *testing.T,
	method, path, token string,
	body any,
) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(bodyJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(auth.TokenHeader, token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeResponse[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded T
	require.NoError(t, json.Unmarshal(respBytes, &decoded), "body: %s", respBytes)
	return decoded
}

// registerUser creates a fresh account through the API and returns its
// session, ready to be used in authenticated requests.
func registerUser(ctx context.Context, t *testing.T, email, password string) sessionResponse {
	t.Helper()

	resp := doRequest(ctx, t, "POST", "/api/auth/register", "", credentials{
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	session := decodeResponse[sessionResponse](t, resp)
	require.NotEmpty(t, session.Token)
	require.NotZero(t, session.User.ID)
	return session
}

func doLogin(ctx context.Context, t *testing.T, email, password string) sessionResponse {
	t.Helper()

	resp := doRequest(ctx, t, "POST", "/api/auth/login", "", credentials{
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login for %s failed", email)

	session := decodeResponse[sessionResponse](t, resp)
	require.NotEmpty(t, session.Token)
	return session
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@inkwell.test", prefix, nextUserOrdinal())
}

var userOrdinal int

func nextUserOrdinal() int {
	userOrdinal++
	return userOrdinal
}
