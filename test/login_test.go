package test

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestRegisterAndLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	email := uniqueEmail("login")
	password := "super-secret-pass"
	registerUser(ctx, t, email, password)

	// registering the same email again is a conflict
	resp := doRequest(ctx, t, "POST", "/api/auth/register", "", credentials{
		Email:    email,
		Password: password,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	cases := map[string]struct {
		creds              credentials
		expectedStatusCode int
	}{
		"good creds": {
			creds:              credentials{Email: email, Password: password},
			expectedStatusCode: http.StatusOK,
		},
		"bad password": {
			creds:              credentials{Email: email, Password: "bad-password"},
			expectedStatusCode: http.StatusUnauthorized,
		},
		"unknown email": {
			creds:              credentials{Email: "nobody@inkwell.test", Password: password},
			expectedStatusCode: http.StatusUnauthorized,
		},
	}

	for name, tc := range cases {
		resp := doRequest(ctx, t, "POST", "/api/auth/login", "", tc.creds)
		assert.Equal(t, tc.expectedStatusCode, resp.StatusCode, "case: %s", name)

		if tc.expectedStatusCode != http.StatusOK {
			respBytes, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			// same message for wrong password and unknown email
			assert.True(t, strings.Contains(string(respBytes), "invalid credentials"))
		}
		require.NoError(t, resp.Body.Close())
	}
}

func (s *IntegrationTestSuite) TestLogoutKillsSession() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := registerUser(ctx, t, uniqueEmail("logout"), "super-secret-pass")

	// session works
	resp := doRequest(ctx, t, "GET", "/api/users/me", session.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = doRequest(ctx, t, "POST", "/api/auth/logout", session.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	// and now it does not
	resp = doRequest(ctx, t, "GET", "/api/users/me", session.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}
