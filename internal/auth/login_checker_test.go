package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginChecker_UserID(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	loginChecker := NewLoginChecker(time.Hour, db)
	require.NotNil(t, loginChecker)

	ctx := context.Background()

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	userID, err := loginChecker.UserID(ctx, "invalid token")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Zero(t, userID)

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	userID, err = loginChecker.UserID(ctx, "invalid token")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Zero(t, userID) // idempotent

	testToken := "test-token"
	sessionKey := sessionKeyPrefix + testToken

	// a hit also renews the session ttl
	mock.ExpectGet(sessionKey).SetVal("42")
	mock.ExpectExpire(sessionKey, time.Hour).SetVal(true)
	userID, err = loginChecker.UserID(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryChecker_UserID(t *testing.T) {
	checker := NewMemoryChecker(time.Hour)
	ctx := context.Background()

	userID, err := checker.UserID(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Zero(t, userID)

	checker.SetSession("test-token", 42)
	userID, err = checker.UserID(ctx, "test-token")
	require.NoError(t, err)
	assert.Equal(t, 42, userID)

	checker.SetSessionExpiresAt("stale-token", 13, time.Now().Add(-time.Minute))
	userID, err = checker.UserID(ctx, "stale-token")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Zero(t, userID)

	checker.RemoveSession("test-token")
	_, err = checker.UserID(ctx, "test-token")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}
