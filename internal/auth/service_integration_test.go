//go:build integration_test || all_tests

package auth

import (
	"testing"
	"time"

	pkgtesting "github.com/2beens/inkwell/pkg/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_sessionLifecycle(t *testing.T) {
	ctx, rdb := pkgtesting.GetRedisClientAndCtx(t)
	defer func() {
		require.NoError(t, rdb.Close())
	}()

	service := NewService(time.Minute, rdb)
	checker := NewLoginChecker(time.Minute, rdb)

	token, err := service.NewSession(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := checker.UserID(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)

	loggedOut, err := service.Logout(ctx, token)
	require.NoError(t, err)
	assert.True(t, loggedOut)

	_, err = checker.UserID(ctx, token)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	// logging out twice changes nothing
	loggedOut, err = service.Logout(ctx, token)
	require.NoError(t, err)
	assert.False(t, loggedOut)
}

func TestService_scanAndClean(t *testing.T) {
	ctx, rdb := pkgtesting.GetRedisClientAndCtx(t)
	defer func() {
		require.NoError(t, rdb.Close())
	}()

	service := NewService(time.Minute, rdb)

	liveToken, err := service.NewSession(ctx, 1)
	require.NoError(t, err)

	staleToken, err := service.NewSession(ctx, 2)
	require.NoError(t, err)
	// expire the session key but leave the token in the set
	require.NoError(t, rdb.Del(ctx, sessionKeyPrefix+staleToken).Err())

	service.ScanAndClean(ctx)

	isMember, err := rdb.SIsMember(ctx, tokensSetKey, liveToken).Result()
	require.NoError(t, err)
	assert.True(t, isMember)

	isMember, err = rdb.SIsMember(ctx, tokensSetKey, staleToken).Result()
	require.NoError(t, err)
	assert.False(t, isMember)

	_, err = service.Logout(ctx, liveToken)
	require.NoError(t, err)
}
