package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestService_NewSession(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	service := NewService(time.Hour, db)
	require.NotNil(t, service)
	assert.NotNil(t, service.redisClient)
	assert.Equal(t, time.Hour, service.ttl)

	testToken := "test_token"
	service.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	sessionKey := sessionKeyPrefix + testToken
	mock.ExpectSet(sessionKey, "42", time.Hour).SetVal("OK")
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	token, err := service.NewSession(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Logout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	service := NewService(time.Hour, db)
	require.NotNil(t, service)

	testToken := "test_token"
	sessionKey := sessionKeyPrefix + testToken
	mock.ExpectDel(sessionKey).SetVal(1)
	mock.ExpectSRem(tokensSetKey, testToken).SetVal(1)

	loggedOut, err := service.Logout(context.Background(), testToken)
	require.NoError(t, err)
	assert.True(t, loggedOut)

	// logout with an unknown token deletes nothing
	mock.ExpectDel(sessionKeyPrefix + "unknown").SetVal(0)
	mock.ExpectSRem(tokensSetKey, "unknown").SetVal(0)

	loggedOut, err = service.Logout(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, loggedOut)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ScanAndClean(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	service := NewService(time.Hour, db)
	require.NotNil(t, service)

	t1, t2 := "token1", "token2"
	mock.ExpectSMembers(tokensSetKey).SetVal([]string{t1, t2})
	// t1 session key expired, t2 still alive
	mock.ExpectExists(sessionKeyPrefix + t1).SetVal(0)
	mock.ExpectSRem(tokensSetKey, t1).SetVal(1)
	mock.ExpectExists(sessionKeyPrefix + t2).SetVal(1)

	service.ScanAndClean(context.Background())
	require.NoError(t, mock.ExpectationsWereMet())
}
