package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/inkwell/internal/auth"
	"github.com/2beens/inkwell/internal/config"
	"github.com/2beens/inkwell/internal/telemetry/metrics"
	"github.com/2beens/inkwell/internal/uploads"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(
		m,
		goleak.IgnoreTopFunction("github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper"),
	)
}

func testServerSetup(t *testing.T) *Server {
	t.Helper()

	uploadsStore, err := uploads.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	// never dialed, the handlers behind these are not exercised here
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	t.Cleanup(func() {
		require.NoError(t, rdb.Close())
	})

	return &Server{
		config: &config.Config{
			LoginRateLimitAllowedPerMin: 5,
		},
		uploadsStore:   uploadsStore,
		redisClient:    rdb,
		authService:    auth.NewService(auth.DefaultTTL, rdb),
		loginChecker:   auth.NewLoginChecker(auth.DefaultTTL, rdb),
		metricsManager: metrics.NewTestManager(),
	}
}

func TestServer_routerSetup(t *testing.T) {
	server := testServerSetup(t)

	router, err := server.routerSetup()
	require.NoError(t, err)
	require.NotNil(t, router)

	for _, routeName := range []string{
		"root", "version", "health",
		"register", "login", "logout",
		"me", "user-profile", "follow-user",
		"all-posts", "new-post", "get-post", "featured-posts", "search-posts", "clap-post",
		"post-comments", "new-comment", "delete-comment",
		"all-categories", "new-category", "all-tags", "new-tag",
		"upload-image", "serve-upload",
	} {
		assert.NotNil(t, router.GetRoute(routeName), "route %s not registered", routeName)
	}
}

func TestServer_routerSetup_health(t *testing.T) {
	server := testServerSetup(t)

	router, err := server.routerSetup()
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("User-Agent", "test-agent")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"status":"ok"}`, rr.Body.String())
}
