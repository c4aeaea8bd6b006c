//go:build integration_test || all_tests

package comments

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/2beens/inkwell/internal/db"
	"github.com/2beens/inkwell/internal/posts"
	"github.com/2beens/inkwell/internal/users"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, *posts.Repo, *users.Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postgres host: %s", host)

	params := db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "inkwell",
		TracingEnabled: false,
	}
	require.NoError(t, db.Migrate(params))

	dbPool, err := db.NewDBPool(timeoutCtx, params)
	require.NoError(t, err)

	return NewRepo(dbPool), posts.NewRepo(dbPool), users.NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func TestRepo_AddListDelete(t *testing.T) {
	ctx := context.Background()
	repo, postsRepo, usersRepo, shutdown := testRepoSetup(t)
	defer shutdown()

	author, err := usersRepo.Create(ctx, gofakeit.Email(), "test-hash")
	require.NoError(t, err)

	post := &posts.Post{
		Title:       "commented",
		Content:     "content",
		ReadingTime: 1,
		AuthorID:    author.ID,
	}
	require.NoError(t, postsRepo.Add(ctx, post, nil))

	first := &Comment{PostID: post.ID, AuthorID: author.ID, Content: "first"}
	require.NoError(t, repo.Add(ctx, first))
	second := &Comment{PostID: post.ID, AuthorID: author.ID, Content: "second"}
	require.NoError(t, repo.Add(ctx, second))

	postComments, err := repo.ListForPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, postComments, 2)
	assert.Equal(t, first.ID, postComments[0].ID)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), ErrCommentNotFound)

	require.NoError(t, postsRepo.Delete(ctx, post.ID))
}

func TestRepo_cascadeOnPostDelete(t *testing.T) {
	ctx := context.Background()
	repo, postsRepo, usersRepo, shutdown := testRepoSetup(t)
	defer shutdown()

	author, err := usersRepo.Create(ctx, gofakeit.Email(), "test-hash")
	require.NoError(t, err)

	post := &posts.Post{
		Title:       "short lived",
		Content:     "content",
		ReadingTime: 1,
		AuthorID:    author.ID,
	}
	require.NoError(t, postsRepo.Add(ctx, post, nil))

	comment := &Comment{PostID: post.ID, AuthorID: author.ID, Content: "gone soon"}
	require.NoError(t, repo.Add(ctx, comment))

	require.NoError(t, postsRepo.Delete(ctx, post.ID))

	// comments go down with the post
	_, err = repo.Get(ctx, comment.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}
