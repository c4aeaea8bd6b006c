package test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postResponse struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	ReadingTime int    `json:"reading_time"`
	AuthorID    int    `json:"author_id"`
	ClapsCount  int    `json:"claps_count"`
	Tags        []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"tags"`
}

type clapResponse struct {
	UserID int `json:"user_id"`
	PostID int `json:"post_id"`
	Count  int `json:"count"`
}

type commentResponse struct {
	ID       int    `json:"id"`
	PostID   int    `json:"post_id"`
	AuthorID int    `json:"author_id"`
	Content  string `json:"content"`
}

type idResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (s *IntegrationTestSuite) TestPublishingFlow() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	author := registerUser(ctx, t, uniqueEmail("author"), "super-secret-pass")
	reader := registerUser(ctx, t, uniqueEmail("reader"), "super-secret-pass")

	// taxonomy first
	resp := doRequest(ctx, t, "POST", "/api/tags", author.Token, map[string]string{
		"name": "golang",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tag := decodeResponse[idResponse](t, resp)

	resp = doRequest(ctx, t, "POST", "/api/categories", author.Token, map[string]string{
		"name":        "engineering",
		"description": "posts about building things",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	category := decodeResponse[idResponse](t, resp)

	// publish a post
	resp = doRequest(ctx, t, "POST", "/api/posts", author.Token, map[string]any{
		"title":       "A pipeline written in anger",
		"content":     "It all started with a flaky deploy script.",
		"published":   true,
		"tag_ids":     []int{tag.ID},
		"category_id": category.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decodeResponse[postResponse](t, resp)
	assert.Equal(t, author.User.ID, post.AuthorID)
	assert.Equal(t, 1, post.ReadingTime)
	assert.NotEmpty(t, post.Excerpt)

	postPath := fmt.Sprintf("/api/posts/%d", post.ID)

	// anyone can read it, tags ride along
	resp = doRequest(ctx, t, "GET", postPath, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decodeResponse[postResponse](t, resp)
	require.Len(t, fetched.Tags, 1)
	assert.Equal(t, "golang", fetched.Tags[0].Name)

	// claps accumulate per reader
	resp = doRequest(ctx, t, "POST", postPath+"/clap", reader.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	clap := decodeResponse[clapResponse](t, resp)
	assert.Equal(t, 1, clap.Count)

	resp = doRequest(ctx, t, "POST", postPath+"/clap", reader.Token, map[string]int{
		"count": 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	clap = decodeResponse[clapResponse](t, resp)
	assert.Equal(t, 6, clap.Count)

	resp = doRequest(ctx, t, "GET", postPath, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched = decodeResponse[postResponse](t, resp)
	assert.Equal(t, 6, fetched.ClapsCount)

	// readers comment, commenting needs a session
	resp = doRequest(ctx, t, "POST", postPath+"/comments", "", map[string]string{
		"content": "drive-by comment",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = doRequest(ctx, t, "POST", postPath+"/comments", reader.Token, map[string]string{
		"content": "been there, great write-up",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	comment := decodeResponse[commentResponse](t, resp)
	assert.Equal(t, reader.User.ID, comment.AuthorID)

	resp = doRequest(ctx, t, "GET", postPath+"/comments", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	postComments := decodeResponse[[]commentResponse](t, resp)
	require.Len(t, postComments, 1)

	// search finds it, only the author can delete it
	resp = doRequest(ctx, t, "GET", "/api/posts/search?q=flaky+deploy", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decodeResponse[[]postResponse](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, post.ID, found[0].ID)

	resp = doRequest(ctx, t, "DELETE", postPath, reader.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = doRequest(ctx, t, "DELETE", postPath, author.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = doRequest(ctx, t, "GET", postPath, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}

func (s *IntegrationTestSuite) TestFollowGraph() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := registerUser(ctx, t, uniqueEmail("writer"), "super-secret-pass")
	fan := registerUser(ctx, t, uniqueEmail("fan"), "super-secret-pass")

	followPath := fmt.Sprintf("/api/users/%d/follow", writer.User.ID)
	resp := doRequest(ctx, t, "POST", followPath, fan.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	// following twice changes nothing
	resp = doRequest(ctx, t, "POST", followPath, fan.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = doRequest(ctx, t, "GET", fmt.Sprintf("/api/users/%d/followers", writer.User.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	followers := decodeResponse[[]idResponse](t, resp)
	require.Len(t, followers, 1)
	assert.Equal(t, fan.User.ID, followers[0].ID)

	// nobody follows themselves
	resp = doRequest(ctx, t, "POST", fmt.Sprintf("/api/users/%d/follow", fan.User.ID), fan.Token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = doRequest(ctx, t, "DELETE", followPath, fan.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = doRequest(ctx, t, "GET", fmt.Sprintf("/api/users/%d/followers", writer.User.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	followers = decodeResponse[[]idResponse](t, resp)
	assert.Empty(t, followers)
}
