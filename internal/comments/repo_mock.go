package comments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ commentsRepo = (*repoMock)(nil)

type repoMock struct {
	mutex      sync.Mutex
	comments   map[int]*Comment
	knownPosts map[int]bool
	nextID     int
}

func newRepoMock() *repoMock {
	return &repoMock{
		comments:   make(map[int]*Comment),
		knownPosts: make(map[int]bool),
		nextID:     1,
	}
}

func (r *repoMock) addKnownPost(postID int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.knownPosts[postID] = true
}

func (r *repoMock) Add(_ context.Context, comment *Comment) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if comment.Content == "" {
		return ErrCommentContentEmpty
	}
	if !r.knownPosts[comment.PostID] {
		return &pgconn.PgError{Code: "23503"}
	}

	comment.ID = r.nextID
	comment.CreatedAt = time.Now()
	r.comments[comment.ID] = comment
	r.nextID++
	return nil
}

func (r *repoMock) Get(_ context.Context, id int) (*Comment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	comment, ok := r.comments[id]
	if !ok {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

func (r *repoMock) ListForPost(_ context.Context, postID int) ([]*Comment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	postComments := make([]*Comment, 0)
	for _, comment := range r.comments {
		if comment.PostID == postID {
			postComments = append(postComments, comment)
		}
	}
	sort.Slice(postComments, func(i, j int) bool {
		return postComments[i].CreatedAt.Before(postComments[j].CreatedAt)
	})
	return postComments, nil
}

func (r *repoMock) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.comments[id]; !ok {
		return ErrCommentNotFound
	}
	delete(r.comments, id)
	return nil
}
