package posts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2beens/inkwell/internal/taxonomy"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ postsRepo = (*repoMock)(nil)

type repoMock struct {
	mutex     sync.Mutex
	posts     map[int]*Post
	postTags  map[int][]int
	claps     map[[2]int]*Clap
	knownTags map[int]string
	nextID    int
}

func newRepoMock() *repoMock {
	return &repoMock{
		posts:     make(map[int]*Post),
		postTags:  make(map[int][]int),
		claps:     make(map[[2]int]*Clap),
		knownTags: make(map[int]string),
		nextID:    1,
	}
}

func (r *repoMock) addKnownTag(id int, name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.knownTags[id] = name
}

func (r *repoMock) Add(_ context.Context, post *Post, tagIDs []int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if post.Title == "" || post.Content == "" {
		return ErrPostTitleOrContentEmpty
	}
	for _, tagID := range tagIDs {
		if _, ok := r.knownTags[tagID]; !ok {
			return &pgconn.PgError{Code: "23503"}
		}
	}

	post.ID = r.nextID
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	r.posts[post.ID] = post
	r.postTags[post.ID] = tagIDs
	r.nextID++
	return nil
}

func (r *repoMock) Update(_ context.Context, id int, update PostUpdate, tagIDs []int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.posts[id]
	if !ok {
		return ErrPostNotFound
	}
	for _, tagID := range tagIDs {
		if _, ok := r.knownTags[tagID]; !ok {
			return &pgconn.PgError{Code: "23503"}
		}
	}

	post.Title = update.Title
	post.Subtitle = update.Subtitle
	post.Content = update.Content
	post.CoverImageURL = update.CoverImageURL
	post.Excerpt = update.Excerpt
	post.ReadingTime = update.ReadingTime
	post.Published = update.Published
	post.CategoryID = update.CategoryID
	post.UpdatedAt = time.Now()

	if tagIDs != nil {
		r.postTags[id] = tagIDs
	}
	return nil
}

func (r *repoMock) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(r.posts, id)
	delete(r.postTags, id)
	for key := range r.claps {
		if key[1] == id {
			delete(r.claps, key)
		}
	}
	return nil
}

func (r *repoMock) Get(_ context.Context, id int) (*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (r *repoMock) GetWithTags(ctx context.Context, id int) (*Post, error) {
	post, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Tags, err = r.Tags(ctx, id); err != nil {
		return nil, err
	}
	if post.ClapsCount, err = r.ClapCount(ctx, id); err != nil {
		return nil, err
	}
	return post, nil
}

func (r *repoMock) All(_ context.Context) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.sortedPosts(func(*Post) bool { return true }), nil
}

func (r *repoMock) ByAuthor(_ context.Context, authorID int) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.sortedPosts(func(p *Post) bool { return p.AuthorID == authorID }), nil
}

func (r *repoMock) Search(_ context.Context, query string) ([]*Post, error) {
	if query == "" {
		return []*Post{}, nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	query = strings.ToLower(query)
	return r.sortedPosts(func(p *Post) bool {
		return strings.Contains(strings.ToLower(p.Title), query) ||
			strings.Contains(strings.ToLower(p.Content), query)
	}), nil
}

func (r *repoMock) Featured(_ context.Context) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	featured := r.sortedPosts(func(p *Post) bool {
		return p.Published && p.FeaturedAt != nil
	})
	if len(featured) > 10 {
		featured = featured[:10]
	}
	return featured, nil
}

func (r *repoMock) Feature(_ context.Context, id int, featured bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.posts[id]
	if !ok {
		return ErrPostNotFound
	}
	if featured {
		now := time.Now()
		post.FeaturedAt = &now
	} else {
		post.FeaturedAt = nil
	}
	return nil
}

func (r *repoMock) Clap(_ context.Context, userID, postID, count int) (*Clap, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.posts[postID]; !ok {
		return nil, &pgconn.PgError{Code: "23503"}
	}

	key := [2]int{userID, postID}
	clap, ok := r.claps[key]
	if !ok {
		clap = &Clap{UserID: userID, PostID: postID}
		r.claps[key] = clap
	}
	clap.Count += count
	clap.UpdatedAt = time.Now()
	return clap, nil
}

func (r *repoMock) Tags(_ context.Context, postID int) ([]*taxonomy.Tag, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tags := make([]*taxonomy.Tag, 0)
	for _, tagID := range r.postTags[postID] {
		tags = append(tags, &taxonomy.Tag{ID: tagID, Name: r.knownTags[tagID]})
	}
	return tags, nil
}

func (r *repoMock) ClapCount(_ context.Context, postID int) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	total := 0
	for key, clap := range r.claps {
		if key[1] == postID {
			total += clap.Count
		}
	}
	return total, nil
}

func (r *repoMock) sortedPosts(match func(*Post) bool) []*Post {
	posts := make([]*Post, 0)
	for _, post := range r.posts {
		if match(post) {
			posts = append(posts, post)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts
}
