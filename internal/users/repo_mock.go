package users

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ userRepo = (*repoMock)(nil)

type repoMock struct {
	mutex   sync.Mutex
	users   map[int]*User
	follows map[[2]int]bool
	nextID  int
}

func newRepoMock() *repoMock {
	return &repoMock{
		users:   make(map[int]*User),
		follows: make(map[[2]int]bool),
		nextID:  1,
	}
}

func (r *repoMock) Create(_ context.Context, email, passwordHash string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}

	user := &User{
		ID:           r.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.users[user.ID] = user
	r.nextID++
	return user, nil
}

func (r *repoMock) Get(_ context.Context, id int) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *repoMock) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *repoMock) UpdateProfile(_ context.Context, id int, update ProfileUpdate) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Name = update.Name
	user.Bio = update.Bio
	user.AvatarURL = update.AvatarURL
	user.TwitterHandle = update.TwitterHandle
	user.GithubHandle = update.GithubHandle
	user.UpdatedAt = time.Now()
	return nil
}

func (r *repoMock) Follow(_ context.Context, followerID, followingID int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if followerID == followingID {
		return ErrSelfFollow
	}
	if _, ok := r.users[followingID]; !ok {
		return &pgconn.PgError{Code: "23503"}
	}
	r.follows[[2]int{followerID, followingID}] = true
	return nil
}

func (r *repoMock) Unfollow(_ context.Context, followerID, followingID int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.follows, [2]int{followerID, followingID})
	return nil
}

func (r *repoMock) Followers(_ context.Context, id int) ([]*PublicProfile, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	followers := make([]*PublicProfile, 0)
	for edge := range r.follows {
		if edge[1] == id {
			if u, ok := r.users[edge[0]]; ok {
				followers = append(followers, u.PublicProfile())
			}
		}
	}
	return followers, nil
}

func (r *repoMock) Following(_ context.Context, id int) ([]*PublicProfile, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	following := make([]*PublicProfile, 0)
	for edge := range r.follows {
		if edge[0] == id {
			if u, ok := r.users[edge[1]]; ok {
				following = append(following, u.PublicProfile())
			}
		}
	}
	return following, nil
}
