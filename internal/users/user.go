package users

import "time"

type User struct {
	ID            int       `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	Bio           string    `json:"bio"`
	AvatarURL     string    `json:"avatar_url"`
	TwitterHandle string    `json:"twitter_handle"`
	GithubHandle  string    `json:"github_handle"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PublicProfile is the projection of a user safe to show to anyone.
// No email, no password hash.
type PublicProfile struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Bio           string    `json:"bio"`
	AvatarURL     string    `json:"avatar_url"`
	TwitterHandle string    `json:"twitter_handle"`
	GithubHandle  string    `json:"github_handle"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *User) PublicProfile() *PublicProfile {
	return &PublicProfile{
		ID:            u.ID,
		Name:          u.Name,
		Bio:           u.Bio,
		AvatarURL:     u.AvatarURL,
		TwitterHandle: u.TwitterHandle,
		GithubHandle:  u.GithubHandle,
		CreatedAt:     u.CreatedAt,
	}
}

// ProfileUpdate carries the editable profile fields. The update is a full
// replace of these columns, an empty field clears the column.
type ProfileUpdate struct {
	Name          string `json:"name"`
	Bio           string `json:"bio"`
	AvatarURL     string `json:"avatar_url"`
	TwitterHandle string `json:"twitter_handle"`
	GithubHandle  string `json:"github_handle"`
}
