package users

import (
	"context"
	"errors"

	"github.com/2beens/inkwell/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrSelfFollow    = errors.New("cannot follow yourself")
	ErrEmailEmpty    = errors.New("user email empty")
	ErrPasswordEmpty = errors.New("user password hash empty")
)

var _ userRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const userColumns = `
	id, email, password_hash,
	COALESCE(name, ''), COALESCE(bio, ''), COALESCE(avatar_url, ''),
	COALESCE(twitter_handle, ''), COALESCE(github_handle, ''),
	created_at, updated_at`

func (r *Repo) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.Create")
	defer span.End()

	if email == "" {
		return nil, ErrEmailEmpty
	}
	if passwordHash == "" {
		return nil, ErrPasswordEmpty
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id, created_at, updated_at;`,
		email, passwordHash,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error, failed to insert user")
	}

	user := &User{
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := rows.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repo) Get(ctx context.Context, id int) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.Get")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.oneUser(rows)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.GetByEmail")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1;`,
		email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.oneUser(rows)
}

func (r *Repo) UpdateProfile(ctx context.Context, id int, update ProfileUpdate) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.UpdateProfile")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	tag, err := r.db.Exec(
		ctx,
		`
			UPDATE users SET
				name = $1, bio = $2, avatar_url = $3,
				twitter_handle = $4, github_handle = $5,
				updated_at = now()
			WHERE id = $6;
		`,
		update.Name, update.Bio, update.AvatarURL,
		update.TwitterHandle, update.GithubHandle,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repo) Follow(ctx context.Context, followerID, followingID int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.Follow")
	defer span.End()

	if followerID == followingID {
		return ErrSelfFollow
	}

	// following someone twice is a no-op
	_, err := r.db.Exec(
		ctx,
		`
			INSERT INTO follows (follower_id, following_id)
			VALUES ($1, $2)
			ON CONFLICT (follower_id, following_id) DO NOTHING;
		`,
		followerID, followingID,
	)
	return err
}

func (r *Repo) Unfollow(ctx context.Context, followerID, followingID int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.Unfollow")
	defer span.End()

	// removing a non-existent follow edge is a no-op as well
	_, err := r.db.Exec(
		ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND following_id = $2;`,
		followerID, followingID,
	)
	return err
}

func (r *Repo) Followers(ctx context.Context, id int) ([]*PublicProfile, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.Followers")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT u.id,
				COALESCE(u.name, ''), COALESCE(u.bio, ''), COALESCE(u.avatar_url, ''),
				COALESCE(u.twitter_handle, ''), COALESCE(u.github_handle, ''),
				u.created_at
			FROM users u
			JOIN follows f ON f.follower_id = u.id
			WHERE f.following_id = $1
			ORDER BY f.created_at DESC;
		`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.rows2profiles(rows)
}

func (r *Repo) Following(ctx context.Context, id int) ([]*PublicProfile, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.Following")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT u.id,
				COALESCE(u.name, ''), COALESCE(u.bio, ''), COALESCE(u.avatar_url, ''),
				COALESCE(u.twitter_handle, ''), COALESCE(u.github_handle, ''),
				u.created_at
			FROM users u
			JOIN follows f ON f.following_id = u.id
			WHERE f.follower_id = $1
			ORDER BY f.created_at DESC;
		`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.rows2profiles(rows)
}

func (r *Repo) oneUser(rows pgx.Rows) (*User, error) {
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, ErrUserNotFound
	}

	var user User
	if err := rows.Scan(
		&user.ID, &user.Email, &user.PasswordHash,
		&user.Name, &user.Bio, &user.AvatarURL,
		&user.TwitterHandle, &user.GithubHandle,
		&user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repo) rows2profiles(rows pgx.Rows) ([]*PublicProfile, error) {
	profiles := make([]*PublicProfile, 0)
	for rows.Next() {
		var p PublicProfile
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Bio, &p.AvatarURL,
			&p.TwitterHandle, &p.GithubHandle,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}
