package posts

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/inkwell/internal/taxonomy"
	"github.com/2beens/inkwell/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrPostNotFound            = errors.New("post not found")
	ErrPostTitleOrContentEmpty = errors.New("post title or content empty")
)

// PostUpdate carries the full replacement column set for a post update.
type PostUpdate struct {
	Title         string
	Subtitle      string
	Content       string
	CoverImageURL string
	Excerpt       string
	ReadingTime   int
	Published     bool
	CategoryID    *int
}

var _ postsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const postColumns = `
	id, title, COALESCE(subtitle, ''), content,
	COALESCE(cover_image_url, ''), COALESCE(excerpt, ''),
	reading_time, published, featured_at, category_id, author_id,
	created_at, updated_at`

func (r *Repo) Add(ctx context.Context, post *Post, tagIDs []int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Add")
	defer span.End()

	if post.Title == "" || post.Content == "" {
		return ErrPostTitleOrContentEmpty
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(
		ctx,
		`
			INSERT INTO posts (
				title, subtitle, content, cover_image_url, excerpt,
				reading_time, published, category_id, author_id
			) VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)
			RETURNING id, created_at, updated_at;
		`,
		post.Title, post.Subtitle, post.Content, post.CoverImageURL, post.Excerpt,
		post.ReadingTime, post.Published, post.CategoryID, post.AuthorID,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return err
	}

	for _, tagID := range tagIDs {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO posts_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`,
			post.ID, tagID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Update replaces the post's column set. A non-nil tagIDs replaces the whole
// tag set, it is never merged with the existing one; nil leaves tags alone.
func (r *Repo) Update(ctx context.Context, id int, update PostUpdate, tagIDs []int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Update")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	if update.Title == "" || update.Content == "" {
		return ErrPostTitleOrContentEmpty
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(
		ctx,
		`
			UPDATE posts SET
				title = $1, subtitle = NULLIF($2, ''), content = $3,
				cover_image_url = NULLIF($4, ''), excerpt = NULLIF($5, ''),
				reading_time = $6, published = $7, category_id = $8,
				updated_at = now()
			WHERE id = $9;
		`,
		update.Title, update.Subtitle, update.Content,
		update.CoverImageURL, update.Excerpt,
		update.ReadingTime, update.Published, update.CategoryID,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}

	if tagIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM posts_tags WHERE post_id = $1;`, id); err != nil {
			return err
		}
		for _, tagID := range tagIDs {
			if _, err := tx.Exec(
				ctx,
				`INSERT INTO posts_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`,
				id, tagID,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// Delete removes the post, the schema cascades its comments, claps and
// tag joins.
func (r *Repo) Delete(ctx context.Context, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Delete")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id int) (*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Get")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, ErrPostNotFound
	}
	return scanPost(rows)
}

// GetWithTags returns the post enriched with its tags and total clap count.
func (r *Repo) GetWithTags(ctx context.Context, id int) (*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.GetWithTags")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

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

func (r *Repo) All(ctx context.Context) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.All")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2posts(rows)
}

func (r *Repo) ByAuthor(ctx context.Context, authorID int) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.ByAuthor")
	span.SetAttributes(attribute.Int("authorID", authorID))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+postColumns+` FROM posts WHERE author_id = $1 ORDER BY created_at DESC;`,
		authorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2posts(rows)
}

// Search matches the query against titles and contents, case insensitive.
// An empty query returns an empty result without hitting the database.
func (r *Repo) Search(ctx context.Context, query string) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Search")
	defer span.End()

	if query == "" {
		return []*Post{}, nil
	}

	rows, err := r.db.Query(
		ctx,
		`
			SELECT `+postColumns+` FROM posts
			WHERE LOWER(title) LIKE '%' || LOWER($1) || '%'
				OR LOWER(content) LIKE '%' || LOWER($1) || '%'
			ORDER BY created_at DESC;
		`,
		query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2posts(rows)
}

func (r *Repo) Featured(ctx context.Context) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Featured")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT `+postColumns+` FROM posts
			WHERE published AND featured_at IS NOT NULL
			ORDER BY featured_at DESC
			LIMIT 10;
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2posts(rows)
}

// Feature marks the post as featured as of now, or clears the mark.
func (r *Repo) Feature(ctx context.Context, id int, featured bool) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Feature")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	query := `UPDATE posts SET featured_at = now() WHERE id = $1;`
	if !featured {
		query = `UPDATE posts SET featured_at = NULL WHERE id = $1;`
	}

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Clap adds count claps from the given user on the given post. A single
// upsert statement keeps concurrent claps from losing updates.
func (r *Repo) Clap(ctx context.Context, userID, postID, count int) (*Clap, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Clap")
	span.SetAttributes(attribute.Int("postID", postID))
	defer span.End()

	clap := &Clap{
		UserID: userID,
		PostID: postID,
	}
	if err := r.db.QueryRow(
		ctx,
		`
			INSERT INTO claps (user_id, post_id, count)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, post_id) DO UPDATE
				SET count = claps.count + EXCLUDED.count, updated_at = now()
			RETURNING count, updated_at;
		`,
		userID, postID, count,
	).Scan(&clap.Count, &clap.UpdatedAt); err != nil {
		return nil, err
	}
	return clap, nil
}

func (r *Repo) Tags(ctx context.Context, postID int) ([]*taxonomy.Tag, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Tags")
	span.SetAttributes(attribute.Int("postID", postID))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT t.id, t.name FROM tags t
			JOIN posts_tags pt ON pt.tag_id = t.id
			WHERE pt.post_id = $1
			ORDER BY t.name;
		`,
		postID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]*taxonomy.Tag, 0)
	for rows.Next() {
		var tag taxonomy.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *Repo) ClapCount(ctx context.Context, postID int) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.ClapCount")
	span.SetAttributes(attribute.Int("postID", postID))
	defer span.End()

	var count int
	if err := r.db.QueryRow(
		ctx,
		`SELECT COALESCE(SUM(count), 0) FROM claps WHERE post_id = $1;`,
		postID,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanPost(rows pgx.Rows) (*Post, error) {
	var post Post
	if err := rows.Scan(
		&post.ID, &post.Title, &post.Subtitle, &post.Content,
		&post.CoverImageURL, &post.Excerpt,
		&post.ReadingTime, &post.Published, &post.FeaturedAt,
		&post.CategoryID, &post.AuthorID,
		&post.CreatedAt, &post.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &post, nil
}

func rows2posts(rows pgx.Rows) ([]*Post, error) {
	posts := make([]*Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}
