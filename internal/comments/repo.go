package comments

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/inkwell/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrCommentNotFound     = errors.New("comment not found")
	ErrCommentContentEmpty = errors.New("comment content empty")
)

type Comment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"post_id"`
	AuthorID  int       `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

var _ commentsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, comment *Comment) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentsRepo.Add")
	span.SetAttributes(attribute.Int("postID", comment.PostID))
	defer span.End()

	if comment.Content == "" {
		return ErrCommentContentEmpty
	}

	return r.db.QueryRow(
		ctx,
		`INSERT INTO comments (post_id, author_id, content) VALUES ($1, $2, $3) RETURNING id, created_at;`,
		comment.PostID, comment.AuthorID, comment.Content,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *Repo) Get(ctx context.Context, id int) (*Comment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentsRepo.Get")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, post_id, author_id, content, created_at FROM comments WHERE id = $1;`,
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
		return nil, ErrCommentNotFound
	}

	var comment Comment
	if err := rows.Scan(
		&comment.ID, &comment.PostID, &comment.AuthorID,
		&comment.Content, &comment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListForPost returns the post's comments, oldest first.
func (r *Repo) ListForPost(ctx context.Context, postID int) ([]*Comment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentsRepo.ListForPost")
	span.SetAttributes(attribute.Int("postID", postID))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, post_id, author_id, content, created_at
			FROM comments
			WHERE post_id = $1
			ORDER BY created_at ASC;
		`,
		postID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2comments(rows)
}

func (r *Repo) Delete(ctx context.Context, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentsRepo.Delete")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func rows2comments(rows pgx.Rows) ([]*Comment, error) {
	comments := make([]*Comment, 0)
	for rows.Next() {
		var comment Comment
		if err := rows.Scan(
			&comment.ID, &comment.PostID, &comment.AuthorID,
			&comment.Content, &comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		comments = append(comments, &comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}
