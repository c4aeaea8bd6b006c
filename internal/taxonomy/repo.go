package taxonomy

import (
	"context"
	"errors"

	"github.com/2beens/inkwell/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var _ taxonomyRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) AddCategory(ctx context.Context, name, description string) (*Category, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "taxonomyRepo.AddCategory")
	defer span.End()

	if name == "" {
		return nil, ErrNameEmpty
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO categories (name, description) VALUES ($1, NULLIF($2, '')) RETURNING id;`,
		name, description,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, errors.New("unexpected error, failed to insert category")
	}

	category := &Category{Name: name, Description: description}
	if err := rows.Scan(&category.ID); err != nil {
		return nil, err
	}
	return category, nil
}

func (r *Repo) GetCategory(ctx context.Context, id int) (*Category, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "taxonomyRepo.GetCategory")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, COALESCE(description, '') FROM categories WHERE id = $1;`,
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
		return nil, ErrCategoryNotFound
	}

	var category Category
	if err := rows.Scan(&category.ID, &category.Name, &category.Description); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repo) AllCategories(ctx context.Context) ([]*Category, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "taxonomyRepo.AllCategories")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, COALESCE(description, '') FROM categories ORDER BY name;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]*Category, 0)
	for rows.Next() {
		var category Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description); err != nil {
			return nil, err
		}
		categories = append(categories, &category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *Repo) AddTag(ctx context.Context, name string) (*Tag, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "taxonomyRepo.AddTag")
	defer span.End()

	if name == "" {
		return nil, ErrNameEmpty
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO tags (name) VALUES ($1) RETURNING id;`,
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, errors.New("unexpected error, failed to insert tag")
	}

	tag := &Tag{Name: name}
	if err := rows.Scan(&tag.ID); err != nil {
		return nil, err
	}
	return tag, nil
}

func (r *Repo) GetTag(ctx context.Context, id int) (*Tag, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "taxonomyRepo.GetTag")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT id, name FROM tags WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, ErrTagNotFound
	}

	var tag Tag
	if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *Repo) AllTags(ctx context.Context) ([]*Tag, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "taxonomyRepo.AllTags")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT id, name FROM tags ORDER BY name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2tags(rows)
}

func rows2tags(rows pgx.Rows) ([]*Tag, error) {
	tags := make([]*Tag, 0)
	for rows.Next() {
		var tag Tag
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
