package taxonomy

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ taxonomyRepo = (*repoMock)(nil)

type repoMock struct {
	mutex      sync.Mutex
	categories map[int]*Category
	tags       map[int]*Tag
	nextID     int
}

func newRepoMock() *repoMock {
	return &repoMock{
		categories: make(map[int]*Category),
		tags:       make(map[int]*Tag),
		nextID:     1,
	}
}

func (r *repoMock) AddCategory(_ context.Context, name, description string) (*Category, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if name == "" {
		return nil, ErrNameEmpty
	}
	for _, c := range r.categories {
		if c.Name == name {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}

	category := &Category{ID: r.nextID, Name: name, Description: description}
	r.categories[category.ID] = category
	r.nextID++
	return category, nil
}

func (r *repoMock) GetCategory(_ context.Context, id int) (*Category, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	category, ok := r.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

func (r *repoMock) AllCategories(_ context.Context) ([]*Category, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	categories := make([]*Category, 0)
	for _, c := range r.categories {
		categories = append(categories, c)
	}
	return categories, nil
}

func (r *repoMock) AddTag(_ context.Context, name string) (*Tag, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if name == "" {
		return nil, ErrNameEmpty
	}
	for _, tag := range r.tags {
		if tag.Name == name {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}

	tag := &Tag{ID: r.nextID, Name: name}
	r.tags[tag.ID] = tag
	r.nextID++
	return tag, nil
}

func (r *repoMock) GetTag(_ context.Context, id int) (*Tag, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tag, ok := r.tags[id]
	if !ok {
		return nil, ErrTagNotFound
	}
	return tag, nil
}

func (r *repoMock) AllTags(_ context.Context) ([]*Tag, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tags := make([]*Tag, 0)
	for _, tag := range r.tags {
		tags = append(tags, tag)
	}
	return tags, nil
}
