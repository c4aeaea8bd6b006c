package taxonomy

import "errors"

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrTagNotFound      = errors.New("tag not found")
	ErrNameEmpty        = errors.New("name empty")
)

type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
