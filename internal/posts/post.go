package posts

import (
	"time"

	"github.com/2beens/inkwell/internal/taxonomy"
)

type Post struct {
	ID            int        `json:"id"`
	Title         string     `json:"title"`
	Subtitle      string     `json:"subtitle"`
	Content       string     `json:"content"`
	CoverImageURL string     `json:"cover_image_url"`
	Excerpt       string     `json:"excerpt"`
	ReadingTime   int        `json:"reading_time"`
	Published     bool       `json:"published"`
	FeaturedAt    *time.Time `json:"featured_at,omitempty"`
	CategoryID    *int       `json:"category_id,omitempty"`
	AuthorID      int        `json:"author_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// populated on single-post fetches
	Tags       []*taxonomy.Tag `json:"tags,omitempty"`
	ClapsCount int             `json:"claps_count"`
}

// Clap is one reader's applause for one post, claps from the same reader
// accumulate into the count.
type Clap struct {
	UserID    int       `json:"user_id"`
	PostID    int       `json:"post_id"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
