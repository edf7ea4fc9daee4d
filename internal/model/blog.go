package model

import "time"

// Blog represents a CMS post stored in the `blogs` table.  Only posts with
// Published set are visible on the public endpoints.
type Blog struct {
	ID          uint64     `json:"id"`           // blogs.id
	Title       string     `json:"title"`        // blogs.title
	Slug        string     `json:"slug"`         // blogs.slug (unique)
	Excerpt     string     `json:"excerpt"`      // blogs.excerpt
	Content     string     `json:"content"`      // blogs.content
	CoverKey    string     `json:"cover_key"`    // blogs.cover_key (object storage key)
	Tags        string     `json:"tags"`         // blogs.tags (comma separated)
	Published   bool       `json:"published"`    // blogs.published
	PublishedAt *time.Time `json:"published_at"` // blogs.published_at (nullable)
	AuthorID    uint64     `json:"author_id"`    // blogs.author_id
	CreatedAt   time.Time  `json:"created_at"`   // blogs.created_at
	UpdatedAt   time.Time  `json:"updated_at"`   // blogs.updated_at
}
