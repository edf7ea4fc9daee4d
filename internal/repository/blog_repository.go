package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/SuyogBora/picode-server/internal/model"
)

// BlogRepo encapsulates queries over `blogs`.
type BlogRepo struct {
	db *sql.DB
}

func NewBlogRepo(db *sql.DB) *BlogRepo {
	return &BlogRepo{db: db}
}

const blogColumns = "id, title, slug, excerpt, content, cover_key, tags, published, published_at, author_id, created_at, updated_at"

func scanBlog(row interface{ Scan(...any) error }) (*model.Blog, error) {
	var (
		b           model.Blog
		publishedAt sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.Title, &b.Slug, &b.Excerpt, &b.Content, &b.CoverKey, &b.Tags,
		&b.Published, &publishedAt, &b.AuthorID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		b.PublishedAt = &t
	}
	return &b, nil
}

// BlogFilter narrows List.  Zero values mean "no filter".
type BlogFilter struct {
	PublishedOnly bool
	Limit         int
	Offset        int
}

// Create inserts a post.  A reused slug yields ErrDuplicate.
func (r *BlogRepo) Create(ctx context.Context, b *model.Blog) error {
	if b.Published && b.PublishedAt == nil {
		now := time.Now().UTC()
		b.PublishedAt = &now
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO blogs (title, slug, excerpt, content, cover_key, tags, published, published_at, author_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Title, b.Slug, b.Excerpt, b.Content, b.CoverKey, b.Tags, b.Published, b.PublishedAt, b.AuthorID)
	if err != nil {
		return classifyWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID fetches a post regardless of publication state.
func (r *BlogRepo) GetByID(ctx context.Context, id uint64) (*model.Blog, error) {
	b, err := scanBlog(r.db.QueryRowContext(ctx, "SELECT "+blogColumns+" FROM blogs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// GetPublishedBySlug fetches a published post for the public site.
func (r *BlogRepo) GetPublishedBySlug(ctx context.Context, slug string) (*model.Blog, error) {
	b, err := scanBlog(r.db.QueryRowContext(ctx,
		"SELECT "+blogColumns+" FROM blogs WHERE slug = ? AND published = 1", slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// List returns posts newest first.
func (r *BlogRepo) List(ctx context.Context, f BlogFilter) ([]*model.Blog, error) {
	q := "SELECT " + blogColumns + " FROM blogs"
	var args []any
	if f.PublishedOnly {
		q += " WHERE published = 1"
	}
	q += " ORDER BY COALESCE(published_at, created_at) DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of a post.  Publishing for the
// first time stamps published_at; unpublishing keeps the old stamp.
func (r *BlogRepo) Update(ctx context.Context, b *model.Blog) error {
	if b.Published && b.PublishedAt == nil {
		now := time.Now().UTC()
		b.PublishedAt = &now
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE blogs SET title = ?, slug = ?, excerpt = ?, content = ?, cover_key = ?, tags = ?,
		        published = ?, published_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		b.Title, b.Slug, b.Excerpt, b.Content, b.CoverKey, b.Tags, b.Published, b.PublishedAt, b.ID)
	if err != nil {
		return classifyWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a post.
func (r *BlogRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM blogs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
