package handler

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/middleware"
	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/repository"
	"github.com/SuyogBora/picode-server/internal/service"
)

// BlogHandler serves the CMS.  Public reads go through the response cache;
// every write drops it.
type BlogHandler struct {
	Blogs    *repository.BlogRepo
	Notifier service.Notifier
	Cache    *middleware.CacheInvalidator
	Log      *zap.Logger
}

func NewBlogHandler(b *repository.BlogRepo, n service.Notifier, cache *middleware.CacheInvalidator, log *zap.Logger) *BlogHandler {
	return &BlogHandler{Blogs: b, Notifier: orNopNotifier(n), Cache: cache, Log: orNop(log).Named("blogs")}
}

type blogReq struct {
	Title     string `json:"title" validate:"required,max=200"`
	Slug      string `json:"slug" validate:"omitempty,max=200"`
	Excerpt   string `json:"excerpt" validate:"max=500"`
	Content   string `json:"content" validate:"required"`
	CoverKey  string `json:"cover_key" validate:"max=512"`
	Tags      string `json:"tags" validate:"max=255"`
	Published bool   `json:"published"`
}

type publishReq struct {
	Published *bool `json:"published" validate:"required"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lower-cases s and joins its alphanumeric runs with dashes.
func slugify(s string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// PublicList returns published posts, newest first.
func (h *BlogHandler) PublicList(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	blogs, err := h.Blogs.List(ctx, repository.BlogFilter{
		PublishedOnly: true,
		Limit:         queryInt(c, "limit", 20, 100),
		Offset:        queryInt(c, "offset", 0, 0),
	})
	if err != nil {
		return repoError(c, h.Log, err, "list blogs failed")
	}
	return c.JSON(http.StatusOK, blogs)
}

// PublicGet returns one published post by slug.
func (h *BlogHandler) PublicGet(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	b, err := h.Blogs.GetPublishedBySlug(ctx, strings.ToLower(c.Param("slug")))
	if err != nil {
		return repoError(c, h.Log, err, "load blog failed")
	}
	return c.JSON(http.StatusOK, b)
}

// List returns every post including drafts.
func (h *BlogHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	blogs, err := h.Blogs.List(ctx, repository.BlogFilter{
		Limit:  queryInt(c, "limit", 50, 200),
		Offset: queryInt(c, "offset", 0, 0),
	})
	if err != nil {
		return repoError(c, h.Log, err, "list blogs failed")
	}
	return c.JSON(http.StatusOK, blogs)
}

func (h *BlogHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	b, err := h.Blogs.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load blog failed")
	}
	return c.JSON(http.StatusOK, b)
}

// Create stores a post authored by the caller.  An empty slug is derived
// from the title.
func (h *BlogHandler) Create(c echo.Context) error {
	var req blogReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	b := &model.Blog{
		Title:     strings.TrimSpace(req.Title),
		Slug:      slugOr(req.Slug, req.Title),
		Excerpt:   req.Excerpt,
		Content:   req.Content,
		CoverKey:  req.CoverKey,
		Tags:      req.Tags,
		Published: req.Published,
	}
	if b.Slug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slug is empty"})
	}
	if p := middleware.PrincipalFrom(c); p != nil {
		b.AuthorID = p.ID
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Blogs.Create(ctx, b); err != nil {
		return repoError(c, h.Log, err, "create blog failed")
	}
	created, err := h.Blogs.GetByID(ctx, b.ID)
	if err != nil {
		return repoError(c, h.Log, err, "load blog failed")
	}
	h.changed(c, created)
	return c.JSON(http.StatusCreated, created)
}

// Update overwrites a post's editable fields.
func (h *BlogHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req blogReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	b, err := h.Blogs.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load blog failed")
	}
	b.Title = strings.TrimSpace(req.Title)
	b.Slug = slugOr(req.Slug, req.Title)
	b.Excerpt, b.Content, b.CoverKey, b.Tags = req.Excerpt, req.Content, req.CoverKey, req.Tags
	b.Published = req.Published
	if err := h.Blogs.Update(ctx, b); err != nil {
		return repoError(c, h.Log, err, "update blog failed")
	}
	updated, err := h.Blogs.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load blog failed")
	}
	h.changed(c, updated)
	return c.JSON(http.StatusOK, updated)
}

// Publish toggles visibility on the public site.
func (h *BlogHandler) Publish(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req publishReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	b, err := h.Blogs.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load blog failed")
	}
	b.Published = *req.Published
	if err := h.Blogs.Update(ctx, b); err != nil {
		return repoError(c, h.Log, err, "update blog failed")
	}
	h.changed(c, b)
	return c.JSON(http.StatusOK, b)
}

func (h *BlogHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Blogs.Delete(ctx, id); err != nil {
		return repoError(c, h.Log, err, "delete blog failed")
	}
	h.Cache.Invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}

func (h *BlogHandler) changed(c echo.Context, b *model.Blog) {
	h.Cache.Invalidate(c.Request().Context())
	notify(c, h.Notifier, service.Audience(service.RoleContentManager), service.EventBlog, b)
}

func slugOr(slug, title string) string {
	if s := slugify(slug); s != "" {
		return s
	}
	return slugify(title)
}
