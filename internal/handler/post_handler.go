package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"writehub/internal/auth"
	"writehub/internal/model"
	"writehub/internal/repository"
	"writehub/internal/service"
)

// PostHandler handles post endpoints.
type PostHandler struct {
	postService service.PostService
}

// NewPostHandler creates a new post handler.
func NewPostHandler(postService service.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// PostsResponse wraps a post listing.
type PostsResponse struct {
	Posts []model.Post `json:"posts"`
}

// PostResponse is a single post as seen by the requester.
type PostResponse struct {
	*model.Post
	IsAuthor bool `json:"isAuthor"`
}

// ListPosts godoc
// @Summary List posts
// @Description Newest first unless sort=views. limit=0 or absent returns all posts.
// @Tags posts
// @Produce json
// @Param limit query int false "Maximum number of posts"
// @Param status query string false "Filter by status" Enums(active, inactive, draft)
// @Param author query string false "Filter by author id"
// @Param sort query string false "Ordering" Enums(newest, views)
// @Success 200 {object} PostsResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /posts [get]
func (h *PostHandler) ListPosts(c echo.Context) error {
	opts, err := listOptions(c)
	if err != nil {
		return err
	}

	posts, err := h.postService.ListPosts(c.Request().Context(), opts)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, PostsResponse{Posts: posts})
}

// GetPost godoc
// @Summary Get a post
// @Description Every read increments the view counter; the response shows the new count.
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} PostResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [get]
func (h *PostHandler) GetPost(c echo.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}

	post, err := h.postService.GetPost(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}

	resp := PostResponse{Post: post}
	if user, ok := auth.CurrentUser(c); ok {
		resp.IsAuthor = post.IsAuthoredBy(user.ID)
	}
	return c.JSON(http.StatusOK, resp)
}

// CreatePost godoc
// @Summary Create a post
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param status formData string false "Status" Enums(active, inactive, draft)
// @Param category formData string false "Category"
// @Param tags formData string false "Comma-separated tags"
// @Param image formData file true "Featured image"
// @Success 201 {object} model.Post
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /posts [post]
func (h *PostHandler) CreatePost(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized")
	}

	image, err := formImage(c)
	if err != nil {
		return err
	}
	tags, _ := formTags(c)

	post, err := h.postService.CreatePost(c.Request().Context(), user.ID, service.CreatePostInput{
		Title:    c.FormValue("title"),
		Content:  c.FormValue("content"),
		Status:   c.FormValue("status"),
		Category: c.FormValue("category"),
		Tags:     tags,
		Image:    image,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

// UpdatePost godoc
// @Summary Update a post
// @Description Only the author may update. Omitted or empty fields keep their value.
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param title formData string false "Title"
// @Param content formData string false "Content"
// @Param status formData string false "Status" Enums(active, inactive, draft)
// @Param category formData string false "Category"
// @Param tags formData string false "Comma-separated tags"
// @Param image formData file false "Replacement image"
// @Success 200 {object} model.Post
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /posts/{id} [put]
func (h *PostHandler) UpdatePost(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized")
	}
	id, err := postID(c)
	if err != nil {
		return err
	}

	image, err := formImage(c)
	if err != nil {
		return err
	}
	in := service.UpdatePostInput{
		Title:    formOptional(c, "title"),
		Content:  formOptional(c, "content"),
		Status:   formOptional(c, "status"),
		Category: formOptional(c, "category"),
		Image:    image,
	}
	if tags, ok := formTags(c); ok && len(tags) > 0 {
		in.Tags = &tags
	}

	post, err := h.postService.UpdatePost(c.Request().Context(), id, user.ID, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [delete]
func (h *PostHandler) DeletePost(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized")
	}
	id, err := postID(c)
	if err != nil {
		return err
	}

	if err := h.postService.DeletePost(c.Request().Context(), id, user.ID); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Post deleted"})
}

// ListQuery holds the listing filters.
type ListQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=active inactive draft"`
	Author string `query:"author" validate:"omitempty,uuid"`
	Sort   string `query:"sort" validate:"omitempty,oneof=newest views"`
}

func listOptions(c echo.Context) (repository.ListOptions, error) {
	var q ListQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return repository.ListOptions{}, badRequest("Invalid query")
	}
	if c.Echo().Validator != nil {
		if err := c.Validate(&q); err != nil {
			return repository.ListOptions{}, respondError(err)
		}
	}

	opts := repository.ListOptions{
		Limit:  parseLimit(c.QueryParam("limit")),
		Status: model.PostStatus(q.Status),
		SortBy: repository.SortBy(q.Sort),
	}
	if q.Author != "" {
		author, err := uuid.Parse(q.Author)
		if err != nil {
			return repository.ListOptions{}, badRequest("Invalid author id")
		}
		opts.AuthorID = author
	}
	return opts, nil
}

// parseLimit treats anything but a non-negative integer as no limit.
func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func postID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, badRequest("Invalid post id")
	}
	return id, nil
}

// formOptional returns nil for a missing or empty field.
func formOptional(c echo.Context, name string) *string {
	v := c.FormValue(name)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// formTags collects comma-separated tags from every "tags" field. The bool
// reports whether the field was sent at all.
func formTags(c echo.Context) ([]string, bool) {
	params, err := c.FormParams()
	if err != nil {
		return nil, false
	}
	values, ok := params["tags"]
	if !ok {
		return nil, false
	}
	var tags []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags, true
}

// formImage reads the "image" file. A missing file is not an error here;
// the service decides whether one is required.
func formImage(c echo.Context) (*service.ImageFile, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, badRequest("Invalid multipart body")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, respondError(fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, respondError(fmt.Errorf("read upload: %w", err))
	}
	return &service.ImageFile{Filename: fh.Filename, Data: data}, nil
}
