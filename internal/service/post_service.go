package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	apperrors "writehub/internal/errors"
	"writehub/internal/metrics"
	"writehub/internal/model"
	"writehub/internal/repository"
	"writehub/internal/storage"
)

// ImageFile is an uploaded image held in memory.
type ImageFile struct {
	Filename string
	Data     []byte
}

// CreatePostInput is the payload of a new post.
type CreatePostInput struct {
	Title    string
	Content  string
	Status   string
	Category string
	Tags     []string
	Image    *ImageFile
}

// UpdatePostInput holds the fields to change. Nil fields keep their stored value.
type UpdatePostInput struct {
	Title    *string
	Content  *string
	Status   *string
	Category *string
	Tags     *[]string
	Image    *ImageFile
}

// PostService orchestrates the post lifecycle.
type PostService interface {
	ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (*model.Post, error)
	CreatePost(ctx context.Context, authorID uuid.UUID, in CreatePostInput) (*model.Post, error)
	UpdatePost(ctx context.Context, id, requesterID uuid.UUID, in UpdatePostInput) (*model.Post, error)
	DeletePost(ctx context.Context, id, requesterID uuid.UUID) error
}

type postService struct {
	posts         repository.PostRepository
	users         repository.UserRepository
	images        storage.ImageStore
	uploadTimeout time.Duration
	textPolicy    *bluemonday.Policy
	contentPolicy *bluemonday.Policy
	log           logrus.FieldLogger
	metrics       metrics.Recorder
	now           func() time.Time
}

// NewPostService creates a PostService. Uploads are cut off after uploadTimeout.
func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	images storage.ImageStore,
	uploadTimeout time.Duration,
	log logrus.FieldLogger,
	rec metrics.Recorder,
) PostService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &postService{
		posts:         posts,
		users:         users,
		images:        images,
		uploadTimeout: uploadTimeout,
		textPolicy:    bluemonday.StrictPolicy(),
		contentPolicy: bluemonday.UGCPolicy(),
		log:           log,
		metrics:       rec,
		now:           time.Now,
	}
}

func (s *postService) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	posts, err := s.posts.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPost counts a view and returns the post as it is after the increment.
func (s *postService) GetPost(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	post, err := s.posts.IncrementViews(ctx, id)
	if err != nil {
		return nil, mapPostErr(err)
	}
	s.metrics.RecordPostView()
	return post, nil
}

// CreatePost validates the input, uploads the image and only then stores the
// post. Nothing is persisted when any earlier step fails.
func (s *postService) CreatePost(ctx context.Context, authorID uuid.UUID, in CreatePostInput) (*model.Post, error) {
	title := s.sanitizeText(in.Title)
	content := s.sanitizeContent(in.Content)
	if title == "" || content == "" {
		return nil, apperrors.NewValidationError(MsgMissingFields)
	}
	status, err := parseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	if err := checkImage(in.Image); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, authorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find author: %w", err)
	}

	url, err := s.upload(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Title:         title,
		Content:       content,
		FeaturedImage: url,
		Status:        status,
		AuthorID:      authorID,
		Category:      s.sanitizeText(in.Category),
		Tags:          s.cleanTags(in.Tags),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.metrics.RecordPostCreated()
	s.log.WithFields(logrus.Fields{
		"post_id":   post.ID,
		"author_id": authorID,
	}).Info("post created")
	return post, nil
}

// UpdatePost applies the provided fields for the post's author. A new image
// is uploaded before anything is written.
func (s *postService) UpdatePost(ctx context.Context, id, requesterID uuid.UUID, in UpdatePostInput) (*model.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, mapPostErr(err)
	}
	if !post.IsAuthoredBy(requesterID) {
		return nil, apperrors.ErrForbidden
	}

	if in.Title != nil {
		title := s.sanitizeText(*in.Title)
		if title == "" {
			return nil, apperrors.NewValidationError(MsgEmptyTitle)
		}
		post.Title = title
	}
	if in.Content != nil {
		content := s.sanitizeContent(*in.Content)
		if content == "" {
			return nil, apperrors.NewValidationError(MsgEmptyContent)
		}
		post.Content = content
	}
	if in.Status != nil {
		status, err := parseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		post.Status = status
	}
	if in.Category != nil {
		category := s.sanitizeText(*in.Category)
		if category == "" {
			category = model.DefaultCategory
		}
		post.Category = category
	}
	if in.Tags != nil {
		post.Tags = s.cleanTags(*in.Tags)
	}

	if in.Image != nil {
		if err := checkImage(in.Image); err != nil {
			return nil, err
		}
		url, err := s.upload(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		post.FeaturedImage = url
	}

	post.UpdatedAt = s.now()
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	updated, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, mapPostErr(err)
	}
	s.metrics.RecordPostUpdated()
	return updated, nil
}

// DeletePost permanently removes the post for its author.
func (s *postService) DeletePost(ctx context.Context, id, requesterID uuid.UUID) error {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return mapPostErr(err)
	}
	if !post.IsAuthoredBy(requesterID) {
		return apperrors.ErrForbidden
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return mapPostErr(err)
	}

	s.metrics.RecordPostDeleted()
	s.log.WithField("post_id", id).Info("post deleted")
	return nil
}

func (s *postService) upload(ctx context.Context, img *ImageFile) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	start := time.Now()
	url, err := s.images.Upload(ctx, img.Filename, bytes.NewReader(img.Data))
	s.metrics.RecordImageUpload(err == nil, time.Since(start))
	if err != nil {
		s.log.WithError(err).WithField("filename", img.Filename).Warn("image upload failed")
		return "", fmt.Errorf("%w: %v", apperrors.ErrImageUpload, err)
	}
	return url, nil
}

// cleanTags trims and sanitizes tags, dropping empties and repeats while
// keeping first-seen order.
func (s *postService) cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = s.sanitizeText(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// sanitizeText strips all markup from single-line fields.
func (s *postService) sanitizeText(v string) string {
	return stripMarkup(s.textPolicy, v)
}

// sanitizeContent keeps the user-generated-content subset of HTML.
func (s *postService) sanitizeContent(v string) string {
	return stripMarkup(s.contentPolicy, v)
}

const maxSanitizePasses = 4

// stripMarkup removes what policy disallows and stores the remaining text
// unescaped, so "Tom & Jerry" is kept as typed. Passes repeat until the value
// is stable, which also strips markup that was smuggled in as entities.
func stripMarkup(policy *bluemonday.Policy, v string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(policy.Sanitize(v))
		if next == v {
			break
		}
		v = next
	}
	return strings.TrimSpace(v)
}

func parseStatus(raw string) (model.PostStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.PostStatusActive, nil
	}
	status := model.PostStatus(strings.ToLower(raw))
	if !status.Valid() {
		return "", apperrors.NewValidationError(MsgInvalidStatus)
	}
	return status, nil
}

func checkImage(img *ImageFile) error {
	if img == nil || len(img.Data) == 0 {
		return apperrors.NewValidationError(MsgMissingImage)
	}
	if !strings.HasPrefix(mimetype.Detect(img.Data).String(), "image/") {
		return apperrors.NewValidationError(MsgNotAnImage)
	}
	return nil
}

func mapPostErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrPostNotFound
	}
	return err
}
