package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"writehub/internal/model"
)

// SortBy selects the ordering of post listings.
type SortBy string

const (
	SortNewest SortBy = "newest"
	SortViews  SortBy = "views"
)

// ListOptions filters and bounds a post listing. Zero values mean "no filter"
// and, for Limit, "unbounded".
type ListOptions struct {
	Limit    int
	Status   model.PostStatus
	AuthorID uuid.UUID
	SortBy   SortBy
}

// PostRepository defines post persistence operations.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (*model.Post, error)
	List(ctx context.Context, opts ListOptions) ([]model.Post, error)
	Count(ctx context.Context) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts a post and loads its author.
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(post).Error; err != nil {
		return err
	}
	return db.Where("id = ?", post.AuthorID).First(&post.Author).Error
}

// Update writes the mutable columns only. Views and author are never
// overwritten here, so concurrent view increments are not lost.
func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).
		Model(post).
		Select("Title", "Content", "Status", "FeaturedImage", "Category", "Tags", "UpdatedAt").
		Omit(clause.Associations).
		Updates(post).Error
}

// Delete permanently removes a post.
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a post by ID with its author.
func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	return findPost(r.db.WithContext(ctx), id)
}

// IncrementViews bumps the view counter with a single UPDATE and returns the
// post as it is after the increment.
func (r *postRepository) IncrementViews(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post *model.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Post{}).
			Where("id = ?", id).
			UpdateColumn("views", gorm.Expr("views + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		found, err := findPost(tx, id)
		if err != nil {
			return err
		}
		post = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// List returns posts matching opts, newest first unless sorted by views.
func (r *postRepository) List(ctx context.Context, opts ListOptions) ([]model.Post, error) {
	q := r.db.WithContext(ctx).Preload("Author")
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.AuthorID != uuid.Nil {
		q = q.Where("author_id = ?", opts.AuthorID)
	}
	if opts.SortBy == SortViews {
		q = q.Order("views DESC")
	}
	q = q.Order("created_at DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	posts := []model.Post{}
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Count returns the number of stored posts.
func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Post{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func findPost(db *gorm.DB, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	if err := db.Preload("Author").Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}
