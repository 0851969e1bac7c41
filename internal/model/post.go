package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostStatus represents the publication state of a post.
type PostStatus string

const (
	PostStatusActive   PostStatus = "active"
	PostStatusInactive PostStatus = "inactive"
	PostStatusDraft    PostStatus = "draft"
)

// DefaultCategory is assigned to posts created without a category.
const DefaultCategory = "General"

// Valid reports whether s is one of the known statuses.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusActive, PostStatusInactive, PostStatusDraft:
		return true
	}
	return false
}

// Post represents a blog post owned by its author.
type Post struct {
	ID            uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Title         string     `json:"title" gorm:"size:255;not null"`
	Content       string     `json:"content" gorm:"type:text;not null"`
	FeaturedImage string     `json:"featuredImage" gorm:"size:1024;not null"`
	Status        PostStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index:idx_posts_status_created,priority:1"`
	AuthorID      uuid.UUID  `json:"-" gorm:"type:char(36);not null;index"`
	Category      string     `json:"category" gorm:"size:100;not null;default:'General'"`
	Tags          []string   `json:"tags" gorm:"serializer:json;type:text"`
	Views         int64      `json:"views" gorm:"not null;default:0;index:idx_posts_views,sort:desc"`
	CreatedAt     time.Time  `json:"createdAt" gorm:"index:idx_posts_status_created,priority:2,sort:desc"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	// Relations
	Author User `json:"author" gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT"`
}

// BeforeCreate sets UUID and defaults before creating the record.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PostStatusActive
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return nil
}

// IsAuthoredBy reports whether userID owns the post.
func (p *Post) IsAuthoredBy(userID uuid.UUID) bool {
	return p.AuthorID == userID
}
