package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Moderation status codes persisted on Post. Single-character codes are part
// of the stored format and must stay stable.
const (
	StatusWaitingModeration = "W"
	StatusModerating        = "M"
	StatusApproved          = "A"
	StatusDenied            = "D"
)

// Post is a meme submitted by a user. The moderation core only mutates
// ModerationStatus, ApprovedAt and the approved-only label fields; creation
// and deletion belong to the posting and account flows.
type Post struct {
	ID       uint `gorm:"primaryKey" json:"-"`
	AuthorID uint `gorm:"index;not null" json:"-"`
	Author   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`

	// Identifier is the externally shareable token; never the primary key.
	Identifier string `gorm:"size:40;uniqueIndex;not null" json:"identifier"`
	MemeURL    string `gorm:"size:512" json:"meme_url"`

	ModerationStatus string     `gorm:"size:2;not null;default:'W'" json:"moderation_status"`
	ApprovedAt       *time.Time `json:"approved_at"`

	// Approved-only derived artifacts, valid only while the post is approved.
	MemeLabels   *string `gorm:"type:text" json:"meme_labels"`
	MemeText     *string `gorm:"type:text" json:"meme_text"`
	MemeLabelled bool    `gorm:"default:false" json:"meme_labelled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tags []PostTag `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"tags"`
}

// BeforeCreate assigns the shareable identifier when absent.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.Identifier == "" {
		p.Identifier = uuid.NewString()
	}
	return nil
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts   []Post `json:"posts"`
	HasNext bool   `json:"has_next"`
}

// GetApprovedPosts returns a page of approved posts, newest approval first,
// optionally filtered by a search term over labels, extracted text and author
// username, and optionally restricted to a single author.
func GetApprovedPosts(db *gorm.DB, page, perPage int, search string, authorID *uint) (PostPage, error) {
	result := PostPage{Posts: []Post{}}
	if page < 1 {
		return result, nil
	}

	query := db.Model(&Post{}).Preload("Author").Preload("Tags").
		Where("moderation_status = ?", StatusApproved)

	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		query = query.Joins("JOIN users ON users.id = posts.author_id").
			Where("posts.meme_labels LIKE ? OR posts.meme_text LIKE ? OR users.username LIKE ?", like, like, like)
	}
	if authorID != nil {
		query = query.Where("posts.author_id = ?", *authorID)
	}

	var posts []Post
	offset := (page - 1) * perPage
	// Fetch one extra row to learn whether another page exists.
	if err := query.Order("approved_at DESC").Offset(offset).Limit(perPage + 1).Find(&posts).Error; err != nil {
		return result, err
	}
	if len(posts) > perPage {
		result.HasNext = true
		posts = posts[:perPage]
	}
	result.Posts = posts
	return result, nil
}

// GetUserPosts returns a page of the author's own posts, newest first,
// regardless of moderation status.
func GetUserPosts(db *gorm.DB, authorID uint, page, perPage int) (PostPage, error) {
	result := PostPage{Posts: []Post{}}
	if page < 1 {
		return result, nil
	}

	var posts []Post
	offset := (page - 1) * perPage
	err := db.Model(&Post{}).Where("author_id = ?", authorID).
		Order("created_at DESC").Offset(offset).Limit(perPage + 1).Find(&posts).Error
	if err != nil {
		return result, err
	}
	if len(posts) > perPage {
		result.HasNext = true
		posts = posts[:perPage]
	}
	result.Posts = posts
	return result, nil
}

// GetApprovedPost looks up a single approved post by its shareable
// identifier. Unapproved posts are reported as absent.
func GetApprovedPost(db *gorm.DB, identifier string) (*Post, error) {
	var post Post
	err := db.Preload("Author").Preload("Tags").
		Where("moderation_status = ? AND identifier = ?", StatusApproved, identifier).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}
