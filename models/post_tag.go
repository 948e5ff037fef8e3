package models

// PostTag is one label attached to an approved post by the vision service.
// Tags only exist while the post is approved; the moderation cascade deletes
// them whenever the post leaves the approved state.
type PostTag struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	PostID      uint   `gorm:"not null;uniqueIndex:idx_tag_post_description" json:"post_id"`
	Description string `gorm:"size:100;not null;uniqueIndex:idx_tag_post_description" json:"description"`
}
