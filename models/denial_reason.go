package models

import (
	"strings"
	"time"
)

// MinDenialReasonLength is the minimum accepted description length.
const MinDenialReasonLength = 10

// PostDenialReason is a reason a moderator can cite when denying a post.
// A nil ModeratorID marks a shared reason visible to every moderator; shared
// reasons are maintained outside the moderator flows and are read-only there.
type PostDenialReason struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `gorm:"size:100;not null" json:"description"`

	ModeratorID *uint `gorm:"index" json:"moderator_id"`
	Moderator   *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Validate checks the description constraint.
func (r *PostDenialReason) Validate() FieldErrors {
	errs := FieldErrors{}
	if len(strings.TrimSpace(r.Description)) < MinDenialReasonLength {
		errs.Add("description", "description must be at least 10 characters long")
	}
	return errs
}
