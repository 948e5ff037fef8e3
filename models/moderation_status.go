package models

import (
	"time"
)

// Moderation record results. Same stable single-character codes as the post
// status, minus WaitingModeration which only exists as the absence of records.
const (
	ResultModerating = "M"
	ResultApproved   = "A"
	ResultDenied     = "D"
)

// ModerationStatus is one append-only entry in a post's moderation history.
// A record with Result == ResultModerating whose ModeratorModeratingID is
// still set is an active lease: that moderator exclusively holds the post.
//
// Two storage-level unique indexes carry the concurrency-critical invariants:
//
//   - ModeratingPostID mirrors PostID only while the record is the active
//     lease, so its unique index allows at most one open lease per post.
//     MySQL has no partial unique indexes; the nullable mirror column is the
//     portable equivalent.
//   - ModeratorModeratingID is unique, so a moderator holds at most one open
//     lease system-wide.
//
// The composite (post, result, moderator) index blocks a moderator from
// logging the same terminal verdict twice for one post.
type ModerationStatus struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PostID uint `gorm:"not null;index;uniqueIndex:idx_status_post_result_moderator" json:"post_id"`
	Post   Post `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	Result string `gorm:"size:2;not null;default:'M';uniqueIndex:idx_status_post_result_moderator" json:"result"`

	ModeratorResultID *uint `gorm:"uniqueIndex:idx_status_post_result_moderator" json:"moderator_result_id"`
	ModeratorResult   *User `gorm:"foreignKey:ModeratorResultID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	ModeratorModeratingID *uint `gorm:"uniqueIndex" json:"moderator_moderating_id"`
	ModeratorModerating   *User `gorm:"foreignKey:ModeratorModeratingID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	ModeratingPostID *uint `gorm:"uniqueIndex" json:"-"`

	DenialReasonID *uint             `json:"denial_reason_id"`
	DenialReason   *PostDenialReason `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"denial_reason,omitempty"`
	DenialDetail   *string           `gorm:"type:text" json:"denial_detail,omitempty"`
}

// FieldErrors maps field names to their validation messages.
type FieldErrors map[string][]string

// Add appends a message for a field.
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Validate checks the per-record invariants before persistence. The returned
// map is empty when the record is consistent.
func (s *ModerationStatus) Validate() FieldErrors {
	errs := FieldErrors{}

	if s.ModeratorResultID == nil {
		errs.Add("moderator_result", "moderator result required")
	}

	if s.Result == ResultModerating {
		if s.ModeratorModeratingID != nil && s.ModeratorResultID != nil &&
			*s.ModeratorModeratingID != *s.ModeratorResultID {
			errs.Add("moderator_moderating", "moderator moderating must be identical to moderator result")
		}
	} else if s.ModeratorModeratingID != nil {
		errs.Add("moderator_moderating", "moderator moderating cannot be informed when result is not moderating")
	}

	if s.Result == ResultDenied {
		if s.DenialReasonID == nil {
			errs.Add("denial_reason", "denial reason must be informed")
		}
	} else if s.DenialReasonID != nil {
		errs.Add("denial_reason", "denial reason cannot be informed when result is not denied")
	}

	return errs
}
