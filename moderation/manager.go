package moderation

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/models"
	"github.com/rafael-frs-a/gomemes/utils"
)

// Manager grants and revokes exclusive moderator-post leases and advances the
// post status state machine. Every mutation runs as one transaction with the
// explicit sequence: create/delete record, recompute the derived status,
// cascade-clear approved-only artifacts, then inform collaborators.
type Manager struct {
	db       *gorm.DB
	policy   BanPolicy
	notifier Notifier
}

// NewManager wires the manager with its ban policy and notification
// collaborator.
func NewManager(db *gorm.DB, policy BanPolicy, notifier Notifier) *Manager {
	return &Manager{db: db, policy: policy, notifier: notifier}
}

// statusModerating returns the moderator's active lease record, or nil.
func statusModerating(tx *gorm.DB, moderatorID uint) (*models.ModerationStatus, error) {
	var status models.ModerationStatus
	err := tx.Where("moderator_moderating_id = ?", moderatorID).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// PostModerating returns the post the moderator currently holds, or nil when
// no lease is open.
func (m *Manager) PostModerating(moderatorID uint) (*models.Post, error) {
	status, err := statusModerating(m.db, moderatorID)
	if err != nil || status == nil {
		return nil, err
	}

	var post models.Post
	if err := m.db.Preload("Author").First(&post, status.PostID).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// CheckPostModerating returns the moderator's leased post when the identifier
// matches it. Anything else, including posts leased by someone else or not
// leased at all, is ErrNotFound.
func (m *Manager) CheckPostModerating(moderatorID uint, identifier string) (*models.Post, error) {
	return checkPostModerating(m.db, moderatorID, identifier)
}

func checkPostModerating(tx *gorm.DB, moderatorID uint, identifier string) (*models.Post, error) {
	status, err := statusModerating(tx, moderatorID)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, ErrNotFound
	}

	var post models.Post
	if err := tx.Preload("Author").First(&post, status.PostID).Error; err != nil {
		return nil, err
	}
	if post.Identifier != identifier {
		return nil, ErrNotFound
	}
	return &post, nil
}

// FetchPost returns the moderator's current lease, or opens a lease on the
// oldest waiting post whose author is not banned right now. A nil post with a
// nil error means there is nothing to moderate. When two moderators race for
// the same post the storage uniqueness constraint lets exactly one insert
// through; the loser also gets "nothing to moderate".
func (m *Manager) FetchPost(moderatorID uint) (*models.Post, error) {
	var moderator models.User
	if err := m.db.First(&moderator, moderatorID).Error; err != nil {
		return nil, err
	}
	if !moderator.Moderator {
		return nil, nil
	}

	if post, err := m.PostModerating(moderatorID); err != nil || post != nil {
		return post, err
	}

	var leased *models.Post
	err := m.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		var post models.Post
		err := tx.Joins("JOIN users ON users.id = posts.author_id").
			Where("posts.moderation_status = ?", models.StatusWaitingModeration).
			Where("users.banned = ?", false).
			Where("users.banned_until IS NULL OR users.banned_until <= ?", now).
			Order("posts.created_at ASC").
			First(&post).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		status := models.ModerationStatus{
			PostID:                post.ID,
			Result:                models.ResultModerating,
			ModeratorResultID:     &moderator.ID,
			ModeratorModeratingID: &moderator.ID,
			ModeratingPostID:      &post.ID,
		}
		if err := createStatus(tx, &status); err != nil {
			return err
		}
		if err := recomputeStatus(tx, post.ID); err != nil {
			return err
		}

		leased = &post
		return nil
	})
	if errors.Is(err, ErrConflict) {
		// Lost the race for the post, or a second lease slipped in for this
		// moderator. Either way there is nothing to hand out.
		if utils.Sugar != nil {
			utils.Sugar.Debugw("lease fetch lost uniqueness race", "moderator_id", moderatorID)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if leased != nil {
		return m.PostModerating(moderatorID)
	}
	return nil, nil
}

// StopModerating releases the moderator's active lease, reverting the post to
// waiting for moderation. No-op without a lease.
func (m *Manager) StopModerating(moderatorID uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		return releaseLease(tx, moderatorID)
	})
}

// ReleaseLeaseTx releases any active lease held by the user inside the
// caller's transaction. Account deletion and role revocation use it so an
// orphaned lease can never outlive its moderator.
func ReleaseLeaseTx(tx *gorm.DB, userID uint) error {
	return releaseLease(tx, userID)
}

func releaseLease(tx *gorm.DB, moderatorID uint) error {
	status, err := statusModerating(tx, moderatorID)
	if err != nil || status == nil {
		return err
	}
	if err := tx.Delete(&models.ModerationStatus{}, status.ID).Error; err != nil {
		return err
	}
	return recomputeStatus(tx, status.PostID)
}

// Approve records the moderator's approval for their leased post. The stale
// lease record stays in the history but stops being a lease, so the moderator
// is immediately free to fetch again.
func (m *Manager) Approve(moderatorID uint, identifier string) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		post, err := checkPostModerating(tx, moderatorID, identifier)
		if err != nil {
			return err
		}

		status := models.ModerationStatus{
			PostID:            post.ID,
			Result:            models.ResultApproved,
			ModeratorResultID: &moderatorID,
		}
		if err := createStatus(tx, &status); err != nil {
			return err
		}
		if err := supersedeLease(tx, post.ID); err != nil {
			return err
		}
		return recomputeStatus(tx, post.ID)
	})
}

// DenyInput carries the denial form fields.
type DenyInput struct {
	DenialReasonID uint
	DenialDetail   string
	BanUser        bool
}

// Deny records a denial for the moderator's leased post, optionally banning
// the author. Moderators and staff cannot be banned through this path; asking
// to rejects the whole operation before any record is created.
func (m *Manager) Deny(moderatorID uint, identifier string, input DenyInput) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		post, err := checkPostModerating(tx, moderatorID, identifier)
		if err != nil {
			return err
		}

		reason, err := visibleReason(tx, moderatorID, input.DenialReasonID)
		if err != nil {
			return err
		}

		var author models.User
		if err := tx.First(&author, post.AuthorID).Error; err != nil {
			return err
		}
		if input.BanUser {
			if author.Moderator {
				return fieldError("ban_user", "you cannot ban another moderator")
			}
			if author.Staff {
				return fieldError("ban_user", "you cannot ban an admin")
			}
		}

		status := models.ModerationStatus{
			PostID:            post.ID,
			Result:            models.ResultDenied,
			ModeratorResultID: &moderatorID,
			DenialReasonID:    &reason.ID,
		}
		if detail := strings.TrimSpace(input.DenialDetail); detail != "" {
			status.DenialDetail = &detail
		}
		if err := createStatus(tx, &status); err != nil {
			return err
		}
		if err := supersedeLease(tx, post.ID); err != nil {
			return err
		}
		if err := recomputeStatus(tx, post.ID); err != nil {
			return err
		}

		if !input.BanUser {
			return nil
		}

		outcome, err := m.policy.Apply(tx, &author)
		if err != nil {
			return err
		}
		status.Post = *post
		status.DenialReason = reason
		if m.notifier != nil {
			if err := m.notifier.NotifyBan(tx, &status, &author, outcome); err != nil {
				return err
			}
		}
		if utils.Sugar != nil {
			utils.Sugar.Infow("author banned after denial",
				"author_id", author.ID, "ordinal", outcome.Ordinal, "permanent", outcome.Permanent)
		}
		return nil
	})
}

// visibleReason resolves a denial reason the moderator may cite: one of their
// own or a shared one. Anything else fails validation without leaking whether
// the reason exists.
func visibleReason(tx *gorm.DB, moderatorID, reasonID uint) (*models.PostDenialReason, error) {
	var reason models.PostDenialReason
	err := tx.Where("id = ? AND (moderator_id = ? OR moderator_id IS NULL)", reasonID, moderatorID).
		First(&reason).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fieldError("denial_reason", "select a valid denial reason")
	}
	if err != nil {
		return nil, err
	}
	return &reason, nil
}

// createStatus validates and inserts one history record, translating storage
// uniqueness violations to ErrConflict.
func createStatus(tx *gorm.DB, status *models.ModerationStatus) error {
	if fields := status.Validate(); len(fields) > 0 {
		return newValidationError(fields)
	}

	// Belt and braces on top of the unique index: a post already holding an
	// open lease must never get a second one.
	if status.Result == models.ResultModerating {
		var count int64
		err := tx.Model(&models.ModerationStatus{}).
			Where("post_id = ? AND result = ?", status.PostID, models.ResultModerating).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrConflict
		}
	}

	if err := tx.Create(status).Error; err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// supersedeLease turns any open lease record for the post into plain history:
// the moderator back-link and the active-lease mirror column are cleared, so
// both unique indexes free up while the record itself survives.
func supersedeLease(tx *gorm.DB, postID uint) error {
	return tx.Model(&models.ModerationStatus{}).
		Where("post_id = ? AND result = ? AND moderating_post_id IS NOT NULL", postID, models.ResultModerating).
		Updates(map[string]interface{}{
			"moderator_moderating_id": nil,
			"moderating_post_id":      nil,
		}).Error
}

// recomputeStatus re-derives the post's displayed status from its surviving
// history and applies the side effects: ApprovedAt tracks entry to Approved,
// and any state other than Approved clears the approved-only artifacts.
func recomputeStatus(tx *gorm.DB, postID uint) error {
	var post models.Post
	if err := tx.First(&post, postID).Error; err != nil {
		return err
	}

	var records []models.ModerationStatus
	err := tx.Where("post_id = ?", postID).
		Order("created_at DESC").Order("id DESC").
		Find(&records).Error
	if err != nil {
		return err
	}

	status := DeriveStatus(records)
	updates := map[string]interface{}{"moderation_status": status}

	if status == models.StatusApproved {
		if post.ModerationStatus != models.StatusApproved {
			updates["approved_at"] = time.Now()
		}
	} else {
		updates["approved_at"] = nil
		updates["meme_labels"] = nil
		updates["meme_text"] = nil
		updates["meme_labelled"] = false
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
	}

	return tx.Model(&models.Post{}).Where("id = ?", postID).Updates(updates).Error
}

// DeleteStatus removes one history record and re-derives the post status from
// whatever survives, reverting to waiting for moderation when nothing does.
// This is the admin correction path; regular flows never delete history.
func (m *Manager) DeleteStatus(statusID uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		var status models.ModerationStatus
		err := tx.First(&status, statusID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.ModerationStatus{}, status.ID).Error; err != nil {
			return err
		}
		return recomputeStatus(tx, status.PostID)
	})
}

// GrantModerator gives the user the moderator capability.
func (m *Manager) GrantModerator(userID uint) error {
	return m.db.Model(&models.User{}).Where("id = ?", userID).
		Update("moderator", true).Error
}

// RevokeModerator removes the moderator capability and releases any lease the
// user holds in the same transaction, so the revocation can never leave an
// orphaned lease behind.
func (m *Manager) RevokeModerator(userID uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("moderator", false).Error
		if err != nil {
			return err
		}
		return releaseLease(tx, userID)
	})
}

// isDuplicate reports whether err is a storage uniqueness violation. GORM
// translates driver errors when TranslateError is enabled; the string checks
// cover drivers that do not.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
