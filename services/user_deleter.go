// Package services holds the background sweeps: stale account deletion and
// outbox draining. Each sweep is a best-effort loop that catches per-item
// failures and keeps going, logging how many items out of the batch worked.
package services

import (
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/config"
	"github.com/rafael-frs-a/gomemes/models"
	"github.com/rafael-frs-a/gomemes/moderation"
	"github.com/rafael-frs-a/gomemes/utils"
)

// StartUserDeleter launches the stale-account sweep: it removes accounts
// whose activation link expired and executes delete requests past the grace
// window. Runs until the process exits.
func StartUserDeleter(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			deleteExpiredUnactivated(db)
			executeDeleteRequests(db)
		}
	}()
}

// deleteExpiredUnactivated hard-deletes accounts that never activated before
// their activation link expired.
func deleteExpiredUnactivated(db *gorm.DB) {
	cfg := config.Get()
	cutoff := time.Now().Add(-time.Duration(cfg.AccountActivationExpiration) * time.Second)

	var users []models.User
	err := db.Where("activated_at IS NULL AND created_at <= ?", cutoff).
		Order("created_at ASC").Find(&users).Error
	if err != nil {
		utils.Sugar.Warnf("user deleter query failed: %v", err)
		return
	}

	count := 0
	for i := range users {
		if err := hardDeleteUser(db, &users[i]); err != nil {
			utils.Sugar.Warnf("failed to delete unactivated user %d: %v", users[i].ID, err)
			continue
		}
		count++
	}
	if len(users) > 0 {
		utils.Sugar.Infof("%d/%d unactivated users deleted", count, len(users))
	}
}

// executeDeleteRequests anonymizes accounts whose deletion request passed the
// grace window.
func executeDeleteRequests(db *gorm.DB) {
	cfg := config.Get()
	cutoff := time.Now().Add(-time.Duration(cfg.AccountDeletionInterval) * time.Second)

	var users []models.User
	err := db.Where("delete_requested_at IS NOT NULL AND delete_requested_at <= ? AND deleted = ?", cutoff, false).
		Order("delete_requested_at ASC").Find(&users).Error
	if err != nil {
		utils.Sugar.Warnf("delete request query failed: %v", err)
		return
	}

	count := 0
	for i := range users {
		if err := ExecuteDeleteRequest(db, &users[i]); err != nil {
			utils.Sugar.Warnf("failed to execute delete request for user %d: %v", users[i].ID, err)
			continue
		}
		count++
	}
	if len(users) > 0 {
		utils.Sugar.Infof("%d/%d delete requests executed", count, len(users))
	}
}

// ExecuteDeleteRequest anonymizes one account. Inside a single transaction it
// releases any moderation lease the user holds, removes the user's posts
// together with their moderation history, drops pending emails, and marks the
// account deleted. A lease can therefore never point at a deleted moderator.
func ExecuteDeleteRequest(db *gorm.DB, user *models.User) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := moderation.ReleaseLeaseTx(tx, user.ID); err != nil {
			return err
		}
		if err := removeUserPosts(tx, user.ID); err != nil {
			return err
		}
		if err := tx.Where("recipient_id = ?", user.ID).Delete(&models.Email{}).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"email":     anonymizedEmail(user.ID),
			"deleted":   true,
			"moderator": false,
			"staff":     false,
		}).Error
	})
}

// hardDeleteUser removes an account outright, used only for accounts that
// never activated.
func hardDeleteUser(db *gorm.DB, user *models.User) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := moderation.ReleaseLeaseTx(tx, user.ID); err != nil {
			return err
		}
		if err := removeUserPosts(tx, user.ID); err != nil {
			return err
		}
		if err := tx.Where("recipient_id = ?", user.ID).Delete(&models.Email{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, user.ID).Error
	})
}

// removeUserPosts deletes the user's posts and everything hanging off them.
// Posts under an active lease held by another moderator disappear too; the
// cascade removes that lease record, which frees the moderator to fetch
// again.
func removeUserPosts(tx *gorm.DB, userID uint) error {
	var postIDs []uint
	err := tx.Model(&models.Post{}).Where("author_id = ?", userID).Pluck("id", &postIDs).Error
	if err != nil {
		return err
	}
	if len(postIDs) == 0 {
		return nil
	}

	if err := tx.Where("post_id IN ?", postIDs).Delete(&models.ModerationStatus{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id IN ?", postIDs).Delete(&models.PostTag{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", postIDs).Delete(&models.Post{}).Error
}

func anonymizedEmail(userID uint) string {
	return "deleted.user." + strconv.FormatUint(uint64(userID), 10) + "@gomemes.invalid"
}
