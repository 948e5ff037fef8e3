package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/models"
	"github.com/rafael-frs-a/gomemes/utils"
)

const emailBatchSize = 100

// StartEmailSender launches the outbox drain loop. Each pass picks up unsent
// rows oldest first and tries to deliver them; a failed row stays unsent and
// is retried next pass.
func StartEmailSender(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		for {
			time.Sleep(interval)
			drainOutbox(db)
		}
	}()
}

func drainOutbox(db *gorm.DB) {
	var emails []models.Email
	err := db.Preload("Recipient").Where("sent = ?", false).
		Order("created_at ASC").Limit(emailBatchSize).Find(&emails).Error
	if err != nil {
		utils.Sugar.Warnf("email outbox query failed: %v", err)
		return
	}
	if len(emails) == 0 {
		return
	}

	count := 0
	for i := range emails {
		email := &emails[i]
		if email.Recipient.Deleted || email.Recipient.Email == "" {
			// Recipient gone; mark sent so the row stops cycling
			if err := markSent(db, email.ID); err == nil {
				count++
			}
			continue
		}
		if err := utils.SendMail(email.Recipient.Email, email.Subject, email.Body); err != nil {
			utils.Sugar.Warnf("failed to send email %d to user %d: %v", email.ID, email.RecipientID, err)
			continue
		}
		if err := markSent(db, email.ID); err != nil {
			utils.Sugar.Warnf("failed to mark email %d sent: %v", email.ID, err)
			continue
		}
		count++
	}
	utils.Sugar.Infof("%d/%d emails sent", count, len(emails))
}

func markSent(db *gorm.DB, emailID uint) error {
	return db.Model(&models.Email{}).Where("id = ?", emailID).Update("sent", true).Error
}
