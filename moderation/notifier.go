package moderation

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/models"
)

// Notifier is told about ban events so a user-facing alert can be dispatched.
// The core never depends on a delivery mechanism; implementations run inside
// the denying transaction and should only enqueue.
type Notifier interface {
	NotifyBan(tx *gorm.DB, status *models.ModerationStatus, author *models.User, outcome BanOutcome) error
}

// Notifiers fans a ban event out to several collaborators.
type Notifiers []Notifier

// NotifyBan informs each collaborator in order, stopping on the first error.
func (n Notifiers) NotifyBan(tx *gorm.DB, status *models.ModerationStatus, author *models.User, outcome BanOutcome) error {
	for _, notifier := range n {
		if err := notifier.NotifyBan(tx, status, author, outcome); err != nil {
			return err
		}
	}
	return nil
}

// OutboxNotifier queues ban alerts as unsent outbox emails in the same
// transaction as the denial; the background sender delivers them later.
type OutboxNotifier struct {
	// AppName appears in the alert wording.
	AppName string
}

// NotifyBan composes the ban alert and stores it for delivery.
func (n OutboxNotifier) NotifyBan(tx *gorm.DB, status *models.ModerationStatus, author *models.User, outcome BanOutcome) error {
	email := models.Email{
		Subject:     "Ban Alert",
		Body:        n.composeBody(status, author, outcome),
		RecipientID: author.ID,
	}
	return tx.Create(&email).Error
}

func (n OutboxNotifier) composeBody(status *models.ModerationStatus, author *models.User, outcome BanOutcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hi %s,\n\n", author.Username)
	if outcome.Permanent {
		fmt.Fprintf(&b, "Unfortunately, you have been indefinitely banned from %s because of the following post:\n\n", n.AppName)
	} else {
		fmt.Fprintf(&b, "Unfortunately, you have been temporarily banned from %s because of the following post:\n\n", n.AppName)
	}
	if status.Post.MemeURL != "" {
		fmt.Fprintf(&b, "%s\n\n", status.Post.MemeURL)
	}
	if status.DenialReason != nil {
		fmt.Fprintf(&b, "Reason: %s\n", status.DenialReason.Description)
	}
	if status.DenialDetail != nil && *status.DenialDetail != "" {
		fmt.Fprintf(&b, "Details: %s\n", *status.DenialDetail)
	}
	if !outcome.Permanent {
		fmt.Fprintf(&b, "\nPlease, be careful. This is your %s ban. %d more ban(s) and it will last indefinitely.\n",
			ordinalWord(outcome.Ordinal), outcome.Remaining)
	}
	return b.String()
}
