package moderation

import (
	"github.com/rafael-frs-a/gomemes/models"
)

// DeriveStatus computes a post's displayed moderation status from its
// surviving history, newest record first. With no surviving records the post
// is back to waiting for moderation.
func DeriveStatus(recordsNewestFirst []models.ModerationStatus) string {
	if len(recordsNewestFirst) == 0 {
		return models.StatusWaitingModeration
	}

	switch recordsNewestFirst[0].Result {
	case models.ResultApproved:
		return models.StatusApproved
	case models.ResultDenied:
		return models.StatusDenied
	default:
		return models.StatusModerating
	}
}
