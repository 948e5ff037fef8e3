package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rafael-frs-a/gomemes/models"
)

func TestDeriveStatus(t *testing.T) {
	moderating := models.ModerationStatus{Result: models.ResultModerating}
	approved := models.ModerationStatus{Result: models.ResultApproved}
	denied := models.ModerationStatus{Result: models.ResultDenied}

	cases := []struct {
		name    string
		records []models.ModerationStatus
		want    string
	}{
		{"no records", nil, models.StatusWaitingModeration},
		{"open lease", []models.ModerationStatus{moderating}, models.StatusModerating},
		{"approved", []models.ModerationStatus{approved, moderating}, models.StatusApproved},
		{"denied", []models.ModerationStatus{denied, moderating}, models.StatusDenied},
		{"approval supersedes denial", []models.ModerationStatus{approved, denied, moderating}, models.StatusApproved},
		{"denial supersedes approval", []models.ModerationStatus{denied, approved, moderating}, models.StatusDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.records))
		})
	}
}
