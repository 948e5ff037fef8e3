package moderation

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/models"
)

// BanPolicy decides how a denial-triggered ban escalates: temporary bans up
// to a threshold, permanent from then on.
type BanPolicy struct {
	// PermanentBanCount is the number of temporary bans that flips the
	// account to a permanent ban.
	PermanentBanCount int
	// TemporaryBanDuration is how long each temporary ban lasts.
	TemporaryBanDuration time.Duration
}

// BanOutcome describes the ban that was just applied, with enough structure
// for the notification collaborator to compose a message.
type BanOutcome struct {
	// Ordinal is which denial-triggered ban this is for the user, 1-based.
	Ordinal int
	// Permanent is true when the account was banned indefinitely.
	Permanent bool
	// Remaining is how many more temporary bans the user can take before the
	// ban becomes permanent. Zero when Permanent.
	Remaining int
	// Until is the expiry of a temporary ban; nil when Permanent.
	Until *time.Time
}

// Apply escalates the user's ban state and persists it. It never touches the
// moderation history; the caller decides when a ban is warranted.
func (p BanPolicy) Apply(tx *gorm.DB, user *models.User) (BanOutcome, error) {
	user.TemporaryBans++

	outcome := BanOutcome{Ordinal: user.TemporaryBans}
	if user.TemporaryBans >= p.PermanentBanCount {
		user.Banned = true
		outcome.Permanent = true
	} else {
		until := time.Now().Add(p.TemporaryBanDuration)
		user.BannedUntil = &until
		outcome.Until = &until
		outcome.Remaining = p.PermanentBanCount - user.TemporaryBans
	}

	if err := tx.Save(user).Error; err != nil {
		return BanOutcome{}, err
	}
	return outcome, nil
}

// Ordinal spells out a small 1-based position for message composition,
// falling back to the numeric suffix form past twelve.
func ordinalWord(n int) string {
	words := []string{"", "first", "second", "third", "fourth", "fifth", "sixth",
		"seventh", "eighth", "ninth", "tenth", "eleventh", "twelfth"}
	if n > 0 && n < len(words) {
		return words[n]
	}
	suffix := "th"
	switch {
	case n%100/10 == 1:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
