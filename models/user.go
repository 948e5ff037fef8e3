package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// User represents an account. Passwords are stored as bcrypt hashes only.
// The moderation core reads the role fields and mutates the ban fields;
// everything else belongs to the account flows.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`

	Moderator bool `gorm:"default:false" json:"moderator"`
	Staff     bool `gorm:"default:false" json:"staff"`

	// Ban state. Banned is the permanent flag; BannedUntil is a temporary ban
	// expiring at that instant; TemporaryBans counts denial-triggered bans and
	// only ever increases.
	Banned        bool       `gorm:"default:false" json:"banned"`
	BannedUntil   *time.Time `json:"banned_until"`
	TemporaryBans int        `gorm:"default:0" json:"temporary_bans"`

	ActivatedAt       *time.Time `json:"activated_at"`
	DeleteRequestedAt *time.Time `json:"-"`
	Deleted           bool       `gorm:"default:false" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Posts []Post `gorm:"foreignKey:AuthorID" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// Active reports whether the account finished activation.
func (u *User) Active() bool {
	return u.ActivatedAt != nil
}

// BannedAt reports whether the user is banned at the given instant, either
// permanently or by a temporary ban that has not expired yet.
func (u *User) BannedAt(now time.Time) bool {
	if u.Banned {
		return true
	}
	return u.BannedUntil != nil && u.BannedUntil.After(now)
}

// ValidateUsable rejects accounts that cannot act: missing, not activated,
// banned or deleted. The returned error carries a user-facing message.
func ValidateUsable(u *User, now time.Time) error {
	if u == nil {
		return fmt.Errorf("user not found")
	}
	if !u.Active() {
		return fmt.Errorf("user not activated yet")
	}
	if u.Banned {
		return fmt.Errorf("user banned indefinitely")
	}
	if u.BannedUntil != nil && u.BannedUntil.After(now) {
		diff := int(u.BannedUntil.Sub(now).Seconds())
		hours := diff / 3600
		minutes := (diff % 3600) / 60
		seconds := diff % 60
		return fmt.Errorf("user temporarily banned. Ban time remaining: %02d:%02d:%02d", hours, minutes, seconds)
	}
	if u.Deleted {
		return fmt.Errorf("user deleted")
	}
	return nil
}
