package models

import "time"

// Email is an outbox row. Rows are written by whatever flow needs to reach a
// user and drained by the background sender; Sent marks delivery.
type Email struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Subject string `gorm:"size:255;not null" json:"subject"`
	Body    string `gorm:"type:text;not null" json:"body"`
	Sent    bool   `gorm:"default:false;index" json:"sent"`

	RecipientID uint `gorm:"not null;index" json:"recipient_id"`
	Recipient   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
