package models

import (
	"time"
)

// Session holds the rate-limit state of one caller session.
type Session struct {
	ID          string    `gorm:"primaryKey;type:varchar(64);not null"`
	LastRequest time.Time `gorm:"index;not null"`
	UpdatedAt   time.Time
}

func (Session) TableName() string {
	return "sessions"
}
