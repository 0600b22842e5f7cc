package model

import "time"

// Message is an immutable fact once created. The autoincrement id is global
// across all services and doubles as the cursor unit for subscriptions.
type Message struct {
	ID        int64  `gorm:"primaryKey"`
	ServiceID int64  `gorm:"index;not null"`
	Text      string `gorm:"type:text;not null"`
	Title     string `gorm:"size:255"`
	Level     int    `gorm:"not null;default:0"`
	Link      string `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time

	// Associations
	Service Service
}
