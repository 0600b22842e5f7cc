package model

import "time"

// Service is a publishing identity. The public key is what subscribers
// use to find and subscribe to the service; the secret key authorizes
// publishing and management and must never be derivable from the public key.
type Service struct {
	ID        int64     `gorm:"primaryKey"`
	Public    string    `gorm:"size:40;uniqueIndex;not null"`
	Secret    string    `gorm:"size:32;uniqueIndex;not null"`
	Name      string    `gorm:"size:255;not null"`
	Icon      string    `gorm:"size:255;not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
}
