package model

import "time"

// Subscription binds a device to a service and carries the device's read
// cursor for that service's message stream. LastRead is nil for a device
// that subscribed before the service had any messages; once set it only
// moves forward.
type Subscription struct {
	ID        int64   `gorm:"primaryKey"`
	Device    string  `gorm:"size:40;not null;uniqueIndex:idx_device_service"`
	ServiceID int64   `gorm:"not null;uniqueIndex:idx_device_service"`
	LastRead  *int64  `gorm:"index"`
	CreatedAt time.Time `gorm:"not null"`
	CheckedAt time.Time `gorm:"not null"`

	// Associations
	Service Service
}
