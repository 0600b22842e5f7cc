package model

import "time"

// GatewayRegistration is a device's opt-in for the mobile push gateway
// channel. At most one per device; re-registering replaces the old row.
type GatewayRegistration struct {
	ID        int64  `gorm:"primaryKey"`
	Device    string `gorm:"size:40;uniqueIndex;not null"`
	Token     string `gorm:"size:255;not null"`
	CreatedAt time.Time
}

// MqttRegistration marks a device as MQTT-capable. The device uuid itself
// is the broker topic, so no token is stored.
type MqttRegistration struct {
	ID        int64  `gorm:"primaryKey"`
	Device    string `gorm:"size:40;uniqueIndex;not null"`
	CreatedAt time.Time
}

// WebPushRegistration holds a device's browser push endpoint and keys.
type WebPushRegistration struct {
	ID        int64  `gorm:"primaryKey"`
	Device    string `gorm:"size:40;uniqueIndex;not null"`
	Endpoint  string `gorm:"type:text;not null"`
	P256DH    string `gorm:"column:p256dh;not null"`
	Auth      string `gorm:"not null"`
	CreatedAt time.Time
}
