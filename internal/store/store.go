package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"push-relay-backend/internal/model"
)

// Sentinel errors surfaced to callers. Anything else coming out of the
// store is a persistence failure.
var (
	// ErrNotFound means the referenced service, subscription or
	// registration does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateSubscription means the (device, service) pair is
	// already subscribed.
	ErrDuplicateSubscription = errors.New("already subscribed to that service")
)

// Store defines all database operations: service identities, the global
// message stream, the subscription ledger and push registrations.
type Store interface {
	DB() *gorm.DB

	// Identity store.
	CreateService(ctx context.Context, name, icon string) (*model.Service, error)
	ServiceByPublic(ctx context.Context, public string) (*model.Service, error)
	ServiceBySecret(ctx context.Context, secret string) (*model.Service, error)
	UpdateService(ctx context.Context, secret string, name, icon *string) (*model.Service, error)
	DeleteService(ctx context.Context, secret string) error

	// Message stream. Ids are global, strictly increasing, assigned in
	// creation order.
	AppendMessage(ctx context.Context, serviceID int64, text, title string, level int, link string) (*model.Message, error)
	MessagesSince(ctx context.Context, serviceID int64, after *int64) ([]model.Message, error)
	LatestMessageID(ctx context.Context, serviceID int64) (*int64, error)

	// Subscription ledger.
	Subscribe(ctx context.Context, device string, serviceID int64) (*model.Subscription, error)
	Unsubscribe(ctx context.Context, device string, serviceID int64) error
	SubscriptionsForDevice(ctx context.Context, device string) ([]model.Subscription, error)
	SubscriptionsForService(ctx context.Context, serviceID int64) ([]model.Subscription, error)
	CollectUnread(ctx context.Context, device string) ([]model.Message, error)
	MarkRead(ctx context.Context, device string) error
	AdvanceCursors(ctx context.Context, serviceID int64, devices []string, messageID int64) error

	// Push registrations, one row per (device, channel kind).
	RegisterGateway(ctx context.Context, device, token string) error
	UnregisterGateway(ctx context.Context, device string) error
	GatewayRegistrations(ctx context.Context, devices []string) ([]model.GatewayRegistration, error)
	RegisterMqtt(ctx context.Context, device string) error
	UnregisterMqtt(ctx context.Context, device string) error
	MqttDevices(ctx context.Context, devices []string) ([]string, error)
	RegisterWebPush(ctx context.Context, device, endpoint, p256dh, auth string) error
	UnregisterWebPush(ctx context.Context, device string) error
	DeleteWebPushByEndpoint(ctx context.Context, endpoint string) error
	WebPushRegistrations(ctx context.Context, devices []string) ([]model.WebPushRegistration, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// isDuplicateErr recognizes unique-constraint violations across drivers.
// Gorm's error translation covers postgres; the string checks cover sqlite
// builds where translation is unavailable.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
