package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"push-relay-backend/internal/model"
)

// Subscribe creates the (device, service) subscription with its cursor
// initialized to the service's latest message id, so the new subscriber
// does not see history predating the subscription. The composite unique
// index makes exactly one of any set of concurrent calls for the same pair
// win; the rest fail with ErrDuplicateSubscription.
func (s *gormStore) Subscribe(ctx context.Context, device string, serviceID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		latest, err := latestMessageID(tx, serviceID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		sub = model.Subscription{
			Device:    device,
			ServiceID: serviceID,
			LastRead:  latest,
			CreatedAt: now,
			CheckedAt: now,
		}
		return tx.Create(&sub).Error
	})
	if err != nil {
		if isDuplicateErr(err) {
			return nil, ErrDuplicateSubscription
		}
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&sub.Service, sub.ServiceID).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscribed service: %w", err)
	}
	return &sub, nil
}

// Unsubscribe deletes the (device, service) subscription. Repeated calls
// are an error, not a silent no-op.
func (s *gormStore) Unsubscribe(ctx context.Context, device string, serviceID int64) error {
	res := s.db.WithContext(ctx).
		Where("device = ? AND service_id = ?", device, serviceID).
		Delete(&model.Subscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to unsubscribe: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SubscriptionsForDevice lists a device's subscriptions in insertion order.
func (s *gormStore) SubscriptionsForDevice(ctx context.Context, device string) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := s.db.WithContext(ctx).
		Preload("Service").
		Where("device = ?", device).
		Order("id ASC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// SubscriptionsForService lists every subscription to the service. This is
// the entitlement set the dispatcher fans out to.
func (s *gormStore) SubscriptionsForService(ctx context.Context, serviceID int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := s.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subs, nil
}

// CollectUnread gathers the unread messages across all of the device's
// subscriptions, ordered by message id, and advances each cursor in the
// same transaction. Polling again without new messages yields nothing.
// The cursor advance is guarded: a concurrent dispatch may have pushed
// the cursor past this poll's snapshot, and the poll must not drag it
// back.
func (s *gormStore) CollectUnread(ctx context.Context, device string) ([]model.Message, error) {
	var collected []model.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var subs []model.Subscription
		if err := tx.Where("device = ?", device).Find(&subs).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, sub := range subs {
			q := tx.Preload("Service").Where("service_id = ?", sub.ServiceID)
			if sub.LastRead != nil {
				q = q.Where("id > ?", *sub.LastRead)
			}
			var msgs []model.Message
			if err := q.Order("id ASC").Find(&msgs).Error; err != nil {
				return err
			}

			if err := tx.Model(&model.Subscription{}).
				Where("id = ?", sub.ID).
				Update("checked_at", now).Error; err != nil {
				return err
			}
			if len(msgs) > 0 {
				collected = append(collected, msgs...)
				if err := advanceCursor(tx, sub.ID, msgs[len(msgs)-1].ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect unread messages: %w", err)
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].ID < collected[j].ID })
	return collected, nil
}

// MarkRead moves every cursor of the device to its service's latest
// message without returning anything. Calling it twice in a row, or with
// nothing to read, succeeds and changes nothing.
func (s *gormStore) MarkRead(ctx context.Context, device string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var subs []model.Subscription
		if err := tx.Where("device = ?", device).Find(&subs).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, sub := range subs {
			latest, err := latestMessageID(tx, sub.ServiceID)
			if err != nil {
				return err
			}

			if err := tx.Model(&model.Subscription{}).
				Where("id = ?", sub.ID).
				Update("checked_at", now).Error; err != nil {
				return err
			}
			if latest != nil {
				if err := advanceCursor(tx, sub.ID, *latest); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// advanceCursor moves one subscription's cursor forward to messageID.
// The guard re-checks the stored value, so an update computed from a
// stale snapshot cannot lower a cursor another writer already advanced.
func advanceCursor(tx *gorm.DB, subID, messageID int64) error {
	return tx.Model(&model.Subscription{}).
		Where("id = ?", subID).
		Where("last_read IS NULL OR last_read < ?", messageID).
		Update("last_read", messageID).Error
}

// AdvanceCursors moves the cursors of the given devices on one service
// forward to messageID. Cursors already at or past it are left alone, so
// the call can never move a cursor backwards.
func (s *gormStore) AdvanceCursors(ctx context.Context, serviceID int64, devices []string, messageID int64) error {
	if len(devices) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("service_id = ? AND device IN ?", serviceID, devices).
		Where("last_read IS NULL OR last_read < ?", messageID).
		Updates(map[string]any{
			"last_read":  messageID,
			"checked_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to advance cursors: %w", err)
	}
	return nil
}
