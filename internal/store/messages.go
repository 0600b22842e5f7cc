package store

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"push-relay-backend/internal/model"
)

// AppendMessage persists a new message for the service. The id comes from
// the autoincrement primary key, so concurrent appends each get a distinct
// id in commit order and no partial message is ever visible.
func (s *gormStore) AppendMessage(ctx context.Context, serviceID int64, text, title string, level int, link string) (*model.Message, error) {
	msg := model.Message{
		ServiceID: serviceID,
		Text:      text,
		Title:     title,
		Level:     level,
		Link:      link,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return &msg, nil
}

// MessagesSince returns the service's messages with id > after, ordered by
// id ascending. A nil cursor means the whole stream. The result is
// recomputable: reading does not consume anything.
func (s *gormStore) MessagesSince(ctx context.Context, serviceID int64, after *int64) ([]model.Message, error) {
	q := s.db.WithContext(ctx).
		Preload("Service").
		Where("service_id = ?", serviceID)
	if after != nil {
		q = q.Where("id > ?", *after)
	}

	var msgs []model.Message
	if err := q.Order("id ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// LatestMessageID returns the id of the service's most recent message, or
// nil if it has none.
func (s *gormStore) LatestMessageID(ctx context.Context, serviceID int64) (*int64, error) {
	return latestMessageID(s.db.WithContext(ctx), serviceID)
}

func latestMessageID(tx *gorm.DB, serviceID int64) (*int64, error) {
	var latest sql.NullInt64
	err := tx.Model(&model.Message{}).
		Where("service_id = ?", serviceID).
		Select("MAX(id)").
		Scan(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find latest message: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Int64, nil
}
