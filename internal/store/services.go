package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"push-relay-backend/internal/keys"
	"push-relay-backend/internal/model"
)

// CreateService generates a fresh public/secret key pair and persists the
// service.
func (s *gormStore) CreateService(ctx context.Context, name, icon string) (*model.Service, error) {
	public, err := keys.GeneratePublic()
	if err != nil {
		return nil, err
	}
	secret, err := keys.GenerateSecret()
	if err != nil {
		return nil, err
	}

	svc := model.Service{
		Public: public,
		Secret: secret,
		Name:   name,
		Icon:   icon,
	}
	if err := s.db.WithContext(ctx).Create(&svc).Error; err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return &svc, nil
}

// ServiceByPublic looks a service up by its public key.
func (s *gormStore) ServiceByPublic(ctx context.Context, public string) (*model.Service, error) {
	return s.serviceBy(ctx, "public = ?", public)
}

// ServiceBySecret looks a service up by its secret key.
func (s *gormStore) ServiceBySecret(ctx context.Context, secret string) (*model.Service, error) {
	return s.serviceBy(ctx, "secret = ?", secret)
}

func (s *gormStore) serviceBy(ctx context.Context, query string, arg string) (*model.Service, error) {
	var svc model.Service
	err := s.db.WithContext(ctx).First(&svc, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up service: %w", err)
	}
	return &svc, nil
}

// UpdateService updates the name and/or icon of the service owning the
// secret. Nil fields are left untouched.
func (s *gormStore) UpdateService(ctx context.Context, secret string, name, icon *string) (*model.Service, error) {
	var svc model.Service
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&svc, "secret = ?", secret).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updates := make(map[string]any, 2)
		if name != nil {
			updates["name"] = *name
		}
		if icon != nil {
			updates["icon"] = *icon
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&svc).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update service: %w", err)
	}
	return &svc, nil
}

// DeleteService deletes the service owning the secret, cascading to its
// messages and subscriptions in the same transaction.
func (s *gormStore) DeleteService(ctx context.Context, secret string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var svc model.Service
		if err := tx.First(&svc, "secret = ?", secret).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Where("service_id = ?", svc.ID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("service_id = ?", svc.ID).Delete(&model.Subscription{}).Error; err != nil {
			return err
		}
		return tx.Delete(&svc).Error
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to delete service: %w", err)
	}
	return err
}
