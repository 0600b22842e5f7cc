package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"push-relay-backend/internal/model"
)

// Push registrations all share the same shape: at most one row per device
// per channel kind, register replaces, unregister of nothing is an error.

// RegisterGateway stores or replaces the device's mobile push token.
func (s *gormStore) RegisterGateway(ctx context.Context, device, token string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device = ?", device).Delete(&model.GatewayRegistration{}).Error; err != nil {
			return err
		}
		return tx.Create(&model.GatewayRegistration{Device: device, Token: token}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to register gateway device: %w", err)
	}
	return nil
}

// UnregisterGateway removes the device's mobile push registration.
func (s *gormStore) UnregisterGateway(ctx context.Context, device string) error {
	return s.unregister(ctx, device, &model.GatewayRegistration{})
}

// GatewayRegistrations returns the mobile push registrations held by any of
// the given devices.
func (s *gormStore) GatewayRegistrations(ctx context.Context, devices []string) ([]model.GatewayRegistration, error) {
	if len(devices) == 0 {
		return nil, nil
	}
	var regs []model.GatewayRegistration
	err := s.db.WithContext(ctx).Where("device IN ?", devices).Find(&regs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list gateway registrations: %w", err)
	}
	return regs, nil
}

// RegisterMqtt marks the device as MQTT-capable, replacing any prior row.
func (s *gormStore) RegisterMqtt(ctx context.Context, device string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device = ?", device).Delete(&model.MqttRegistration{}).Error; err != nil {
			return err
		}
		return tx.Create(&model.MqttRegistration{Device: device}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to register mqtt device: %w", err)
	}
	return nil
}

// UnregisterMqtt removes the device's MQTT registration.
func (s *gormStore) UnregisterMqtt(ctx context.Context, device string) error {
	return s.unregister(ctx, device, &model.MqttRegistration{})
}

// MqttDevices filters the given devices down to the MQTT-capable ones.
func (s *gormStore) MqttDevices(ctx context.Context, devices []string) ([]string, error) {
	if len(devices) == 0 {
		return nil, nil
	}
	var found []string
	err := s.db.WithContext(ctx).Model(&model.MqttRegistration{}).
		Where("device IN ?", devices).
		Pluck("device", &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mqtt registrations: %w", err)
	}
	return found, nil
}

// RegisterWebPush stores or replaces the device's browser push endpoint.
func (s *gormStore) RegisterWebPush(ctx context.Context, device, endpoint, p256dh, auth string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device = ?", device).Delete(&model.WebPushRegistration{}).Error; err != nil {
			return err
		}
		reg := model.WebPushRegistration{
			Device:   device,
			Endpoint: endpoint,
			P256DH:   p256dh,
			Auth:     auth,
		}
		return tx.Create(&reg).Error
	})
	if err != nil {
		return fmt.Errorf("failed to register web push device: %w", err)
	}
	return nil
}

// UnregisterWebPush removes the device's web push registration.
func (s *gormStore) UnregisterWebPush(ctx context.Context, device string) error {
	return s.unregister(ctx, device, &model.WebPushRegistration{})
}

// DeleteWebPushByEndpoint drops a registration whose endpoint the push
// service reported as gone. Missing rows are not an error here.
func (s *gormStore) DeleteWebPushByEndpoint(ctx context.Context, endpoint string) error {
	err := s.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&model.WebPushRegistration{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete web push registration: %w", err)
	}
	return nil
}

// WebPushRegistrations returns the browser push registrations held by any
// of the given devices.
func (s *gormStore) WebPushRegistrations(ctx context.Context, devices []string) ([]model.WebPushRegistration, error) {
	if len(devices) == 0 {
		return nil, nil
	}
	var regs []model.WebPushRegistration
	err := s.db.WithContext(ctx).Where("device IN ?", devices).Find(&regs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list web push registrations: %w", err)
	}
	return regs, nil
}

func (s *gormStore) unregister(ctx context.Context, device string, kind any) error {
	res := s.db.WithContext(ctx).Where("device = ?", device).Delete(kind)
	if res.Error != nil {
		return fmt.Errorf("failed to unregister device: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
