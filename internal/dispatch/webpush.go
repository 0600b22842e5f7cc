package dispatch

import (
	"context"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"push-relay-backend/internal/model"
)

// VapidSender delivers payloads over the web push protocol using VAPID
// keys.
type VapidSender struct {
	options *webpush.Options
}

// NewVapidSender creates a web push sender from the configured VAPID
// options.
func NewVapidSender(options *webpush.Options) *VapidSender {
	return &VapidSender{options: options}
}

// Send pushes payload to one registration. A 410 from the push service
// means the registration is gone for good.
func (s *VapidSender) Send(ctx context.Context, reg model.WebPushRegistration, payload []byte) (bool, error) {
	sub := &webpush.Subscription{
		Endpoint: reg.Endpoint,
		Keys: webpush.Keys{
			P256dh: reg.P256DH,
			Auth:   reg.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, s.options)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusGone, nil
}
