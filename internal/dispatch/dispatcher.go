package dispatch

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"push-relay-backend/internal/model"
	"push-relay-backend/internal/store"
)

// GatewaySender submits one batched notification to the mobile push
// gateway, addressed to every recipient token at once.
type GatewaySender interface {
	Send(ctx context.Context, tokens []string, data json.RawMessage) error
}

// MQTTPublisher publishes a payload to a broker topic. The broker, not
// this system, fans a topic out to its subscribers.
type MQTTPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// RelayPublisher fires a payload at the local relay socket.
type RelayPublisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// WebPushSender delivers a payload to one browser push registration. It
// reports expired=true when the push service says the registration is gone.
type WebPushSender interface {
	Send(ctx context.Context, reg model.WebPushRegistration, payload []byte) (expired bool, err error)
}

// Dispatcher performs best-effort fanout of newly appended messages. A nil
// channel is a disabled channel; channel errors are logged and never
// surfaced to the publishing request, and no channel call runs inside the
// message-append transaction.
type Dispatcher struct {
	store   store.Store
	gateway GatewaySender
	mqtt    MQTTPublisher
	relay   RelayPublisher
	webPush WebPushSender
	timeout time.Duration
}

// New creates a dispatcher. Pass nil for any channel that is not
// configured.
func New(st store.Store, gateway GatewaySender, mqtt MQTTPublisher, relay RelayPublisher, webPush WebPushSender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		store:   st,
		gateway: gateway,
		mqtt:    mqtt,
		relay:   relay,
		webPush: webPush,
		timeout: timeout,
	}
}

// Dispatch notifies the message's interested devices through every enabled
// channel. The message must already be committed; nothing here can undo it.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *model.Message, svc *model.Service) {
	body, err := json.Marshal(payload{
		Message:   model.RenderMessage(msg, svc),
		Encrypted: false,
	})
	if err != nil {
		log.Printf("Error encoding fanout payload for message %d: %v", msg.ID, err)
		return
	}

	// The relay is a firehose: every message goes out regardless of
	// subscriptions.
	if d.relay != nil {
		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		if err := d.relay.Publish(cctx, body); err != nil {
			log.Printf("Error publishing message %d to relay socket: %v", msg.ID, err)
		}
		cancel()
	}

	subs, err := d.store.SubscriptionsForService(ctx, svc.ID)
	if err != nil {
		log.Printf("Error resolving subscribers of service %d: %v", svc.ID, err)
		return
	}
	if len(subs) == 0 {
		return
	}

	devices := make([]string, len(subs))
	for i, sub := range subs {
		devices[i] = sub.Device
	}

	if d.gateway != nil {
		d.sendGateway(ctx, devices, body)
	}
	if d.webPush != nil {
		d.sendWebPush(ctx, devices, body)
	}
	if d.mqtt != nil {
		d.sendMqtt(ctx, svc.ID, devices, body, msg.ID)
	}
}

// sendGateway builds the recipient token list and submits a single batched
// gateway call. Gateway delivery never advances read cursors; only an
// explicit poll or mark-read does.
func (d *Dispatcher) sendGateway(ctx context.Context, devices []string, body []byte) {
	regs, err := d.store.GatewayRegistrations(ctx, devices)
	if err != nil {
		log.Printf("Error fetching gateway registrations: %v", err)
		return
	}
	if len(regs) == 0 {
		return
	}

	tokens := make([]string, len(regs))
	for i, reg := range regs {
		tokens[i] = reg.Token
	}

	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.gateway.Send(cctx, tokens, json.RawMessage(body)); err != nil {
		log.Printf("Error sending %d gateway notifications: %v", len(tokens), err)
	}
}

// sendWebPush delivers to each browser registration individually, dropping
// registrations the push service reports as expired.
func (d *Dispatcher) sendWebPush(ctx context.Context, devices []string, body []byte) {
	regs, err := d.store.WebPushRegistrations(ctx, devices)
	if err != nil {
		log.Printf("Error fetching web push registrations: %v", err)
		return
	}

	for _, reg := range regs {
		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		expired, err := d.webPush.Send(cctx, reg, body)
		cancel()
		if err != nil {
			log.Printf("Error sending web push to %s: %v", reg.Endpoint, err)
			continue
		}
		if expired {
			log.Printf("Web push registration for endpoint %s is expired. Deleting.", reg.Endpoint)
			if err := d.store.DeleteWebPushByEndpoint(ctx, reg.Endpoint); err != nil {
				log.Printf("Failed to delete expired web push registration %s: %v", reg.Endpoint, err)
			}
		}
	}
}

// sendMqtt publishes one copy per MQTT-capable device, topic = device uuid,
// then advances the cursors of the devices that got a publish. MQTT is
// treated as immediate consumption: the broker delivers synchronously
// enough that the device is considered to have read the message.
func (d *Dispatcher) sendMqtt(ctx context.Context, serviceID int64, devices []string, body []byte, messageID int64) {
	recipients, err := d.store.MqttDevices(ctx, devices)
	if err != nil {
		log.Printf("Error fetching mqtt registrations: %v", err)
		return
	}

	published := make([]string, 0, len(recipients))
	for _, device := range recipients {
		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.mqtt.Publish(cctx, device, body)
		cancel()
		if err != nil {
			log.Printf("Error publishing message %d to mqtt topic %s: %v", messageID, device, err)
			continue
		}
		published = append(published, device)
	}

	if len(published) > 0 {
		if err := d.store.AdvanceCursors(ctx, serviceID, published, messageID); err != nil {
			log.Printf("Error advancing cursors after mqtt publish: %v", err)
		}
	}
}

// payload is the wire form every channel receives.
type payload struct {
	Message   model.RenderedMessage `json:"message"`
	Encrypted bool                  `json:"encrypted"`
}
