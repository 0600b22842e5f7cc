package model

// Rendered wire forms shared by the HTTP layer and the fanout payload.
// Timestamps are integer Unix seconds, matching the public API contract.

// RenderedService is the client-visible view of a Service. Secret is only
// filled in for callers that presented the secret in the first place.
type RenderedService struct {
	Public  string `json:"public"`
	Secret  string `json:"secret,omitempty"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Created int64  `json:"created"`
}

// RenderedMessage is the client-visible view of a Message.
type RenderedMessage struct {
	Service   RenderedService `json:"service"`
	Message   string          `json:"message"`
	Title     string          `json:"title"`
	Link      string          `json:"link"`
	Level     int             `json:"level"`
	Timestamp int64           `json:"timestamp"`
}

// RenderedSubscription is the client-visible view of a Subscription.
type RenderedSubscription struct {
	UUID             string          `json:"uuid"`
	Service          RenderedService `json:"service"`
	Timestamp        int64           `json:"timestamp"`
	TimestampChecked int64           `json:"timestamp_checked"`
}

// RenderService builds the wire view of a service.
func RenderService(s *Service, withSecret bool) RenderedService {
	v := RenderedService{
		Public:  s.Public,
		Name:    s.Name,
		Icon:    s.Icon,
		Created: s.CreatedAt.Unix(),
	}
	if withSecret {
		v.Secret = s.Secret
	}
	return v
}

// RenderMessage builds the wire view of a message belonging to svc.
func RenderMessage(m *Message, svc *Service) RenderedMessage {
	return RenderedMessage{
		Service:   RenderService(svc, false),
		Message:   m.Text,
		Title:     m.Title,
		Link:      m.Link,
		Level:     m.Level,
		Timestamp: m.CreatedAt.Unix(),
	}
}

// RenderSubscription builds the wire view of a subscription. The Service
// association must be loaded.
func RenderSubscription(s *Subscription) RenderedSubscription {
	return RenderedSubscription{
		UUID:             s.Device,
		Service:          RenderService(&s.Service, false),
		Timestamp:        s.CreatedAt.Unix(),
		TimestampChecked: s.CheckedAt.Unix(),
	}
}
