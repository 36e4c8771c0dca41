package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/agoradao/janus/core"
)

const (
	TopicLogin  = "janus.login"
	TopicLogout = "janus.logout"
)

// LoginEvent announces a freshly established session.
type LoginEvent struct {
	SessionID string    `json:"session_id"`
	Address   string    `json:"address"`
	ChainID   uint64    `json:"chain_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LogoutEvent announces a revoked session.
type LogoutEvent struct {
	Address   string `json:"address"`
	SessionID string `json:"session_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill,
// so downstream consumers (audit, analytics) can follow session lifecycle
// without coupling to this service.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event keyed by the session id.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, session *core.Session) error {
	event := LoginEvent{
		SessionID: session.ID,
		Address:   session.Address,
		ChainID:   session.ChainID,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	}
	return p.publish(TopicLogin, session.ID, event)
}

// PublishLogout publishes a logout event keyed by the session id.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address, sessionID string) error {
	event := LogoutEvent{
		Address:   address,
		SessionID: sessionID,
	}
	return p.publish(TopicLogout, sessionID, event)
}

func (p *WatermillPublisher) publish(topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(key, payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
