package ports

import (
	"context"

	"github.com/agoradao/janus/core"
)

// EventPublisher notifies other services about session lifecycle changes.
type EventPublisher interface {
	PublishLogin(ctx context.Context, session *core.Session) error
	PublishLogout(ctx context.Context, address string, sessionID string) error
}
