package realtime

import (
	"encoding/json"
	"log/slog"
)

// Broadcaster pushes events to every live connection bound to a user.
// Delivery is best-effort, at-most-once per connection: a write failure
// removes that connection from the registry and delivery continues to the
// rest. Errors are never surfaced to the caller.
type Broadcaster struct {
	Registry *Registry
	Logger   *slog.Logger
}

func NewBroadcaster(registry *Registry, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{Registry: registry, Logger: logger}
}

// Broadcast encodes event once and delivers it to userID's connection
// snapshot. A user with no live connections is a no-op.
func (b *Broadcaster) Broadcast(userID string, event any) {
	if b.Registry == nil || userID == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if b.Logger != nil {
			b.Logger.Error("broadcast encode failed", "user_id", userID, "error", err)
		}
		return
	}
	for _, conn := range b.Registry.ConnectionsFor(userID) {
		if err := conn.Send(payload); err != nil {
			b.Registry.Unbind(userID, conn)
			conn.Close()
			if b.Logger != nil {
				b.Logger.Debug("pruned dead connection", "user_id", userID, "error", err)
			}
		}
	}
}
