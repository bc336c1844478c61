package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// BroadcastEvent marshals a typed event payload and broadcasts it to all
// connected clients. Event type constants live in the broadcast port;
// payload schemas are shared with the message queue payloads.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
