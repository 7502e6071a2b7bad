package publisher

import (
	"context"
	"encoding/json"
	"log"

	r "github.com/dsirine/StretchShop/internal/repository"
)

// OutboxNotifier records entity-change notifications in the outbox table.
// The poller ships them to Kafka later, so a broker outage never blocks a
// payment workflow. Notification is fire-and-forget: failures are logged,
// never surfaced to the orchestrators.
type OutboxNotifier struct {
	repo r.OutboxRepository
}

func NewOutboxNotifier(repo r.OutboxRepository) *OutboxNotifier {
	return &OutboxNotifier{repo: repo}
}

func (n *OutboxNotifier) EntityChanged(ctx context.Context, action, entityType, entityID string, payload any) {
	body, err := json.Marshal(map[string]any{
		"action": action,
		"type":   entityType,
		"id":     entityID,
		"entity": payload,
	})
	if err != nil {
		log.Printf("failed to marshal %s %s notification: %v", entityType, action, err)
		return
	}

	event := &r.OutboxEvent{
		AggregateID: entityID,
		EventType:   entityType + "." + action,
		Payload:     body,
	}
	if err := n.repo.InsertEvent(ctx, event); err != nil {
		log.Printf("failed to record %s %s notification for %s: %v", entityType, action, entityID, err)
	}
}
