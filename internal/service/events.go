package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/isp-routing-engine/internal/events"
)

// publishWithDefaults fills event id and timestamp before publication.
// Publication is fire-and-forget: subscriber failures are their own problem.
func publishWithDefaults(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
