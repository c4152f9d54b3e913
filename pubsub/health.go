package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/bkio/crosscloudkit/internal/health"
)

const healthProbeTopic = "crosscloudkit.health-check"

// Health publishes a probe message to a throwaway topic and waits briefly
// for its own subscriber to observe it, exercising the full
// publish/subscribe/deliver path rather than just checking internal state.
func (s *InMemoryService) Health(ctx context.Context) health.Report {
	received := make(chan struct{}, 1)
	sub := s.Subscribe(ctx, healthProbeTopic, func(context.Context, Message) error {
		select {
		case received <- struct{}{}:
		default:
		}
		return nil
	}, nil)
	if !sub.IsSuccessful() {
		return health.Unhealthy("pubsub", fmt.Sprintf("probe subscribe failed: %v", sub.Err()))
	}
	defer sub.Value().Cancel() //nolint:errcheck

	if res := s.Publish(ctx, healthProbeTopic, []byte(`{"probe":true}`)); !res.IsSuccessful() {
		return health.Unhealthy("pubsub", fmt.Sprintf("probe publish failed: %v", res.Err()))
	}

	select {
	case <-received:
		return health.Healthy("pubsub", map[string]any{"stats": s.Stats()})
	case <-time.After(time.Second):
		return health.Unhealthy("pubsub", "probe message was not delivered within 1s")
	}
}
