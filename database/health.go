package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bkio/crosscloudkit/internal/health"
	"github.com/bkio/crosscloudkit/primitive"
)

const healthProbeTable = "crosscloudkit_health_check"

// Health performs a put/get/delete round-trip of a throwaway item in a
// probe table rather than a passive nil check.
func (s *InMemoryService) Health(ctx context.Context) health.Report {
	key := primitive.NewString(uuid.NewString())
	item := map[string]any{"probe": "ok"}

	put := s.PutItem(ctx, healthProbeTable, "id", key, item, true, DoNotReturn)
	if !put.IsSuccessful() {
		return health.Unhealthy("database", fmt.Sprintf("probe put failed: %v", put.Err()))
	}
	defer func() { s.DeleteItem(ctx, healthProbeTable, "id", key, nil, DoNotReturn) }()

	got := s.GetItem(ctx, healthProbeTable, "id", key)
	if !got.IsSuccessful() || got.Value()["probe"] != "ok" {
		return health.Unhealthy("database", "probe round-trip returned an unexpected value")
	}
	return health.Healthy("database", map[string]any{"table": healthProbeTable})
}
