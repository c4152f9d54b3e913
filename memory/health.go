package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bkio/crosscloudkit/internal/health"
	"github.com/bkio/crosscloudkit/primitive"
)

const healthProbeScope = "CrossCloudKit.HealthCheck"

// Health performs a set/get/delete round-trip against a throwaway probe
// key, exercising the real read/write path rather than a passive nil check.
func (s *InMemoryService) Health(ctx context.Context) health.Report {
	scope := StringScope(healthProbeScope)
	key := "probe-" + uuid.NewString()
	want := primitive.NewString("ok")

	if res := s.SetKeyValueConditionally(ctx, scope, key, want, false); !res.IsSuccessful() {
		return health.Unhealthy("memory", fmt.Sprintf("probe set failed: %v", res.Err()))
	}
	defer func() { _ = s.DeleteKey(ctx, scope, key, false) }()

	got := s.GetKeyValue(ctx, scope, key)
	if !got.IsSuccessful() || got.Value() == nil || !got.Value().Equal(want) {
		return health.Unhealthy("memory", "probe round-trip returned an unexpected value")
	}
	return health.Healthy("memory", map[string]any{"engine": "in-memory"})
}
