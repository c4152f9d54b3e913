package fileservice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bkio/crosscloudkit/internal/health"
)

const healthProbeBucket = "crosscloudkit-health-check"

// Health performs an upload/download/delete round-trip against a
// throwaway probe object.
func (s *LocalService) Health(ctx context.Context) health.Report {
	key := "probe-" + uuid.NewString()
	body := []byte("ok")

	if res := s.Upload(ctx, healthProbeBucket, key, bytes.NewReader(body), Metadata{}); !res.IsSuccessful() {
		return health.Unhealthy("fileservice", fmt.Sprintf("probe upload failed: %v", res.Err()))
	}
	defer s.Delete(ctx, healthProbeBucket, key)

	var buf bytes.Buffer
	if res := s.Download(ctx, healthProbeBucket, key, &buf, nil); !res.IsSuccessful() || buf.String() != string(body) {
		return health.Unhealthy("fileservice", "probe round-trip returned an unexpected value")
	}
	return health.Healthy("fileservice", map[string]any{"baseDir": s.baseDir})
}
