package fileservice_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bkio/crosscloudkit/fileservice"
)

func TestWatchForTestingObservesNewFile(t *testing.T) {
	svc := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	require.NoError(t, svc.WatchForTesting(ctx, "bucket", func(path string) { changed <- path }))

	require.True(t, svc.Upload(ctx, "bucket", "watched.txt", bytes.NewReader([]byte("x")), fileservice.Metadata{}).IsSuccessful())

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a watch event within 3s")
	}
}
