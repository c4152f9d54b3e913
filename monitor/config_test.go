package monitor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkio/crosscloudkit/monitor"
)

func TestConfigDefaultsToFixedPollInterval(t *testing.T) {
	cfg := &monitor.Config{}
	require.NoError(t, cfg.SetDefaults())
	assert.Equal(t, 3*time.Second, cfg.ScanInterval)
}

func TestConfigRejectsInvalidCron(t *testing.T) {
	cfg := &monitor.Config{ScanCron: "not a cron expression"}
	assert.Error(t, cfg.SetDefaults())
}

func TestConfigAcceptsValidCron(t *testing.T) {
	cfg := &monitor.Config{ScanCron: "*/5 * * * *"}
	assert.NoError(t, cfg.SetDefaults())
}
