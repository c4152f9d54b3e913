package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithNoPath(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.FileServiceDir)
	assert.Equal(t, "memory", cfg.Memory.Engine)
}

func TestLoadConfigFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ccktool.toml")
	require.NoError(t, os.WriteFile(path, []byte("file_service_dir = \"/tmp/demo\"\n"), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/demo", cfg.FileServiceDir)
}

func TestLoadConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ccktool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fileServiceDir: /tmp/demo-yaml\n"), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/demo-yaml", cfg.FileServiceDir)
}

func TestLoadConfigRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ccktool.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))

	_, err := loadConfig(path)
	assert.Error(t, err)
}
