package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/app"
)

func TestLoadApplicationConfigFromDirectory(t *testing.T) {
	dir := t.TempDir()
	content := []byte("server:\n  port: 9191\nauth:\n  jwt:\n    secret: file-secret\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	cfg, err := loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "file-secret", cfg.Auth.JWT.Secret)
}

func TestLoadApplicationConfigFromFilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9292\n"), 0o600))

	cfg, err := loadApplicationConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9292, cfg.Server.Port)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestEnsureSecretsPresent(t *testing.T) {
	require.Error(t, ensureSecretsPresent(nil))
	require.Error(t, ensureSecretsPresent(&app.Config{}))

	cfg := &app.Config{}
	cfg.Auth.JWT.Secret = "  padded-secret  "
	require.NoError(t, ensureSecretsPresent(cfg))
	require.Equal(t, "padded-secret", cfg.Auth.JWT.Secret)
}
