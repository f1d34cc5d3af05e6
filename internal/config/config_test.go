package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesFileAndDefaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9001\nrag:\n  upload_dir: /tmp/up\n")

	cfg, err := Load("test", path)
	require.NoError(t, err)
	require.Equal(t, 9001, cfg.Server.Port)
	require.Equal(t, "/tmp/up", cfg.RAG.UploadDir)

	// 未配置项回落到默认值
	require.Equal(t, 1024, cfg.RAG.ChunkSize)
	require.Equal(t, 50, cfg.RAG.ChunkOverlap)
	require.Equal(t, "local", cfg.Queue.Type)
	require.Equal(t, "local", cfg.RAG.VectorStore.Type)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9100")
	path := writeConfigFile(t, "server:\n  port: 9001\n")

	cfg, err := Load("test", path)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("test", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
