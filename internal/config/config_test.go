package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/v1", cfg.Server.BasePath)
	assert.Equal(t, "airstrip.events", cfg.NATS.SubjectPrefix)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, *Default(), *cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  format: json
storage:
  backend: memory
server:
  addr: 0.0.0.0:9000
`), 0o644))
	t.Setenv("AIRSTRIP_SERVER_ADDR", "127.0.0.1:9999")
	t.Setenv("AIRSTRIP_NATS_URL", "nats://localhost:4222")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "/v1", cfg.Server.BasePath)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AIRSTRIP_STORAGE_BACKEND=memory\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("AIRSTRIP_STORAGE_BACKEND") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(c *Config)
		msg  string
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "invalid log level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
		{"backend", func(c *Config) { c.Storage.Backend = "etcd" }, "unknown storage.backend"},
		{"postgres dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }, "storage.dsn is required"},
		{"redis addr", func(c *Config) { c.Storage.Backend = BackendRedis; c.Storage.RedisAddr = "" }, "storage.redis_addr is required"},
		{"base path", func(c *Config) { c.Server.BasePath = "v1" }, "must start with /"},
		{"snapshot target", func(c *Config) { c.Snapshot.Dir = "" }, "snapshot.dir or snapshot.s3_bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestFromYAMLRejectsGarbage(t *testing.T) {
	_, err := FromYAML([]byte("log: [unclosed"))
	assert.Error(t, err)
	_, err = FromYAML([]byte("storage:\n  backend: tape\n"))
	assert.Error(t, err)
}

func TestYAMLRoundTrip(t *testing.T) {
	data, err := Default().YAML()
	require.NoError(t, err)
	back, err := FromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, Default(), back)
}
