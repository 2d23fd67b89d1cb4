package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"flairbridge/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func newTestLoader(path string, env map[string]string) *Loader {
	l := NewLoader(path, zap.NewNop())
	l.getenv = func(key string) string { return env[key] }
	return l
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `flair:
  base_url: http://localhost:9000
  client_id: id
  client_secret: secret
  poll_interval: 30s
  refresh_debounce: 500ms
  request_timeout: 10s
mqtt:
  broker: tcp://broker:1883
  username: bridge
  discovery_prefix: ha
  base_topic: flair
api:
  port: 9090
unit_system: imperial
room_mode_policy: independent
read_only: true
`)

	cfg, err := newTestLoader(path, nil).Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.Flair.BaseURL)
	assert.Equal(t, "id", cfg.Flair.ClientID)
	assert.Equal(t, 30*time.Second, cfg.Flair.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Flair.RefreshDebounce)
	assert.Equal(t, 10*time.Second, cfg.Flair.RequestTimeout)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "ha", cfg.MQTT.DiscoveryPrefix)
	assert.Equal(t, "flair", cfg.MQTT.BaseTopic)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, DefaultCommandLogSize, cfg.API.CommandLogSize)
	assert.True(t, cfg.Imperial())
	assert.Equal(t, entity.RoomPolicyIndependent, cfg.RoomModePolicy)
	assert.True(t, cfg.ReadOnly)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "flair:\n  client_id: id\n  client_secret: secret\n")

	cfg, err := newTestLoader(path, nil).Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Flair.BaseURL)
	assert.Equal(t, DefaultPollInterval, cfg.Flair.PollInterval)
	assert.Equal(t, DefaultRefreshDebounce, cfg.Flair.RefreshDebounce)
	assert.Equal(t, DefaultDiscoveryPrefix, cfg.MQTT.DiscoveryPrefix)
	assert.Equal(t, DefaultBaseTopic, cfg.MQTT.BaseTopic)
	assert.Equal(t, DefaultAPIPort, cfg.API.Port)
	assert.False(t, cfg.Imperial())
	assert.Equal(t, entity.RoomPolicyMirror, cfg.RoomModePolicy)
	assert.False(t, cfg.ReadOnly)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `flair:
  client_id: file-id
  client_secret: file-secret
mqtt:
  broker: tcp://broker:1883
  password: file-password
`)
	env := map[string]string{
		"FLAIR_CLIENT_ID":     "env-id",
		"FLAIR_CLIENT_SECRET": "env-secret",
		"MQTT_PASSWORD":       "env-password",
		"READ_ONLY":           "true",
	}

	cfg, err := newTestLoader(path, env).Load()
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Flair.ClientID)
	assert.Equal(t, "env-secret", cfg.Flair.ClientSecret)
	assert.Equal(t, "env-password", cfg.MQTT.Password)
	assert.True(t, cfg.ReadOnly)
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	env := map[string]string{"FLAIR_CLIENT_ID": "id", "FLAIR_CLIENT_SECRET": "secret"}

	cfg, err := newTestLoader(filepath.Join(t.TempDir(), "absent.yaml"), env).Load()
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.Flair.ClientID)

	cfg, err = newTestLoader("", env).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.Flair.BaseURL)
}

func TestLoad_Errors(t *testing.T) {
	creds := map[string]string{"FLAIR_CLIENT_ID": "id", "FLAIR_CLIENT_SECRET": "secret"}

	tests := []struct {
		name    string
		body    string
		env     map[string]string
		wantErr string
	}{
		{"malformed yaml", "flair: [", creds, "failed to parse config"},
		{"missing credentials", "unit_system: metric\n", nil, "client_id and client_secret are required"},
		{"bad unit system", "unit_system: kelvin\n", creds, "unit_system"},
		{"bad room policy", "room_mode_policy: sometimes\n", creds, "room_mode_policy"},
		{"bad base url", "flair:\n  base_url: api.flair.co\n", creds, "base_url"},
		{"short poll interval", "flair:\n  poll_interval: 100ms\n", creds, "poll_interval"},
		{"bad port", "api:\n  port: 70000\n", creds, "port"},
		{"empty topics", "mqtt:\n  broker: tcp://b:1883\n  base_topic: \"\"\n", creds, "base_topic"},
		{"bad read only", "", map[string]string{"FLAIR_CLIENT_ID": "id", "FLAIR_CLIENT_SECRET": "s", "READ_ONLY": "maybe"}, "READ_ONLY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader(writeConfig(t, tt.body), tt.env).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.UnitSystem = "kelvin"
	cfg.RoomModePolicy = "sometimes"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")
	assert.Contains(t, err.Error(), "unit_system")
	assert.Contains(t, err.Error(), "room_mode_policy")
}
