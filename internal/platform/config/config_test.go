package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "file://migrations", cfg.Database.Migrations)
	assert.Empty(t, cfg.Rules.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 1.0, cfg.Telegram.RatePerSecond)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("NABHA_SERVER_PORT", "9090")
	t.Setenv("NABHA_RULES_PATH", "/etc/nabha/rules.yaml")
	t.Setenv("NABHA_TELEGRAM_TOKEN", "bot-token")
	t.Setenv("NABHA_TELEGRAM_DOCTOR_CHAT_ID", "12345")
	t.Setenv("NABHA_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/etc/nabha/rules.yaml", cfg.Rules.Path)
	assert.Equal(t, "bot-token", cfg.Telegram.Token)
	assert.Equal(t, int64(12345), cfg.Telegram.DoctorChatID)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nabha.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
database:
  url: postgres://nabha@localhost/nabha?sslmode=disable
report:
  font_paths:
    - /opt/fonts/NotoSans.ttf
logging:
  format: text
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "postgres://nabha@localhost/nabha?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, []string{"/opt/fonts/NotoSans.ttf"}, cfg.Report.FontPaths)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Logging: LoggingConfig{Level: "info", Format: "json"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
		{name: "doctor chat without token", mutate: func(c *Config) { c.Telegram.DoctorChatID = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
