package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iSamMahoozi/stackmob-sdk-go/sdkerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stackmob.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig() Config {
	cfg := Default()
	cfg.PublicKey = "pub"
	cfg.PrivateKey = "priv"
	cfg.AppName = "demo"
	cfg.Subdomain = "acme"
	return cfg
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeFile(t, `
public_key: pub
private_key: priv
app_name: demo
subdomain: acme
api_version: 1
secure: true
timeout: 5s
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "pub", cfg.PublicKey)
	assert.Equal(t, "demo", cfg.AppName)
	assert.Equal(t, 1, cfg.APIVersion)
	assert.True(t, cfg.Secure)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stackmob.com", cfg.Domain, "default kept")
	assert.Equal(t, "user", cfg.UserObjectName, "default kept")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "public_key: from-file\napp_name: demo\n")
	t.Setenv(EnvPublicKey, "from-env")
	t.Setenv(EnvPrivateKey, "secret")
	t.Setenv(EnvSubdomain, "acme")
	t.Setenv(EnvAPIVersion, "2")
	t.Setenv(EnvSecure, "true")
	t.Setenv(EnvTimeout, "1m")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvBaseURL, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.PublicKey)
	assert.Equal(t, "secret", cfg.PrivateKey)
	assert.Equal(t, "demo", cfg.AppName)
	assert.Equal(t, "acme", cfg.Subdomain)
	assert.Equal(t, 2, cfg.APIVersion)
	assert.True(t, cfg.Secure)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.BaseURL, "blank env values are ignored")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, sdkerr.ErrConfiguration)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := Load(writeFile(t, "publik_key: typo\n"))
		assert.ErrorIs(t, err, sdkerr.ErrConfiguration)
	})

	t.Run("bad env", func(t *testing.T) {
		t.Setenv(EnvSecure, "maybe")
		_, err := Load("")
		assert.ErrorIs(t, err, sdkerr.ErrConfiguration)
	})

	t.Run("empty file", func(t *testing.T) {
		cfg, err := Load(writeFile(t, ""))
		require.NoError(t, err)
		assert.Equal(t, Default().Timeout, cfg.Timeout)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"base url replaces app and subdomain", func(c *Config) {
			c.AppName, c.Subdomain, c.BaseURL = "", "", "https://api.example.com/v1"
		}, true},
		{"no public key", func(c *Config) { c.PublicKey = "" }, false},
		{"no private key", func(c *Config) { c.PrivateKey = "" }, false},
		{"no app", func(c *Config) { c.AppName = "" }, false},
		{"no subdomain", func(c *Config) { c.Subdomain = "" }, false},
		{"negative version", func(c *Config) { c.APIVersion = -1 }, false},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, false},
		{"bad base url", func(c *Config) { c.BaseURL = "ftp://x" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, sdkerr.ErrConfiguration)
			}
		})
	}
}

func TestSessionConfig(t *testing.T) {
	cfg := validConfig()
	cfg.APIVersion = 3
	sc := cfg.SessionConfig()
	assert.Equal(t, "pub", sc.PublicKey)
	assert.Equal(t, "priv", sc.PrivateKey)
	assert.Equal(t, "demo", sc.AppName)
	assert.Equal(t, "acme", sc.Subdomain)
	assert.Equal(t, 3, sc.APIVersion)
	assert.Equal(t, "user", sc.UserObjectName)
}
