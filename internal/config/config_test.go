package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "chaintrust.db", cfg.StorePath)
	assert.Equal(t, "console", cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "gpg", cfg.GPGBinary)
	assert.Empty(t, cfg.GPGHome)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHAINTRUST_STORE", "/var/lib/chaintrust/trust.db")
	t.Setenv("CHAINTRUST_LOG_LEVEL", "debug")
	t.Setenv("CHAINTRUST_GPG_HOME", "/srv/keyring")

	cfg := Default()
	cfg.LoadEnv()
	assert.Equal(t, "/var/lib/chaintrust/trust.db", cfg.StorePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/keyring", cfg.GPGHome)
	// untouched variables keep their defaults
	assert.Equal(t, "console", cfg.LogFile)
	assert.Equal(t, "gpg", cfg.GPGBinary)
}
