// AngelaMos | 2026
// config_test.go

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotMemoizeFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-config.yaml")

	_, err := Load(missing)
	require.Error(t, err)

	// A failed load must stay retryable; a second call reports the
	// error again instead of returning a nil config.
	loaded, err := Load(missing)
	assert.Error(t, err)
	assert.Nil(t, loaded)
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	c := &Config{}
	c.Mail.Driver = "log"
	c.Registration.SessionTTL = 1

	err := validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	c.Database.URL = "postgres://localhost/stockease"
	c.Redis.URL = "redis://localhost:6379"
	c.JWT.PrivateKeyPath = "/etc/stockease/jwt.pem"
	c.Server.ReadTimeout = 1
	c.Server.WriteTimeout = 1
	assert.NoError(t, validate(c))
}
