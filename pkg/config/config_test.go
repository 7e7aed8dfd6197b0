package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, "Trade123456", cfg.AdminPassword)
	assert.Equal(t, 24, cfg.SessionExpireHours)
	assert.Equal(t, 6, cfg.MinPasswordLength)
	assert.Equal(t, "data/users.json", cfg.UsersFile)
	assert.Equal(t, "data/sessions.json", cfg.SessionsFile)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.False(t, cfg.RequireLoginForAnalysis)

	assert.Equal(t, "localhost", cfg.Mongo.Host)
	assert.Equal(t, "27017", cfg.Mongo.Port)
	assert.Equal(t, "tradingagents", cfg.Mongo.Database)
	assert.Equal(t, "auth_users", cfg.Mongo.UsersCollection)
	assert.Equal(t, "auth_sessions", cfg.Mongo.SessionsCollection)
	assert.Equal(t, 5*time.Second, cfg.Mongo.ConnectTimeout)

	assert.NoError(t, cfg.Validate())
}

func TestSessionTTL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())

	cfg.SessionExpireHours = 1
	assert.Equal(t, time.Hour, cfg.SessionTTL())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DEFAULT_ADMIN_USERNAME", "operator")
	t.Setenv("SESSION_EXPIRE_HOURS", "48")
	t.Setenv("MONGODB_HOST", "db.internal")
	t.Setenv("REQUIRE_LOGIN_FOR_ANALYSIS", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "operator", cfg.AdminUsername)
	assert.Equal(t, 48, cfg.SessionExpireHours)
	assert.Equal(t, "db.internal", cfg.Mongo.Host)
	assert.True(t, cfg.RequireLoginForAnalysis)
	// Unset keys keep their defaults.
	assert.Equal(t, "Trade123456", cfg.AdminPassword)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authkit.yaml")
	content := "admin_username: fileadmin\nlisten_addr: \":9090\"\nmongo:\n  database: authdb\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fileadmin", cfg.AdminUsername)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "authdb", cfg.Mongo.Database)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.AdminPassword = "short"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestMongoConfigURI(t *testing.T) {
	t.Run("explicit connection string wins", func(t *testing.T) {
		m := MongoConfig{ConnectionString: "mongodb://explicit:27017/", Host: "ignored", Port: "1"}
		assert.Equal(t, "mongodb://explicit:27017/", m.URI())
	})

	t.Run("credentials", func(t *testing.T) {
		m := MongoConfig{Host: "localhost", Port: "27017", Username: "admin", Password: "pw", AuthSource: "admin"}
		assert.Equal(t, "mongodb://admin:pw@localhost:27017/admin", m.URI())
	})

	t.Run("no credentials", func(t *testing.T) {
		m := MongoConfig{Host: "localhost", Port: "27017"}
		assert.Equal(t, "mongodb://localhost:27017/", m.URI())
	})
}
