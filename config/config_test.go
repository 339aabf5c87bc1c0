package config_test

import (
	"testing"

	"path/filepath"

	"github.com/VLM-GNESREK/verts-twmailerpro/config"
	"github.com/stretchr/testify/assert"
)

// Functions

// TestLoadConfig executes a black-box test on the
// implemented functionalities to load a TOML config file.
func TestLoadConfig(t *testing.T) {

	// Try to load a non-existent config file. This should fail.
	_, err := config.LoadConfig("does-not-exist.toml")
	assert.NotNil(t, err, "expected error while loading a non-existent config file")

	// Try to load a config file with a dangling auth
	// adapter selection. This should fail as well.
	_, err = config.LoadConfig("broken-config.toml")
	assert.NotNil(t, err, "expected error while loading broken-config.toml")

	// Now load a valid config.
	conf, err := config.LoadConfig("test-config.toml")
	assert.Nil(t, err, "expected success while loading test-config.toml")

	assert.Equal(t, "twmailer-test", conf.Server.Name)
	assert.Equal(t, "127.0.0.1:1470", conf.Server.ListenMailAddr)
	assert.Equal(t, "AuthFile", conf.Auth.Adapter)
	assert.Equal(t, ":", conf.Auth.AuthFile.Separator)
	assert.Equal(t, 60, conf.Blacklist.DurationSeconds)

	// Relative locations are resolved against the
	// config file directory.
	assert.True(t, filepath.IsAbs(conf.Spool.RootDir), "spool root should have been made absolute")
	assert.True(t, filepath.IsAbs(conf.Blacklist.File), "blacklist file should have been made absolute")
	assert.True(t, filepath.IsAbs(conf.Auth.AuthFile.File), "auth file should have been made absolute")
}
