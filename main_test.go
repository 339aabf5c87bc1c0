package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/VLM-GNESREK/verts-twmailerpro/config"
	"github.com/stretchr/testify/assert"
)

// Functions

func TestInitLogger(t *testing.T) {

	for _, loglevel := range []string{"debug", "info", "warn", "error", "bogus"} {

		logger := initLogger(loglevel)
		assert.NotNil(t, logger, "expected a usable logger for level '%s'", loglevel)
	}
}

func TestInitAuthenticator(t *testing.T) {

	credsFile := filepath.Join(t.TempDir(), "users.txt")
	err := os.WriteFile(credsFile, []byte("alice;wonderland\nbob;builder\n"), 0600)
	assert.Nil(t, err, "expected writing credentials file to succeed but got: %v", err)

	conf := &config.Config{
		Auth: config.Auth{
			Adapter: "AuthFile",
			AuthFile: &config.AuthFile{
				File:      credsFile,
				Separator: ";",
			},
		},
	}

	authenticator, err := initAuthenticator(conf)
	assert.Nil(t, err, "expected authenticator initialization to succeed but got: %v", err)

	err = authenticator.Authenticate("alice", "wonderland")
	assert.Nil(t, err, "expected login of present user to succeed but got: %v", err)

	err = authenticator.Authenticate("alice", "hatter")
	assert.NotNil(t, err, "expected login with wrong password to fail")

	// An unreachable LDAP parameter set is a config
	// problem, not a construction problem.
	conf = &config.Config{
		Auth: config.Auth{
			Adapter: "AuthLDAP",
			AuthLDAP: &config.AuthLDAP{
				URI:    "ldap://localhost:389",
				UserDN: "uid=%s,ou=people,dc=example,dc=com",
			},
		},
	}

	authenticator, err = initAuthenticator(conf)
	assert.Nil(t, err, "expected LDAP authenticator construction to succeed but got: %v", err)
	assert.NotNil(t, authenticator)
}
