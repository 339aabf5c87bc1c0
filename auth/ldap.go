package auth

import (
	"fmt"

	"crypto/tls"

	"github.com/go-ldap/ldap/v3"
)

// Structs

// LDAPAuthenticator verifies credentials by binding against
// an external LDAP directory service. Every login attempt
// dials a fresh connection, upgrades it via StartTLS and
// performs a simple bind with a DN built from the username.
type LDAPAuthenticator struct {
	URI           string
	UserDN        string
	UseStartTLS   bool
	SkipTLSVerify bool
}

// Functions

// NewLDAPAuthenticator bundles the supplied directory
// connection parameters. The userDN value is a template
// containing one '%s' placeholder that the username is
// substituted into, e.g. 'uid=%s,ou=people,dc=example,dc=at'.
func NewLDAPAuthenticator(uri string, userDN string, useStartTLS bool, skipTLSVerify bool) (*LDAPAuthenticator, error) {

	if uri == "" {
		return nil, fmt.Errorf("no LDAP URI supplied")
	}

	if userDN == "" {
		return nil, fmt.Errorf("no LDAP user DN template supplied")
	}

	return &LDAPAuthenticator{
		URI:           uri,
		UserDN:        userDN,
		UseStartTLS:   useStartTLS,
		SkipTLSVerify: skipTLSVerify,
	}, nil
}

// Authenticate dials the configured directory and attempts a
// simple bind as the supplied user. Any failure along the way,
// including an unreachable directory, counts as a rejected
// login so that the caller never fails open.
func (l *LDAPAuthenticator) Authenticate(username string, password string) error {

	// The directory would treat a bind with an empty password
	// as an anonymous bind and report success.
	if (username == "") || (password == "") {
		return fmt.Errorf("empty username or password")
	}

	conn, err := ldap.DialURL(l.URI)
	if err != nil {
		return fmt.Errorf("failed to reach LDAP directory: %v", err)
	}
	defer conn.Close()

	if l.UseStartTLS {

		tlsConfig := &tls.Config{
			InsecureSkipVerify: l.SkipTLSVerify,
		}

		if err := conn.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to upgrade LDAP connection via StartTLS: %v", err)
		}
	}

	if err := conn.Bind(fmt.Sprintf(l.UserDN, ldap.EscapeDN(username)), password); err != nil {
		return fmt.Errorf("LDAP bind rejected: %v", err)
	}

	return nil
}
