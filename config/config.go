package config

import (
	"fmt"

	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Structs

// Config holds all information parsed from
// the supplied config file.
type Config struct {
	Server    Server
	Spool     Spool
	Blacklist Blacklist
	Auth      Auth
}

// Server describes the network face of the mail
// service: where it listens for client sessions and
// where it exposes Prometheus metrics. Supplying a
// certificate and key switches the listener to TLS.
type Server struct {
	Name           string
	ListenMailAddr string
	PrometheusAddr string
	PublicCertLoc  string
	PublicKeyLoc   string
}

// Spool points at the root directory below which all
// per-user mailbox folders are kept.
type Spool struct {
	RootDir string
}

// Blacklist configures the shared log of recently
// abusive client IP addresses.
type Blacklist struct {
	File            string
	DurationSeconds int
}

// Auth selects and configures the credential verifier
// consulted during login.
type Auth struct {
	Adapter      string
	AuthFile     *AuthFile
	AuthLDAP     *AuthLDAP
	AuthPostgres *AuthPostgres
}

// AuthFile provides information on authenticating
// users against a designated local credentials file.
type AuthFile struct {
	File      string
	Separator string
}

// AuthLDAP defines parameters for verifying credentials
// by binding against an external LDAP directory.
type AuthLDAP struct {
	URI           string
	UserDN        string
	UseStartTLS   bool
	SkipTLSVerify bool
}

// AuthPostgres defines parameters for connecting to a
// PostgreSQL database for authenticating users.
type AuthPostgres struct {
	IP       string
	Port     uint16
	Database string
	User     string
	Password string
	UseTLS   bool
}

// Functions

// LoadConfig takes in the path to the main config file
// in TOML syntax, places the values from the file in the
// corresponding struct, applies defaults and validates
// the result. Relative file locations are resolved
// against the directory the config file lives in.
func LoadConfig(configFile string) (*Config, error) {

	conf := new(Config)

	// Parse values from TOML file into struct.
	if _, err := toml.DecodeFile(configFile, conf); err != nil {
		return nil, fmt.Errorf("failed to read in TOML config file at '%s' with: %v", configFile, err)
	}

	// Retrieve absolute path of the directory
	// the config file is located in.
	absConfigDir, err := filepath.Abs(filepath.Dir(configFile))
	if err != nil {
		return nil, fmt.Errorf("could not get absolute path of config directory: %v", err)
	}

	if conf.Server.ListenMailAddr == "" {
		return nil, fmt.Errorf("config is missing a mail listen address")
	}

	// A configured certificate requires its key and
	// the other way around.
	if (conf.Server.PublicCertLoc == "") != (conf.Server.PublicKeyLoc == "") {
		return nil, fmt.Errorf("config supplies only one of TLS certificate and key")
	}

	if conf.Spool.RootDir == "" {
		return nil, fmt.Errorf("config is missing the spool root directory")
	}

	// Defaults for the blacklist log.
	if conf.Blacklist.File == "" {
		conf.Blacklist.File = "blacklist.log"
	}

	if conf.Blacklist.DurationSeconds == 0 {
		conf.Blacklist.DurationSeconds = 60
	}

	if conf.Blacklist.DurationSeconds < 0 {
		return nil, fmt.Errorf("config supplies a negative blacklist duration")
	}

	// Make sure the selected auth adapter is known
	// and carries its parameter section.
	switch conf.Auth.Adapter {

	case "AuthFile":
		if conf.Auth.AuthFile == nil {
			return nil, fmt.Errorf("auth adapter AuthFile selected but section [Auth.AuthFile] is missing")
		}

	case "AuthLDAP":
		if conf.Auth.AuthLDAP == nil {
			return nil, fmt.Errorf("auth adapter AuthLDAP selected but section [Auth.AuthLDAP] is missing")
		}

	case "AuthPostgres":
		if conf.Auth.AuthPostgres == nil {
			return nil, fmt.Errorf("auth adapter AuthPostgres selected but section [Auth.AuthPostgres] is missing")
		}

	default:
		return nil, fmt.Errorf("config selects unknown auth adapter '%s'", conf.Auth.Adapter)
	}

	// Prefix each relative path in config with the
	// absolute path of the config directory.

	// Server.PublicCertLoc
	if (conf.Server.PublicCertLoc != "") && !filepath.IsAbs(conf.Server.PublicCertLoc) {
		conf.Server.PublicCertLoc = filepath.Join(absConfigDir, conf.Server.PublicCertLoc)
	}

	// Server.PublicKeyLoc
	if (conf.Server.PublicKeyLoc != "") && !filepath.IsAbs(conf.Server.PublicKeyLoc) {
		conf.Server.PublicKeyLoc = filepath.Join(absConfigDir, conf.Server.PublicKeyLoc)
	}

	// Spool.RootDir
	if !filepath.IsAbs(conf.Spool.RootDir) {
		conf.Spool.RootDir = filepath.Join(absConfigDir, conf.Spool.RootDir)
	}

	// Blacklist.File
	if !filepath.IsAbs(conf.Blacklist.File) {
		conf.Blacklist.File = filepath.Join(absConfigDir, conf.Blacklist.File)
	}

	// Auth.AuthFile.File
	if (conf.Auth.AuthFile != nil) && !filepath.IsAbs(conf.Auth.AuthFile.File) {
		conf.Auth.AuthFile.File = filepath.Join(absConfigDir, conf.Auth.AuthFile.File)
	}

	return conf, nil
}
