package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Structs

// Env holds information specific to the system the mail
// service is deployed on. This enables host adaptions
// without needing to maintain two different config files.
// Use the .env file to keep secrets out of the TOML config.
type Env struct {
	PostgresPassword string
}

// Functions

// LoadEnv looks for an .env file at the supplied location
// and reads in all defined values.
func LoadEnv(file string) (*Env, error) {

	// Load environment file.
	if err := godotenv.Load(file); err != nil {
		return nil, fmt.Errorf("failed to read in .env file with: %v", err)
	}

	env := new(Env)

	// Fill variables from .env into struct.
	env.PostgresPassword = os.Getenv("POSTGRES_PASSWORD")

	return env, nil
}
