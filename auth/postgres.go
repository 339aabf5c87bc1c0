package auth

import (
	"context"
	"fmt"

	"crypto/sha512"
	"encoding/base64"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Structs

// PostgresAuthenticator carries all relevant information
// needed to allow the PostgreSQL-based authenticator to
// properly verify incoming client credentials.
type PostgresAuthenticator struct {
	Pool *pgxpool.Pool
}

// Functions

// NewPostgresAuthenticator expects to be supplied with
// PostgreSQL database connection information from the
// config file. It then tries to connect to the database
// and returns an initialized struct above.
func NewPostgresAuthenticator(ip string, port uint16, db string, user string, password string, useTLS bool) (*PostgresAuthenticator, error) {

	sslmode := "disable"
	if useTLS {
		sslmode = "require"
	}

	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", user, password, ip, port, db, sslmode)

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, fmt.Errorf("could not create connection pool for specified PostgreSQL database: %v", err)
	}

	// Fail fast on unreachable or misconfigured databases
	// instead of at the first login attempt.
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not reach specified PostgreSQL database: %v", err)
	}

	return &PostgresAuthenticator{
		Pool: pool,
	}, nil
}

// Authenticate is used to perform the actual process of
// looking up whether the client supplied user credentials
// exist and match with a user entry in the PostgreSQL
// database. Stored passwords are expected in the
// '{SHA512}<base64>' scheme.
func (p *PostgresAuthenticator) Authenticate(username string, password string) error {

	// Create new SHA512 hash and input supplied
	// password into hash function.
	shaHash := sha512.New()

	if _, err := shaHash.Write([]byte(password)); err != nil {
		return fmt.Errorf("failed to write password to hash: %v", err)
	}

	// Produce the actual hash and encode it with base64.
	encHashedPassword := base64.StdEncoding.EncodeToString(shaHash.Sum(nil))

	var dbUserID int

	// Query database for user matching all criteria.
	err := p.Pool.QueryRow(context.Background(),
		"SELECT id FROM users WHERE username = $1 AND password = $2",
		username, fmt.Sprintf("{SHA512}%s", encHashedPassword),
	).Scan(&dbUserID)
	if err != nil {

		// Check what type of error we received.
		if err == pgx.ErrNoRows {
			return fmt.Errorf("username not found in users table or password wrong")
		}

		return fmt.Errorf("error while trying to locate user: %v", err)
	}

	return nil
}
