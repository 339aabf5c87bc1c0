package auth

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Structs

// FileAuthenticator contains file based authentication
// information including the in-memory list of username
// to password mappings.
type FileAuthenticator struct {
	Users []User
}

// User holds name and password from one line of the users file.
type User struct {
	Name     string
	Password string
}

// Functions

// NewFileAuthenticator takes in a file name and a separator,
// reads in the specified file and parses it line by line as
// username - password elements separated by the separator.
// Passwords may be stored either in plain text or as bcrypt
// hashes (recognized by their '$2' prefix).
func NewFileAuthenticator(file string, sep string) (*FileAuthenticator, error) {

	// Reserve space for the ordered users list in memory.
	users := make([]User, 0, 50)

	// Open file with authentication information.
	handle, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("could not open supplied authentication file: %v", err)
	}
	defer handle.Close()

	// Create a new scanner on top of file handle.
	scanner := bufio.NewScanner(handle)

	// As long as there are lines left, scan them into memory.
	for scanner.Scan() {

		// Split read line based on separator defined in config file.
		userData := strings.SplitN(scanner.Text(), sep, 2)
		if len(userData) != 2 {
			return nil, fmt.Errorf("malformed line in authentication file")
		}

		// Append new user element to slice.
		users = append(users, User{
			Name:     userData[0],
			Password: userData[1],
		})
	}

	// If the scanner ended with an error, report it.
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("experienced error while scanning authentication file: %v", err)
	}

	// Sort users list to search it efficiently later on.
	sort.Slice(users, func(i, j int) bool {
		return users[i].Name < users[j].Name
	})

	return &FileAuthenticator{
		Users: users,
	}, nil
}

// Authenticate performs the actual authentication process by
// taking supplied credentials and attempting to find a
// matching entry in the in-memory list taken from the
// authentication file.
func (f *FileAuthenticator) Authenticate(username string, password string) error {

	// Search in user list for user matching supplied name.
	i := sort.Search(len(f.Users), func(i int) bool {
		return f.Users[i].Name >= username
	})

	// If that user does not exist, throw an error.
	if !((i < len(f.Users)) && (f.Users[i].Name == username)) {
		return fmt.Errorf("username not found in list of users")
	}

	stored := f.Users[i].Password

	// Bcrypt-hashed entries are compared via the hash,
	// everything else via direct string comparison.
	if strings.HasPrefix(stored, "$2") {

		if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)); err != nil {
			return fmt.Errorf("passwords did not match")
		}

		return nil
	}

	if stored != password {
		return fmt.Errorf("passwords did not match")
	}

	return nil
}
