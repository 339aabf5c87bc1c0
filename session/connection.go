package session

import (
	"bufio"
	"fmt"
	"net"
	"strings"

	uuid "github.com/satori/go.uuid"
)

// Constants

// MaxLineLen bounds the number of bytes one protocol line
// may carry, the terminating newline excluded.
const MaxLineLen = 1024

// Structs

// Connection carries all information specific to one
// observed client connection on its way through the mail
// service, including the per-connection session state the
// protocol state machine operates on.
type Connection struct {
	Conn            net.Conn
	Reader          *bufio.Reader
	ID              string
	ClientAddr      string
	ClientIP        string
	IsAuthenticated bool
	UserName        string
	FailedLogins    int
}

// Functions

// NewConnection creates a new element of above connection
// struct and fills it with content from a supplied, real
// client connection.
func NewConnection(conn net.Conn) *Connection {

	addr := conn.RemoteAddr().String()

	// The blacklist is keyed by bare IP address.
	ip := addr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		ip = host
	}

	return &Connection{
		Conn:       conn,
		Reader:     bufio.NewReader(conn),
		ID:         uuid.NewV4().String(),
		ClientAddr: addr,
		ClientIP:   ip,
	}
}

// Receive awaits text up to the next newline symbol and
// returns the line with the newline and any trailing
// carriage return stripped. A line longer than MaxLineLen
// is returned truncated at the limit; the remainder stays
// in the reader and surfaces as part of later reads, which
// callers have to tolerate as a protocol edge case. Closed
// or failing connections yield an error.
func (c *Connection) Receive() (string, error) {

	line := make([]byte, 0, 64)

	for len(line) < MaxLineLen {

		b, err := c.Reader.ReadByte()
		if err != nil {
			return "", err
		}

		if b == '\n' {
			return strings.TrimRight(string(line), "\r"), nil
		}

		line = append(line, b)
	}

	return string(line), nil
}

// Send takes in an answer text from the server as a string
// and writes it to the connection to the client, followed
// by a newline. In case an error occurs, this method
// returns it to the calling function.
func (c *Connection) Send(text string) error {

	if _, err := fmt.Fprintf(c.Conn, "%s\n", text); err != nil {
		return err
	}

	return nil
}
