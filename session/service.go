package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/VLM-GNESREK/verts-twmailerpro/maildrop"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// Constants

const (
	respOK  = "OK"
	respERR = "ERR"

	// maxLoginAttempts is the per-connection budget of
	// failed logins before the peer address is escalated
	// to the blacklist and the session is terminated.
	maxLoginAttempts = 3
)

// Interfaces

// Authenticator defines the single synchronous capability
// the login path requires from an external credential
// verifier. A nil return means the credentials are valid;
// any error, including transport failures towards the
// verifier, counts as a rejected login.
type Authenticator interface {
	Authenticate(username string, password string) error
}

// Guard defines the methods required from the time-windowed
// IP blacklist so callers never touch its record layout.
type Guard interface {

	// IsBlocked reports whether an unexpired blacklist
	// entry exists for the supplied IP.
	IsBlocked(ip string) (bool, error)

	// Block appends a fresh blacklist entry for the
	// supplied IP.
	Block(ip string) error
}

// Store defines the mailbox operations the command handlers
// are built on. Message indices are 1-based ranks within the
// numerically sorted enumeration of a mailbox, recomputed by
// the store for every call, so the same index may refer to
// different messages before and after a delete.
type Store interface {

	// Deliver persists a message in the receiver's mailbox
	// and returns the assigned sequence number.
	Deliver(msg *maildrop.Message) (int, error)

	// Subjects enumerates the subjects of a user's mailbox
	// in sorted order.
	Subjects(user string) ([]string, error)

	// Read returns the message stored under the supplied rank.
	Read(user string, index int) (*maildrop.Message, error)

	// Delete removes the message stored under the supplied rank.
	Delete(user string, index int) error
}

// Service defines the command handlers of the mail session
// protocol. Each handler consumes its own parameter lines
// from the supplied connection and writes the framed
// response back through it. The returned flag reports
// whether the connection is still usable; false makes the
// state machine close the session.
type Service interface {

	// Login performs the authentication mechanism
	// specified as part of the service config.
	Login(c *Connection) bool

	// Send stores an incoming message in the receiver's mailbox.
	Send(c *Connection) bool

	// List reports the number of stored messages followed
	// by one subject line per message.
	List(c *Connection) bool

	// Read returns the body of the message stored under a
	// client supplied index.
	Read(c *Connection) bool

	// Delete removes the message stored under a client
	// supplied index.
	Delete(c *Connection) bool
}

// Structs

type service struct {
	logger        log.Logger
	authenticator Authenticator
	guard         Guard
	store         Store
}

// Functions

// NewService takes in all required parameters for handling
// mail session commands and returns a service struct
// wrapping all information.
func NewService(logger log.Logger, authenticator Authenticator, guard Guard, store Store) Service {

	return &service{
		logger:        logger,
		authenticator: authenticator,
		guard:         guard,
		store:         store,
	}
}

// respond sends one answer line to the client and reports
// whether the connection is still usable.
func (s *service) respond(c *Connection, text string) bool {

	if err := c.Send(text); err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// escalate appends the peer address to the blacklist after
// its login attempt budget is used up. The caller terminates
// the session afterwards.
func (s *service) escalate(c *Connection, logger log.Logger) {

	if err := s.guard.Block(c.ClientIP); err != nil {
		level.Error(logger).Log(
			"msg", "failed to append client address to blacklist",
			"err", err,
		)
	} else {
		level.Info(logger).Log("msg", "blacklisted client address after repeated login failures")
	}

	// Best effort: the session is torn down either way.
	c.Send(respERR)
}

// loginFailed advances the failed-attempt counter and either
// answers a recoverable ERR or escalates to the blacklist.
func (s *service) loginFailed(c *Connection, logger log.Logger) bool {

	c.FailedLogins++

	level.Debug(logger).Log(
		"msg", "login failed",
		"attempt", c.FailedLogins,
	)

	if c.FailedLogins >= maxLoginAttempts {
		s.escalate(c, logger)
		return false
	}

	return s.respond(c, respERR)
}

// Login performs the authentication mechanism specified
// as part of the service config. It reads username and
// password lines, validates the username syntax before
// the external verifier is consulted, and maintains the
// per-connection failed-attempt budget. A LOGIN on an
// already authenticated connection is treated as a
// re-authentication attempt against the same budget.
func (s *service) Login(c *Connection) bool {

	logger := log.With(s.logger,
		"conn", c.ID,
		"client_addr", c.ClientAddr,
	)

	// A connection whose attempt budget is already used up
	// is rejected without consulting the verifier again.
	if c.FailedLogins >= maxLoginAttempts {
		s.escalate(c, logger)
		return false
	}

	username, err := c.Receive()
	if err != nil {
		return false
	}

	password, err := c.Receive()
	if err != nil {
		return false
	}

	// Malformed usernames never reach the external verifier.
	if !maildrop.ValidUsername(username) {
		level.Debug(logger).Log("msg", "rejected login with malformed username")
		return s.loginFailed(c, logger)
	}

	// Fail closed: an unreachable verifier reads the same
	// as rejected credentials.
	if err := s.authenticator.Authenticate(username, password); err != nil {
		level.Debug(logger).Log(
			"msg", "login rejected by credential verifier",
			"err", err,
		)
		return s.loginFailed(c, logger)
	}

	c.IsAuthenticated = true
	c.UserName = username
	c.FailedLogins = 0

	level.Info(logger).Log(
		"msg", "user logged in",
		"user", username,
	)

	return s.respond(c, respOK)
}

// Send stores an incoming message in the receiver's mailbox.
// It reads receiver and subject lines followed by body lines
// up to the terminating dot line. The body is consumed in
// full even when validation or storage fails, so the stream
// stays framed for the next command.
func (s *service) Send(c *Connection) bool {

	logger := log.With(s.logger,
		"conn", c.ID,
		"user", c.UserName,
	)

	receiver, err := c.Receive()
	if err != nil {
		return false
	}

	subject, err := c.Receive()
	if err != nil {
		return false
	}

	valid := maildrop.ValidUsername(c.UserName) &&
		maildrop.ValidUsername(receiver) &&
		(len(subject) <= maildrop.MaxSubjectLen)

	var body []string

	for {

		line, err := c.Receive()
		if err != nil {
			return false
		}

		if line == "." {
			break
		}

		if valid {
			body = append(body, line)
		}
	}

	if !valid {
		level.Debug(logger).Log("msg", "discarded message with invalid addressing")
		return s.respond(c, respERR)
	}

	seq, err := s.store.Deliver(&maildrop.Message{
		Sender:   c.UserName,
		Receiver: receiver,
		Subject:  subject,
		Body:     body,
	})
	if err != nil {
		level.Error(logger).Log(
			"msg", fmt.Sprintf("failed to store message for %s", receiver),
			"err", err,
		)
		return s.respond(c, respERR)
	}

	level.Debug(logger).Log(
		"msg", "stored message",
		"receiver", receiver,
		"seq", seq,
	)

	return s.respond(c, respOK)
}

// List reports the number of stored messages followed by one
// subject line per message, in numerically sorted order. An
// empty or absent mailbox yields a plain '0'.
func (s *service) List(c *Connection) bool {

	subjects, err := s.store.Subjects(c.UserName)
	if err != nil {

		// The list response grammar carries no error
		// marker, so a failing enumeration reads as an
		// empty mailbox.
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("failed to enumerate mailbox of %s", c.UserName),
			"err", err,
		)
		subjects = nil
	}

	if !s.respond(c, strconv.Itoa(len(subjects))) {
		return false
	}

	for _, subject := range subjects {
		if !s.respond(c, subject) {
			return false
		}
	}

	return true
}

// readIndex consumes the message index parameter line.
func (c *Connection) readIndex() (int, bool, error) {

	line, err := c.Receive()
	if err != nil {
		return 0, false, err
	}

	index, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, false, nil
	}

	return index, true, nil
}

// Read returns the body of the message stored under a client
// supplied index: OK, the body lines, and a terminating dot
// line. Header lines are not retransmitted.
func (s *service) Read(c *Connection) bool {

	index, parsed, err := c.readIndex()
	if err != nil {
		return false
	}
	if !parsed {
		return s.respond(c, respERR)
	}

	msg, err := s.store.Read(c.UserName, index)
	if err != nil {

		if errors.Cause(err) != maildrop.ErrNoSuchMessage {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("failed to read message %d of %s", index, c.UserName),
				"err", err,
			)
		}

		return s.respond(c, respERR)
	}

	if !s.respond(c, respOK) {
		return false
	}

	for _, line := range msg.Body {
		if !s.respond(c, line) {
			return false
		}
	}

	return s.respond(c, ".")
}

// Delete removes the message stored under a client supplied
// index. Remaining messages re-rank on the next enumeration.
func (s *service) Delete(c *Connection) bool {

	index, parsed, err := c.readIndex()
	if err != nil {
		return false
	}
	if !parsed {
		return s.respond(c, respERR)
	}

	if err := s.store.Delete(c.UserName, index); err != nil {

		if errors.Cause(err) != maildrop.ErrNoSuchMessage {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("failed to delete message %d of %s", index, c.UserName),
				"err", err,
			)
		}

		return s.respond(c, respERR)
	}

	return s.respond(c, respOK)
}
