package session

import (
	"fmt"
	"io"
	"net"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Structs

// Handler drives the per-connection protocol state machine.
// It owns the accept loop, gates incoming connections on the
// abuse guard and dispatches command verbs to the supplied
// service, which may be wrapped in logging and metrics
// middlewares.
type Handler struct {
	logger  log.Logger
	guard   Guard
	service Service
}

// Functions

// NewHandler takes in all required parameters for accepting
// mail sessions and returns a handler struct wrapping all
// information.
func NewHandler(logger log.Logger, guard Guard, service Service) *Handler {

	return &Handler{
		logger:  logger,
		guard:   guard,
		service: service,
	}
}

// Run loops over incoming requests and dispatches each one
// to a goroutine taking care of the commands supplied.
func (h *Handler) Run(listener net.Listener) error {

	for {

		// Accept request or fail on error.
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accepting incoming request failed with: %v", err)
		}

		// Dispatch into own goroutine.
		go h.HandleConnection(conn)
	}
}

// HandleConnection performs the main actions on one client
// connection: it checks the abuse guard before any command
// is processed and then sequences the session through its
// states until QUIT, a stream error or a forced termination.
func (h *Handler) HandleConnection(conn net.Conn) {

	c := NewConnection(conn)
	defer c.Conn.Close()

	logger := log.With(h.logger,
		"conn", c.ID,
		"client_addr", c.ClientAddr,
	)

	// Connections from recently abusive addresses are
	// answered with a bare ERR and closed before any
	// command processing occurs.
	blocked, err := h.guard.IsBlocked(c.ClientIP)
	if err != nil {
		level.Warn(logger).Log(
			"msg", "failed to consult blacklist, letting connection pass",
			"err", err,
		)
	}

	if blocked {
		level.Info(logger).Log("msg", "rejected connection from blacklisted address")
		c.Send(respERR)
		return
	}

	level.Debug(logger).Log("msg", "accepted connection")

	for {

		// Receive next incoming client command.
		verb, err := c.Receive()
		if err != nil {

			// Check if error was a simple disconnect.
			if err == io.EOF {
				level.Debug(logger).Log("msg", "client disconnected")
			} else {
				level.Error(logger).Log(
					"msg", "error while receiving command from client",
					"err", err,
				)
			}

			return
		}

		cmdOK := false

		switch {

		case verb == "LOGIN":
			cmdOK = h.service.Login(c)

		case verb == "QUIT":
			// A QUIT marks connection termination and is
			// not answered.
			level.Debug(logger).Log("msg", "client quit")
			return

		case !c.IsAuthenticated:
			// All mail operations require a prior
			// successful login.
			cmdOK = (c.Send(respERR) == nil)

		case verb == "SEND":
			cmdOK = h.service.Send(c)

		case verb == "LIST":
			cmdOK = h.service.List(c)

		case verb == "READ":
			cmdOK = h.service.Read(c)

		case verb == "DEL":
			cmdOK = h.service.Delete(c)

		default:
			// Client sent inappropriate command.
			// Signal error, stay in current state.
			cmdOK = (c.Send(respERR) == nil)
		}

		// Executed command above indicated the connection
		// is no longer usable. Return from function.
		if !cmdOK {
			return
		}
	}
}
