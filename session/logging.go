package session

import (
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

type loggingService struct {
	logger  log.Logger
	service Service
}

// NewLoggingService wraps a provided existing
// service with the provided logger.
func NewLoggingService(s Service, logger log.Logger) Service {
	return &loggingService{logger, s}
}

// Login wraps this service's Login method
// with added logging capabilities.
func (s *loggingService) Login(c *Connection) bool {

	ok := s.service.Login(c)

	logger := log.With(s.logger,
		"method", "LOGIN",
		"conn", c.ID,
		"client_addr", c.ClientAddr,
	)

	if !ok {
		level.Info(logger).Log("msg", "session ended during operation LOGIN")
	} else {
		level.Debug(logger).Log()
	}

	return ok
}

// Send wraps this service's Send method
// with added logging capabilities.
func (s *loggingService) Send(c *Connection) bool {

	ok := s.service.Send(c)

	logger := log.With(s.logger,
		"method", "SEND",
		"conn", c.ID,
		"user", c.UserName,
	)

	if !ok {
		level.Info(logger).Log("msg", "session ended during operation SEND")
	} else {
		level.Debug(logger).Log()
	}

	return ok
}

// List wraps this service's List method
// with added logging capabilities.
func (s *loggingService) List(c *Connection) bool {

	ok := s.service.List(c)

	logger := log.With(s.logger,
		"method", "LIST",
		"conn", c.ID,
		"user", c.UserName,
	)

	if !ok {
		level.Info(logger).Log("msg", "session ended during operation LIST")
	} else {
		level.Debug(logger).Log()
	}

	return ok
}

// Read wraps this service's Read method
// with added logging capabilities.
func (s *loggingService) Read(c *Connection) bool {

	ok := s.service.Read(c)

	logger := log.With(s.logger,
		"method", "READ",
		"conn", c.ID,
		"user", c.UserName,
	)

	if !ok {
		level.Info(logger).Log("msg", "session ended during operation READ")
	} else {
		level.Debug(logger).Log()
	}

	return ok
}

// Delete wraps this service's Delete method
// with added logging capabilities.
func (s *loggingService) Delete(c *Connection) bool {

	ok := s.service.Delete(c)

	logger := log.With(s.logger,
		"method", "DEL",
		"conn", c.ID,
		"user", c.UserName,
	)

	if !ok {
		level.Info(logger).Log("msg", "session ended during operation DEL")
	} else {
		level.Debug(logger).Log()
	}

	return ok
}
