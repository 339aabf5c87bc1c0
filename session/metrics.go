package session

import (
	"github.com/go-kit/kit/metrics"
)

type metricsService struct {
	service  Service
	commands metrics.Counter
	logins   metrics.Counter
}

// NewMetricsService wraps a provided existing service
// with the provided command and login counters. The
// command counter carries a 'command' label.
func NewMetricsService(s Service, commands metrics.Counter, logins metrics.Counter) Service {
	return &metricsService{
		service:  s,
		commands: commands,
		logins:   logins,
	}
}

func (s *metricsService) Login(c *Connection) bool {

	ok := s.service.Login(c)

	s.commands.With("command", "LOGIN").Add(1)

	if ok && c.IsAuthenticated {
		s.logins.Add(1)
	}

	return ok
}

func (s *metricsService) Send(c *Connection) bool {
	s.commands.With("command", "SEND").Add(1)
	return s.service.Send(c)
}

func (s *metricsService) List(c *Connection) bool {
	s.commands.With("command", "LIST").Add(1)
	return s.service.List(c)
}

func (s *metricsService) Read(c *Connection) bool {
	s.commands.With("command", "READ").Add(1)
	return s.service.Read(c)
}

func (s *metricsService) Delete(c *Connection) bool {
	s.commands.With("command", "DEL").Add(1)
	return s.service.Delete(c)
}
