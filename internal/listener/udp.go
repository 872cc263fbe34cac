// Package listener receives firewall log datagrams over UDP and feeds them
// through the parser into the detector.
package listener

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"scanguard/internal/detector"
	"scanguard/internal/metrics"
	"scanguard/internal/parser"
)

const maxDatagramSize = 8192

type Server struct {
	conn    *net.UDPConn
	parser  parser.Parser
	tracker *detector.Tracker
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func New(port int, p parser.Parser, tracker *detector.Tracker, m *metrics.Metrics, logger *logrus.Logger) (*Server, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP/%d: %v", port, err)
	}

	return &Server{
		conn:    conn,
		parser:  p,
		tracker: tracker,
		metrics: m,
		logger:  logger,
	}, nil
}

// LocalPort returns the bound port, useful when the config asked for 0.
func (s *Server) LocalPort() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

// Run blocks reading datagrams until the context is cancelled. Exporters
// coalesce multiple log lines into one datagram joined by newlines, so each
// datagram is split and every non-empty line goes through the parser.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("UDP read failed: %v", err)
		}

		if s.metrics != nil {
			s.metrics.PacketsReceived.Inc()
		}

		for _, line := range strings.Split(string(buf[:n]), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			ev, err := s.parser.Parse(line)
			if err != nil {
				if s.metrics != nil {
					s.metrics.ParseErrors.Inc()
				}
				s.logger.Debugf("unparseable line from %s: %v", addr, err)
				continue
			}

			s.tracker.Observe(ev)
		}
	}
}
