// Package parser turns raw firewall log lines into model.Event values.
// Two formats are supported: Checkpoint Gaia syslog and CEF.
package parser

import (
	"fmt"
	"strings"

	"scanguard/internal/model"
)

// Parser parses one log line. Implementations must be safe for concurrent
// Parse calls; the listener invokes them per datagram.
type Parser interface {
	Name() string
	Parse(line string) (*model.Event, error)
}

// New returns the parser registered under name. The registry is closed;
// config validation guarantees the name is one of the supported set.
func New(name string) (Parser, error) {
	switch strings.ToLower(name) {
	case "gaia":
		return NewGaia(), nil
	case "cef":
		return NewCEF(), nil
	default:
		return nil, fmt.Errorf("unknown parser %q (supported: gaia, cef)", name)
	}
}
