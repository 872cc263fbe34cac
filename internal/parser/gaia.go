package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"scanguard/internal/model"
)

// gaiaRe matches the Checkpoint portion of a Gaia syslog line, e.g.
//
//	Sep  3 15:12:41 192.168.99.1 Checkpoint: drop 10.13.37.5 proto: tcp; service: 443; s_port: 51234
//
// The syslog header carries no year, so the event keeps the receipt time.
var gaiaRe = regexp.MustCompile(`Checkpoint:\s+(\w+)\s+(\S+)\s+proto:\s*(\w+);\s*service:\s*(\d+);\s*s_port:\s*(\d+)`)

type GaiaParser struct{}

func NewGaia() *GaiaParser {
	return &GaiaParser{}
}

func (p *GaiaParser) Name() string {
	return "gaia"
}

func (p *GaiaParser) Parse(line string) (*model.Event, error) {
	m := gaiaRe.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("not a gaia log line: %q", truncateRaw(line))
	}

	port, err := strconv.Atoi(m[4])
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid service port %q", m[4])
	}

	return &model.Event{
		Timestamp: time.Now(),
		SourceIP:  m[2],
		DestPort:  port,
		Protocol:  strings.ToLower(m[3]),
		Action:    strings.ToLower(m[1]),
		Raw:       line,
	}, nil
}

// truncateRaw keeps error messages bounded when a hostile datagram arrives.
func truncateRaw(line string) string {
	const max = 120
	if len(line) > max {
		return line[:max] + "..."
	}
	return line
}
