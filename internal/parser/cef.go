package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"scanguard/internal/model"
)

// CEFParser handles Common Event Format lines, e.g.
//
//	CEF:0|CheckPoint|VPN-1 & FireWall-1|R81.20|100|Drop|5|src=10.13.37.5 dst=192.168.1.1 dpt=443 proto=TCP act=drop
//
// The header is seven pipe-separated fields; everything after the last pipe
// is the extension, a space-separated key=value list.
type CEFParser struct{}

func NewCEF() *CEFParser {
	return &CEFParser{}
}

func (p *CEFParser) Name() string {
	return "cef"
}

func (p *CEFParser) Parse(line string) (*model.Event, error) {
	idx := strings.Index(line, "CEF:")
	if idx < 0 {
		return nil, fmt.Errorf("not a CEF log line: %q", truncateRaw(line))
	}

	fields := strings.SplitN(line[idx:], "|", 8)
	if len(fields) < 8 {
		return nil, fmt.Errorf("truncated CEF header: %q", truncateRaw(line))
	}

	ext := parseExtension(fields[7])

	src, ok := ext["src"]
	if !ok || src == "" {
		return nil, fmt.Errorf("CEF extension missing src: %q", truncateRaw(line))
	}
	dpt, ok := ext["dpt"]
	if !ok {
		return nil, fmt.Errorf("CEF extension missing dpt: %q", truncateRaw(line))
	}
	port, err := strconv.Atoi(dpt)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid dpt %q", dpt)
	}

	action := strings.ToLower(ext["act"])
	if action == "" {
		// Fall back to the header event name (field 6).
		action = strings.ToLower(fields[5])
	}

	return &model.Event{
		Timestamp: time.Now(),
		SourceIP:  src,
		DestPort:  port,
		Protocol:  strings.ToLower(ext["proto"]),
		Action:    action,
		Raw:       line,
	}, nil
}

func parseExtension(ext string) map[string]string {
	kv := make(map[string]string)
	for _, tok := range strings.Fields(ext) {
		eq := strings.Index(tok, "=")
		if eq <= 0 {
			continue
		}
		kv[tok[:eq]] = tok[eq+1:]
	}
	return kv
}
