package model

import "time"

// Event is one firewall log line after parsing. Timestamp is the receipt
// time: syslog lines carry no year, so the wall clock at ingestion wins.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	SourceIP  string    `json:"source_ip"`
	DestPort  int       `json:"dest_port"`
	Protocol  string    `json:"protocol"`
	Action    string    `json:"action"`
	Raw       string    `json:"raw,omitempty"`
}

// Dropped reports whether the firewall rejected the packet. Only dropped
// packets count toward scan detection; accepted traffic is legitimate.
func (e *Event) Dropped() bool {
	return e.Action == "drop" || e.Action == "Drop"
}
