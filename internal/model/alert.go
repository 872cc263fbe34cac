package model

import "time"

// ScanType classifies a port-scan alert by the window it was detected in.
// The set of variants is closed; every consumer dispatching on ScanType must
// handle all of them.
type ScanType int

const (
	// ScanFast is a burst of distinct ports inside a short window.
	ScanFast ScanType = iota
	// ScanSlow is a sustained probe spread over a long window.
	ScanSlow
)

func (t ScanType) String() string {
	switch t {
	case ScanFast:
		return "Fast Scan"
	case ScanSlow:
		return "Slow Scan"
	default:
		return "UNKNOWN"
	}
}

// Alert reports that a source address exceeded a port-scan threshold.
type Alert struct {
	SourceIP  string    `json:"source_ip"`
	ScanType  ScanType  `json:"scan_type"`
	Timestamp time.Time `json:"timestamp"`
	// Ports holds the distinct destination ports observed in the window,
	// sorted ascending by the detector before the alert is emitted.
	Ports []int `json:"ports"`
}

// Stats is a snapshot taken by the periodic cleanup task.
type Stats struct {
	TrackedIPs int `json:"tracked_ips"`
	CleanedIPs int `json:"cleaned_ips"`
}
