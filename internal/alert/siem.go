package alert

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"scanguard/internal/config"
	"scanguard/internal/model"
)

const (
	siemDialTimeout  = 5 * time.Second
	siemWriteTimeout = 5 * time.Second
	siemMaxRetries   = 3
)

// SIEMNotifier forwards alerts as CEF lines over UDP or TCP, one line per
// alert, the way Checkpoint-style collectors expect them.
type SIEMNotifier struct {
	enabled bool
	network string
	addr    string
	logger  *logrus.Logger
}

func NewSIEMNotifier(cfg config.SIEMConfig, logger *logrus.Logger) *SIEMNotifier {
	return &SIEMNotifier{
		enabled: cfg.Enabled,
		network: cfg.Protocol,
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		logger:  logger,
	}
}

func (sn *SIEMNotifier) SendAlert(alert *model.Alert) error {
	if !sn.enabled {
		sn.logger.Debug("SIEM notifier is disabled, skipping alert")
		return nil
	}

	line := FormatCEF(alert)

	var lastErr error
	for i := 0; i < siemMaxRetries; i++ {
		if err := sn.send(line); err != nil {
			lastErr = err
			sn.logger.Warnf("failed to forward alert to SIEM (attempt %d/%d): %v", i+1, siemMaxRetries, err)
			if i < siemMaxRetries-1 {
				time.Sleep(time.Duration(i+1) * time.Second)
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("failed to forward alert to SIEM after %d attempts: %v", siemMaxRetries, lastErr)
}

func (sn *SIEMNotifier) send(line string) error {
	conn, err := net.DialTimeout(sn.network, sn.addr, siemDialTimeout)
	if err != nil {
		return fmt.Errorf("failed to dial %s %s: %v", sn.network, sn.addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(siemWriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %v", err)
	}
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("failed to write to %s: %v", sn.addr, err)
	}
	return nil
}

// FormatCEF renders one alert as a CEF line. Severity maps Fast to 9 and
// Slow to 6; the mapping is total over the scan types.
func FormatCEF(alert *model.Alert) string {
	var severity int
	switch alert.ScanType {
	case model.ScanFast:
		severity = 9
	case model.ScanSlow:
		severity = 6
	default:
		panic("alert: unhandled scan type " + strconv.Itoa(int(alert.ScanType)))
	}

	ports := make([]string, len(alert.Ports))
	for i, p := range alert.Ports {
		ports[i] = strconv.Itoa(p)
	}

	return fmt.Sprintf("CEF:0|ScanGuard|scanguard|0.1.0|portscan|%s|%d|src=%s cnt=%d rt=%d ports=%s",
		alert.ScanType,
		severity,
		alert.SourceIP,
		len(alert.Ports),
		alert.Timestamp.UnixMilli(),
		strings.Join(ports, ","),
	)
}
