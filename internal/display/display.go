// Package display owns everything scanguard prints to the operator console:
// the startup banner, leveled status lines, security alert blocks and the
// periodic cleanup statistics. It knows nothing about parsing or detection;
// callers hand it already-computed values and it formats them.
//
// Styling degrades to plain text whenever the output is not an interactive
// terminal, so redirected logs never contain escape sequences.
package display

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"scanguard/internal/config"
	"scanguard/internal/model"
)

const (
	productLine = "  ScanGuard  ::  Intrusion Detection System"
	versionLine = "  Network Scan Detector v0.1.0"

	ruleWidth = 62

	// maxPortsShown caps the alert port list for terminal readability.
	maxPortsShown = 25

	timeLayout = "2006-01-02 15:04:05"
)

type styleSet struct {
	dim      lipgloss.Style
	emph     lipgloss.Style
	info     lipgloss.Style
	warn     lipgloss.Style
	crit     lipgloss.Style
	stat     lipgloss.Style
	active   lipgloss.Style
	inactive lipgloss.Style
	setting  lipgloss.Style
	banner   lipgloss.Style
	fast     lipgloss.Style
	slow     lipgloss.Style
}

// Console renders to a single writer. All methods take the internal mutex
// for the duration of one logical message, so concurrent callers never
// interleave partial lines.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	styles styleSet
	now    func() time.Time
}

// New builds a console over w. When styled is false every style is a
// pass-through and the output is byte-for-byte plain text.
func New(w io.Writer, styled bool) *Console {
	r := lipgloss.NewRenderer(w)
	if styled {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Console{
		w: w,
		styles: styleSet{
			dim:      r.NewStyle().Faint(true),
			emph:     r.NewStyle().Foreground(lipgloss.Color("7")).Bold(true),
			info:     r.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
			warn:     r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			crit:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			stat:     r.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
			active:   r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
			inactive: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			setting:  r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			banner:   r.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
			fast:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			slow:     r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		},
		now: time.Now,
	}
}

// NewStdout resolves the styling capability once from the process stdout.
func NewStdout() *Console {
	styled := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return New(os.Stdout, styled)
}

// printf is the single serialization point for the shared output stream.
// A console that cannot write to its own stream has nothing sensible left
// to do, so write failures are fatal.
func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.w, format, args...); err != nil {
		panic(fmt.Sprintf("display: console write failed: %v", err))
	}
}

// Banner prints the framed startup block with the active configuration.
func (c *Console) Banner(cfg *config.Config) {
	rule := c.styles.banner.Render(strings.Repeat("=", ruleWidth))

	siemStatus := c.styles.inactive.Render(fmt.Sprintf("%-14s", "OFF"))
	if cfg.Alerting.SIEM.Enabled {
		siemStatus = c.styles.active.Render(
			fmt.Sprintf("%-14s", fmt.Sprintf("%s:%d", cfg.Alerting.SIEM.Host, cfg.Alerting.SIEM.Port)))
	}
	emailStatus := c.styles.inactive.Render("OFF")
	if cfg.Alerting.Email.Enabled {
		emailStatus = c.styles.active.Render("ON")
	}

	fast := fmt.Sprintf("%-14s", fmt.Sprintf(">%d ports/%ds",
		cfg.Detection.FastScan.PortThreshold, cfg.Detection.FastScan.TimeWindowSecs))
	slow := fmt.Sprintf(">%d ports/%dmin",
		cfg.Detection.SlowScan.PortThreshold, cfg.Detection.SlowScan.TimeWindowMins)

	c.printf("\n%s\n%s\n%s\n  Parser:  %s Listen:  %s\n  SIEM:    %s Email:   %s\n  Fast:    %s Slow:    %s\n%s\n\n",
		rule,
		c.styles.emph.Render(productLine),
		c.styles.dim.Render(versionLine),
		c.styles.setting.Render(fmt.Sprintf("%-14s", strings.ToUpper(cfg.Network.Parser))),
		c.styles.setting.Render(fmt.Sprintf("UDP/%d", cfg.Network.ListenPort)),
		siemStatus,
		emailStatus,
		c.styles.emph.Render(fast),
		c.styles.emph.Render(slow),
		rule,
	)
}

// Info prints a timestamped informational line.
func (c *Console) Info(message string) {
	c.printf("%s %s %s\n", c.timestamp(), c.styles.info.Render("[INFO]"), message)
}

// Warning prints a timestamped warning line.
func (c *Console) Warning(message string) {
	c.printf("%s %s %s\n", c.timestamp(), c.styles.warn.Render("[WARN]"), message)
}

// Error prints a timestamped error line; the message body itself is styled
// critically, unlike the other two levels.
func (c *Console) Error(message string) {
	c.printf("%s %s %s\n", c.timestamp(), c.styles.crit.Render("[ERROR]"), c.styles.crit.Render(message))
}

// Alert prints a visually distinct block for one scan alert. The whole
// block uses the severity palette of the scan type.
func (c *Console) Alert(a *model.Alert) {
	pal := c.palette(a.ScanType)

	rule := pal.Render(strings.Repeat("-", ruleWidth))
	ts := c.styles.dim.Render("[" + a.Timestamp.Format(timeLayout) + "]")

	c.printf("%s\n%s %s %s %s detected!\n  %s unique ports in time window\n  Ports: %s\n%s\n",
		rule,
		ts,
		pal.Render("[ALERT]"),
		c.styles.emph.Render(fmt.Sprintf("[IP: %s]", a.SourceIP)),
		pal.Render(a.ScanType.String()),
		pal.Render(strconv.Itoa(len(a.Ports))),
		formatPorts(a.Ports),
		rule,
	)
}

// palette is a total mapping over the closed ScanType enum. Adding a scan
// type without a branch here must fail loudly, never fall through to a
// wrong severity.
func (c *Console) palette(t model.ScanType) lipgloss.Style {
	switch t {
	case model.ScanFast:
		return c.styles.fast
	case model.ScanSlow:
		return c.styles.slow
	}
	panic("display: unhandled scan type " + strconv.Itoa(int(t)))
}

// Stats prints the periodic cleanup summary line.
func (c *Console) Stats(tracked, cleaned int) {
	c.printf("%s %s %s IP-uri urmarite | Cleanup: %s sterse\n",
		c.timestamp(),
		c.styles.stat.Render("[STAT]"),
		c.styles.emph.Render(strconv.Itoa(tracked)),
		c.styles.emph.Render(strconv.Itoa(cleaned)),
	)
}

func (c *Console) timestamp() string {
	return c.styles.dim.Render("[" + c.now().Format(timeLayout) + "]")
}

// formatPorts joins the first maxPortsShown ports and annotates how many
// were cut. Truncation follows slice order; the detector sorts before
// emitting, the renderer does not re-order.
func formatPorts(ports []int) string {
	shown := ports
	if len(shown) > maxPortsShown {
		shown = shown[:maxPortsShown]
	}

	parts := make([]string, len(shown))
	for i, p := range shown {
		parts[i] = strconv.Itoa(p)
	}
	list := strings.Join(parts, ", ")

	if remaining := len(ports) - maxPortsShown; remaining > 0 {
		list += fmt.Sprintf(" ... (+%d more)", remaining)
	}
	return list
}
