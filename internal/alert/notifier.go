// Package alert fans detected scan alerts out to the configured channels:
// the operator console, a SIEM endpoint and email.
package alert

import (
	"sync"

	"github.com/sirupsen/logrus"

	"scanguard/internal/display"
	"scanguard/internal/model"
)

// Notifier delivers one alert to one channel.
type Notifier interface {
	SendAlert(alert *model.Alert) error
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(alert *model.Alert) error

func (f NotifierFunc) SendAlert(alert *model.Alert) error {
	return f(alert)
}

// Dispatcher delivers every alert to every registered notifier. A failing
// channel is logged and never blocks the others; alerting must not take the
// detection path down with it.
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers []Notifier
	logger    *logrus.Logger
}

func NewDispatcher(logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers = append(d.notifiers, n)
}

func (d *Dispatcher) Dispatch(alert *model.Alert) {
	d.mu.RLock()
	notifiers := make([]Notifier, len(d.notifiers))
	copy(notifiers, d.notifiers)
	d.mu.RUnlock()

	for _, n := range notifiers {
		if err := n.SendAlert(alert); err != nil {
			d.logger.Errorf("failed to send alert: %v", err)
		}
	}
}

// ConsoleNotifier renders alerts on the operator console.
type ConsoleNotifier struct {
	console *display.Console
}

func NewConsoleNotifier(console *display.Console) *ConsoleNotifier {
	return &ConsoleNotifier{console: console}
}

func (cn *ConsoleNotifier) SendAlert(alert *model.Alert) error {
	cn.console.Alert(alert)
	return nil
}
