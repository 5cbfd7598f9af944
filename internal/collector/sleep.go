package collector

import (
	"log/slog"

	"github.com/godbus/dbus/v5"
)

const prepareForSleep = "org.freedesktop.login1.Manager.PrepareForSleep"

// SleepMonitor listens for systemd-logind PrepareForSleep signals and turns
// them into interactive state changes: going to sleep is non-interactive,
// waking up is interactive.
type SleepMonitor struct {
	conn        *dbus.Conn
	done        chan struct{}
	interactive chan bool
	log         *slog.Logger
}

// NewSleepMonitor creates a new sleep monitor connected to the system bus.
func NewSleepMonitor(logger *slog.Logger) (*SleepMonitor, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}

	err = conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.login1.Manager"),
		dbus.WithMatchMember("PrepareForSleep"),
	)
	if err != nil {
		return nil, err
	}

	m := &SleepMonitor{
		conn:        conn,
		done:        make(chan struct{}),
		interactive: make(chan bool, 4),
		log:         logger,
	}
	go m.listen()
	return m, nil
}

// Interactive returns a channel that receives false when the system is about
// to sleep and true when it wakes.
func (m *SleepMonitor) Interactive() <-chan bool {
	return m.interactive
}

// Close stops the monitor.
func (m *SleepMonitor) Close() {
	close(m.done)
}

func (m *SleepMonitor) listen() {
	ch := make(chan *dbus.Signal, 16)
	m.conn.Signal(ch)
	defer m.conn.RemoveSignal(ch)
	m.forward(ch)
}

// forward turns signals from ch into interactive changes until the monitor is
// closed or ch is closed.
func (m *SleepMonitor) forward(ch <-chan *dbus.Signal) {
	for {
		select {
		case sig, open := <-ch:
			if !open {
				m.log.Warn("system bus connection closed")
				return
			}
			on, ok := interactiveFromSignal(sig)
			if !ok {
				continue
			}
			if on {
				m.log.Info("system woke up")
			} else {
				m.log.Info("system going to sleep")
			}
			select {
			case m.interactive <- on:
			default:
				m.log.Warn("interactive change dropped", "interactive", on)
			}
		case <-m.done:
			return
		}
	}
}

// interactiveFromSignal maps a PrepareForSleep signal to the interactive state
// it implies. ok is false for any other signal.
func interactiveFromSignal(sig *dbus.Signal) (on bool, ok bool) {
	if sig == nil || sig.Name != prepareForSleep || len(sig.Body) < 1 {
		return false, false
	}
	sleeping, ok := sig.Body[0].(bool)
	if !ok {
		return false, false
	}
	return !sleeping, true
}
