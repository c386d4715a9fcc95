// Package report renders host states into the chat message text used by
// change notifications and /status replies.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hamed0406/sshwatch/internal/domain"
)

const (
	StatusHeader = "Current status:\n"
	ChangeHeader = "Status of following hosts has been changed:\n"

	signUp   = "✅"
	signDown = "⚠️"
	never    = "never"

	// DefaultTimeLayout is used for last-seen timestamps.
	DefaultTimeLayout = "2006-01-02 15:04:05"
)

// Formatter renders states. The zero value renders without escaping in
// local time.
type Formatter struct {
	// Escape makes user-provided text safe for the chat markup mode.
	Escape     func(string) string
	TimeLayout string
	Location   *time.Location
}

// Line renders one endpoint:
//
//	✅ comment (127.0.0.1:2201 -> 10.0.0.5:22, last seen: 2025-08-18 12:00:00)
func (f Formatter) Line(s domain.HostState) string {
	sign := signDown
	if s.Up() {
		sign = signUp
	}
	return fmt.Sprintf("%s %s (%s -> %s, last seen: %s)\n",
		sign,
		f.escape(s.Comment),
		f.escape(s.Key.String()),
		f.escape(domain.EndpointKey{LocalAddr: s.RemoteAddr, LocalPort: s.RemotePort}.String()),
		f.lastSeen(s),
	)
}

// Status renders the /status reply. An empty snapshot yields only the header.
func (f Formatter) Status(states []domain.HostState) string {
	var b strings.Builder
	b.WriteString(StatusHeader)
	for _, s := range states {
		b.WriteString(f.Line(s))
	}
	return b.String()
}

// Change renders the notification sent when s changed availability.
func (f Formatter) Change(s domain.HostState) string {
	return ChangeHeader + f.Line(s)
}

// Liveness is the startup message sent to master subscribers.
func (f Formatter) Liveness(instance string) string {
	if instance == "" {
		return signUp + " sshwatch started\n"
	}
	return fmt.Sprintf("%s sshwatch started on %s\n", signUp, f.escape(instance))
}

func (f Formatter) lastSeen(s domain.HostState) string {
	if !s.Seen() {
		return never
	}
	layout := f.TimeLayout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	t := s.LastSeen
	if f.Location != nil {
		t = t.In(f.Location)
	}
	return t.Format(layout)
}

func (f Formatter) escape(s string) string {
	if f.Escape == nil {
		return s
	}
	return f.Escape(s)
}
