package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/sshwatch/internal/domain"
)

// Reason says why a single check came out the way it did.
type Reason string

const (
	// ReasonAuthRejected is the expected success signal: the SSH service
	// answered and refused the probe credential.
	ReasonAuthRejected Reason = "auth-rejected"
	// ReasonAuthAccepted means the probe credential was accepted. The
	// service is up, but the credential should be changed.
	ReasonAuthAccepted Reason = "auth-accepted"

	ReasonTimeout     Reason = "timeout"
	ReasonRefused     Reason = "refused"
	ReasonUnreachable Reason = "unreachable"
	ReasonHostKey     Reason = "host-key"
	ReasonProtocol    Reason = "protocol"
	ReasonCanceled    Reason = "canceled"
	ReasonUnknown     Reason = "unknown"
)

// Outcome is the result of one connection attempt.
//
// Fields:
//   - Reachable: the remote spoke SSH back to us.
//   - Err: the dial or handshake error; nil on ReasonAuthAccepted.
type Outcome struct {
	Reachable bool
	Reason    Reason
	Latency   time.Duration
	Err       error
}

// Checker performs a single connection attempt against an endpoint.
type Checker interface {
	Check(ctx context.Context, ep domain.Endpoint) Outcome
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, ep domain.Endpoint) Outcome

func (f CheckerFunc) Check(ctx context.Context, ep domain.Endpoint) Outcome { return f(ctx, ep) }

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Reason, o.Err)
	}
	return string(o.Reason)
}
