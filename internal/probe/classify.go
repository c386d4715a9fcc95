package probe

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"
)

// classifyDial categorizes a TCP dial error.
func classifyDial(err error) Reason {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return ReasonRefused
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return ReasonUnreachable
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ReasonTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonUnreachable
	}
	return classifyMessage(err)
}

// classifyHandshake categorizes an error from the SSH handshake. The
// crypto/ssh package reports authentication failures only as text.
func classifyHandshake(err error) Reason {
	if err == nil {
		return ReasonAuthAccepted
	}
	msg := strings.ToLower(err.Error())
	if isAuthRejection(msg) {
		return ReasonAuthRejected
	}
	if strings.Contains(msg, "host key") {
		return ReasonHostKey
	}
	var nerr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) ||
		strings.Contains(msg, "i/o timeout") {
		return ReasonTimeout
	}
	return ReasonProtocol
}

func isAuthRejection(msg string) bool {
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain") ||
		strings.Contains(msg, "permission denied")
}

// classifyMessage is the fallback for errors without a typed cause.
func classifyMessage(err error) Reason {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return ReasonTimeout
	case strings.Contains(msg, "connection refused"):
		return ReasonRefused
	case strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "host is down"),
		strings.Contains(msg, "no such host"):
		return ReasonUnreachable
	}
	return ReasonUnknown
}
