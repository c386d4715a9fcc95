package domain

import (
	"net"
	"strconv"
	"time"
)

// EndpointKey identifies a monitored endpoint by the address the prober dials.
type EndpointKey struct {
	LocalAddr string `json:"local_addr"`
	LocalPort int    `json:"local_port"`
}

func (k EndpointKey) String() string {
	return net.JoinHostPort(k.LocalAddr, strconv.Itoa(k.LocalPort))
}

// Endpoint is one row of the host registry.
type Endpoint struct {
	Key        EndpointKey `json:"key"`
	RemoteAddr string      `json:"remote_addr"`
	RemotePort int         `json:"remote_port"`
	Comment    string      `json:"comment"`
}

// Subscriber is a chat destination that receives change notifications.
// Masters additionally receive the startup liveness message.
type Subscriber struct {
	ChatID int64 `json:"chat_id"`
	Master bool  `json:"master"`
}

// HostState is the last known availability of an endpoint.
type HostState struct {
	Key EndpointKey `json:"key"`
	// Available is nil until the endpoint has been checked once.
	Available   *bool     `json:"available"`
	LastChecked time.Time `json:"last_checked"`
	// LastSeen is zero when the endpoint has never been reachable.
	LastSeen   time.Time `json:"last_seen"`
	RemoteAddr string    `json:"remote_addr"`
	RemotePort int       `json:"remote_port"`
	Comment    string    `json:"comment"`
}

// Up reports whether the last check found the endpoint reachable.
func (s HostState) Up() bool {
	return s.Available != nil && *s.Available
}

// Seen reports whether the endpoint has ever been reachable.
func (s HostState) Seen() bool {
	return !s.LastSeen.IsZero()
}
