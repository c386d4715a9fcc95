package probe

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/kevinburke/ssh_config"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/hamed0406/sshwatch/internal/domain"
	serrors "github.com/hamed0406/sshwatch/internal/errors"
)

const (
	DefaultUser     = "sshwatch-probe"
	DefaultPassword = "sshwatch-wrong-password"
	DefaultTimeout  = 10 * time.Second
)

// DialFunc opens the TCP connection for a check.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// SSHChecker runs an SSH handshake with a credential the endpoint is
// expected to reject. A rejection proves the service is up.
type SSHChecker struct {
	User     string
	Password string
	Timeout  time.Duration
	Resolver *HostResolver
	Dial     DialFunc
	Logger   *zap.Logger
}

func NewSSHChecker(user, password string, timeout time.Duration, resolver *HostResolver, logger *zap.Logger) *SSHChecker {
	if user == "" {
		user = DefaultUser
	}
	if password == "" {
		password = DefaultPassword
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &net.Dialer{Timeout: timeout}
	return &SSHChecker{
		User:     user,
		Password: password,
		Timeout:  timeout,
		Resolver: resolver,
		Dial:     d.DialContext,
		Logger:   logger,
	}
}

func (c *SSHChecker) Check(ctx context.Context, ep domain.Endpoint) Outcome {
	start := time.Now()
	addr := c.Resolver.Address(ep.Key)

	dctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	conn, err := c.Dial(dctx, "tcp", addr)
	if err != nil {
		return Outcome{Reason: classifyDial(err), Latency: time.Since(start), Err: err}
	}
	defer conn.Close()

	// ssh.NewClientConn has no context; the deadline and AfterFunc bound it.
	_ = conn.SetDeadline(time.Now().Add(c.Timeout))
	stop := context.AfterFunc(dctx, func() { _ = conn.Close() })
	defer stop()

	cfg := &ssh.ClientConfig{
		User:            c.User,
		Auth:            []ssh.AuthMethod{ssh.Password(c.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // only the handshake outcome matters
		Timeout:         c.Timeout,
	}
	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	latency := time.Since(start)
	if err == nil {
		_ = ssh.NewClient(sc, chans, reqs).Close()
		c.Logger.Warn("probe_credential_accepted",
			zap.String("endpoint", ep.Key.String()),
			zap.String("user", c.User),
		)
		return Outcome{Reachable: true, Reason: ReasonAuthAccepted, Latency: latency}
	}

	reason := classifyHandshake(err)
	switch {
	case reason == ReasonAuthRejected:
	case ctx.Err() != nil:
		reason = ReasonCanceled
	case dctx.Err() != nil:
		reason = ReasonTimeout
	}
	return Outcome{
		Reachable: reason == ReasonAuthRejected,
		Reason:    reason,
		Latency:   latency,
		Err:       err,
	}
}

// HostResolver maps local addresses through an ssh_config file so the
// registry may name hosts by alias. A nil resolver dials addresses as is.
type HostResolver struct {
	cfg *ssh_config.Config
}

// LoadHostResolver parses an ssh_config file.
func LoadHostResolver(path string) (*HostResolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, serrors.WrapWithCode(err, serrors.ErrConfig,
			"Cannot open ssh config "+path, "Check --ssh-config")
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return nil, serrors.WrapWithCode(err, serrors.ErrConfig,
			"Cannot parse ssh config "+path, "Match blocks are not supported; keep probe aliases in a separate file")
	}
	return &HostResolver{cfg: cfg}, nil
}

// Address returns host:port to dial for key. The port always comes from
// the registry; only the host name is resolved.
func (r *HostResolver) Address(key domain.EndpointKey) string {
	host := key.LocalAddr
	if r != nil && r.cfg != nil {
		if hn, err := r.cfg.Get(key.LocalAddr, "HostName"); err == nil && hn != "" {
			host = hn
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(key.LocalPort))
}
