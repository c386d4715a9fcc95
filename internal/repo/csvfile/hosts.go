package csvfile

import (
	"context"

	"github.com/hamed0406/sshwatch/internal/domain"
	serrors "github.com/hamed0406/sshwatch/internal/errors"
)

// Host file columns.
const (
	ColLocalIP    = "local_ip"
	ColLocalPort  = "local_port"
	ColRemoteIP   = "remote_ip"
	ColRemotePort = "remote_port"
	ColComment    = "comment"
)

// HostFile is the host registry. The file is read again on every Load so
// operators can edit it while the daemon runs.
type HostFile struct {
	Path      string
	Delimiter rune
}

func NewHostFile(path string, delim rune) *HostFile {
	if delim == 0 {
		delim = DefaultDelimiter
	}
	return &HostFile{Path: path, Delimiter: delim}
}

// Load returns the endpoints in file order. Any bad row fails the whole load.
func (h *HostFile) Load(ctx context.Context) ([]domain.Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, _, err := readTable(h.Path, h.Delimiter, ColLocalIP, ColLocalPort, ColRemoteIP, ColRemotePort, ColComment)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Endpoint, 0, len(rows))
	for _, r := range rows {
		ep, err := endpointFrom(r)
		if err != nil {
			return nil, serrors.WrapWithCode(err, serrors.ErrConfig,
				"Bad row in "+h.Path, "Fix or remove the row; it is re-read on the next cycle")
		}
		out = append(out, ep)
	}
	return out, nil
}

func endpointFrom(r record) (domain.Endpoint, error) {
	addr := r.get(ColLocalIP)
	if addr == "" {
		return domain.Endpoint{}, lineErr(r, ColLocalIP)
	}
	lport, err := r.port(ColLocalPort)
	if err != nil {
		return domain.Endpoint{}, err
	}
	remote := r.get(ColRemoteIP)
	if remote == "" {
		return domain.Endpoint{}, lineErr(r, ColRemoteIP)
	}
	rport, err := r.port(ColRemotePort)
	if err != nil {
		return domain.Endpoint{}, err
	}
	return domain.Endpoint{
		Key:        domain.EndpointKey{LocalAddr: addr, LocalPort: lport},
		RemoteAddr: remote,
		RemotePort: rport,
		Comment:    r.get(ColComment),
	}, nil
}
