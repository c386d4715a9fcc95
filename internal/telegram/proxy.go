package telegram

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	serrors "github.com/hamed0406/sshwatch/internal/errors"
)

// Above the long-poll timeout so getUpdates is not cut short.
const clientTimeout = (PollTimeout + 15) * time.Second

// ProxyConfig routes bot traffic through a SOCKS5 proxy when URL is set.
type ProxyConfig struct {
	URL      string
	Username string
	Password string
}

// NewHTTPClient builds the client used for the Bot API. Without a SOCKS
// URL the standard proxy environment variables apply.
func NewHTTPClient(pc ProxyConfig) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if pc.URL == "" {
		tr.Proxy = http.ProxyFromEnvironment
		return &http.Client{Transport: tr, Timeout: clientTimeout}, nil
	}

	u, err := url.Parse(pc.URL)
	if err != nil || u.Host == "" {
		return nil, serrors.WrapWithCode(err, serrors.ErrConfig,
			fmt.Sprintf("Invalid SOCKS URL %q", pc.URL), "Use socks5://host:port")
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, serrors.New(serrors.ErrConfig,
			fmt.Sprintf("Unsupported proxy scheme %q", u.Scheme), "Use socks5://host:port")
	}

	var auth *proxy.Auth
	switch {
	case pc.Username != "":
		auth = &proxy.Auth{User: pc.Username, Password: pc.Password}
	case u.User != nil:
		pass, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: pass}
	}

	d, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return nil, serrors.WrapWithCode(err, serrors.ErrConfig, "Cannot set up SOCKS proxy", "")
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, serrors.New(serrors.ErrConfig, "SOCKS dialer does not support contexts", "")
	}
	tr.Proxy = nil
	tr.DialContext = cd.DialContext
	return &http.Client{Transport: tr, Timeout: clientTimeout}, nil
}
