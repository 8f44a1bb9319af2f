package domain

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type ProxyAuth struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

type ProxyConfig struct {
	Host     string     `json:"host"`
	Port     int        `json:"port"`
	Protocol string     `json:"protocol"`
	Auth     *ProxyAuth `json:"auth,omitempty"`
}

// Key identifies a proxy without its credentials.
func (p ProxyConfig) Key() string {
	return fmt.Sprintf("%s://%s", p.Protocol, net.JoinHostPort(p.Host, strconv.Itoa(p.Port)))
}

func (p ProxyConfig) URL() *url.URL {
	u := &url.URL{
		Scheme: p.Protocol,
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
	}
	if p.Auth != nil {
		u.User = url.UserPassword(p.Auth.Username, p.Auth.Password)
	}
	return u
}

// ParseProxyConfig accepts "scheme://[user:pass@]host:port"; the scheme
// defaults to http.
func ParseProxyConfig(raw string) (ProxyConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ProxyConfig{}, NewError(ErrInvalidInput, "parse proxy", "empty proxy")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ProxyConfig{}, WrapError(ErrInvalidInput, "parse proxy", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return ProxyConfig{}, NewError(ErrInvalidInput, "parse proxy", "unsupported protocol "+u.Scheme)
	}
	host := u.Hostname()
	port, err := strconv.Atoi(u.Port())
	if host == "" || err != nil || port <= 0 || port > 65535 {
		return ProxyConfig{}, NewError(ErrInvalidInput, "parse proxy", "host:port required in "+raw)
	}
	cfg := ProxyConfig{Host: host, Port: port, Protocol: u.Scheme}
	if u.User != nil {
		password, _ := u.User.Password()
		cfg.Auth = &ProxyAuth{Username: u.User.Username(), Password: password}
	}
	return cfg, nil
}

// ProxyState is a rotator snapshot entry.
type ProxyState struct {
	Proxy            string     `json:"proxy"`
	Protocol         string     `json:"protocol"`
	Failures         int        `json:"failures"`
	Blacklisted      bool       `json:"blacklisted"`
	BlacklistedUntil *time.Time `json:"blacklistedUntil,omitempty"`
}
