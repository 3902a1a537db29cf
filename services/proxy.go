// ABOUTME: SSH+SOCKS5 dialer for reaching the accreditation API through a jump box
// ABOUTME: Parses API_ALL_PROXY and lazily opens the SSH tunnel on first dial

package services

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cloudfoundry/socks5-proxy"
)

type dialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// proxySettings are the parts of an ssh+socks5 URL the tunnel needs.
type proxySettings struct {
	username string
	host     string
	keyPath  string
}

// parseAllProxy accepts ssh+socks5://user@host:port?private-key=/path/to/key
func parseAllProxy(allProxy string) (proxySettings, error) {
	allProxy = strings.TrimPrefix(allProxy, "ssh+")

	proxyURL, err := url.Parse(allProxy)
	if err != nil {
		return proxySettings{}, fmt.Errorf("parsing proxy URL: %w", err)
	}
	if proxyURL.Scheme != "socks5" {
		return proxySettings{}, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
	if proxyURL.Host == "" {
		return proxySettings{}, fmt.Errorf("proxy URL has no host")
	}

	settings := proxySettings{
		host:    proxyURL.Host,
		keyPath: proxyURL.Query().Get("private-key"),
	}
	if proxyURL.User != nil {
		settings.username = proxyURL.User.Username()
	}
	if settings.keyPath == "" {
		return proxySettings{}, fmt.Errorf("proxy URL missing required 'private-key' query param")
	}
	return settings, nil
}

// ValidateSSHKeyPath rejects key paths that climb out of their directory,
// including URL-encoded "..", and paths that are not regular files. It
// returns the cleaned path.
func ValidateSSHKeyPath(path string) (string, error) {
	decoded, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("invalid key path: %w", err)
	}
	for _, part := range strings.FieldsFunc(decoded, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return "", fmt.Errorf("key path must not contain '..'")
		}
	}

	cleaned := filepath.Clean(decoded)
	info, err := os.Stat(cleaned)
	if err != nil {
		return "", fmt.Errorf("key file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("key path %q is not a regular file", cleaned)
	}
	return cleaned, nil
}

// newSOCKS5DialContext returns nil when the proxy cannot be configured; the
// caller then dials directly.
func newSOCKS5DialContext(allProxy string) dialContextFunc {
	settings, err := parseAllProxy(allProxy)
	if err != nil {
		slog.Error("Invalid API_ALL_PROXY", "error", err)
		return nil
	}

	keyPath, err := ValidateSSHKeyPath(settings.keyPath)
	if err != nil {
		slog.Error("Invalid SSH private key path", "path", sanitizeForLog(settings.keyPath), "error", err)
		return nil
	}

	key, err := os.ReadFile(keyPath)
	if err != nil {
		slog.Error("Failed to read SSH private key", "path", keyPath, "error", err)
		return nil
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), 1*time.Minute)

	var (
		dialer proxy.DialFunc
		mut    sync.RWMutex
	)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mut.RLock()
		current := dialer
		mut.RUnlock()

		if current != nil {
			return current(network, address)
		}

		mut.Lock()
		defer mut.Unlock()
		if dialer == nil {
			proxyDialer, err := socks5Proxy.Dialer(settings.username, string(key), settings.host)
			if err != nil {
				return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
			}
			slog.Info("API proxy tunnel established", "host", settings.host)
			dialer = proxyDialer
		}
		return dialer(network, address)
	}
}
