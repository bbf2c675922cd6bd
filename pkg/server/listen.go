package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// Listen accepts "unix://<path>" for a unix socket; anything else is a TCP address.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	if path, ok := strings.CutPrefix(addr, "unix://"); ok {
		return listenUnix(ctx, path)
	}

	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}

// IsLocal reports whether addr can only be reached from this host: a unix
// socket, or a TCP address bound to localhost or a loopback IP.
func IsLocal(addr string) bool {
	if strings.HasPrefix(addr, "unix://") {
		return true
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func listenUnix(ctx context.Context, path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	return lc.Listen(ctx, "unix", path)
}
