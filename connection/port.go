package connection

import (
	"fmt"
	"net"
)

// GetFreePort asks the kernel for a free TCP port on host (default
// "127.0.0.1"). The port is released before returning, so another process
// may still grab it; callers start their server right away.
func GetFreePort(host string) (uint32, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("failed to resolve tcp address: %w", err)
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to listen on tcp port 0: %w", err)
	}
	defer l.Close()

	port := l.Addr().(*net.TCPAddr).Port
	if port <= 0 {
		return 0, fmt.Errorf("kernel assigned port %d unexpectedly", port)
	}
	return uint32(port), nil
}
