package web

import (
	"errors"
	"fmt"
	"net"
)

// PortScanRange is the number of candidate ports FindAvailablePort probes.
const PortScanRange = 100

// ErrNoPortAvailable reports an exhausted port scan.
var ErrNoPortAvailable = errors.New("no available port in scan range")

// FindAvailablePort returns the first loopback TCP port that binds, probing
// start, start+1, ... start+PortScanRange-1 in ascending order. The probe
// listener is closed before returning, so another process can still grab
// the port before the server does; callers accept that window.
func FindAvailablePort(start int) (int, error) {
	for port := start; port < start+PortScanRange; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("ports %d-%d busy: %w", start, start+PortScanRange-1, ErrNoPortAvailable)
}
